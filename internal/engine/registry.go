package engine

import (
	"encoding/json"
	"log"
	"sync"

	"topics-service/internal/models"
)

// registry tracks live connections and per-topic live sets. The two views are
// kept in lockstep under one lock: a connection appears in exactly the live
// set named by its room field, or in none.
type registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]map[*Conn]bool
}

func newRegistry() *registry {
	return &registry{
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[*Conn]bool),
	}
}

func (r *registry) register(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.id] = conn
}

func (r *registry) unregister(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn.id)
}

// joinRoom moves the connection into a topic's live set and returns the
// previously joined topic id, if any.
func (r *registry) joinRoom(conn *Conn, topicID string) (prev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = conn.room
	if prev == topicID {
		return prev
	}
	if prev != "" {
		r.removeLocked(conn, prev)
	}
	if _, ok := r.rooms[topicID]; !ok {
		r.rooms[topicID] = make(map[*Conn]bool)
	}
	r.rooms[topicID][conn] = true
	conn.room = topicID
	return prev
}

// leaveRoom removes the connection from the topic's live set. It reports
// whether the connection was actually in the room and whether any other
// connection of the same user remains joined to it.
func (r *registry) leaveRoom(conn *Conn, topicID string) (removed bool, userRemains bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conn.room != topicID {
		return false, false
	}
	r.removeLocked(conn, topicID)
	conn.room = ""
	for other := range r.rooms[topicID] {
		if other.identity.ID == conn.identity.ID {
			userRemains = true
			break
		}
	}
	return true, userRemains
}

func (r *registry) removeLocked(conn *Conn, topicID string) {
	if conns, ok := r.rooms[topicID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.rooms, topicID)
		}
	}
}

// roomOf returns the topic the connection is currently joined to.
func (r *registry) roomOf(conn *Conn) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return conn.room
}

// snapshot returns the topic's live connections at this instant.
func (r *registry) snapshot(topicID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]*Conn, 0, len(r.rooms[topicID]))
	for conn := range r.rooms[topicID] {
		conns = append(conns, conn)
	}
	return conns
}

// presence derives the set of users online in a topic from the live set.
func (r *registry) presence(topicID string) []models.PresenceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.rooms[topicID]))
	entries := make([]models.PresenceEntry, 0, len(r.rooms[topicID]))
	for conn := range r.rooms[topicID] {
		if seen[conn.identity.ID] {
			continue
		}
		seen[conn.identity.ID] = true
		entries = append(entries, models.PresenceEntry{
			UserID:   conn.identity.ID,
			Username: conn.identity.Username,
		})
	}
	return entries
}

// broadcast fans an event out to the topic's live set. Connections matching
// skip are excluded. Enqueueing never blocks; receivers whose queue overflows
// are dropped via the supplied callback.
func (r *registry) broadcast(topicID string, event models.TopicEvent, skip func(*Conn) bool, onDrop func(*Conn)) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal %s event: %v", event.Type, err)
		return
	}
	for _, conn := range r.snapshot(topicID) {
		if skip != nil && skip(conn) {
			continue
		}
		if !conn.enqueue(payload) {
			onDrop(conn)
		}
	}
}

func skipConn(exclude *Conn) func(*Conn) bool {
	return func(c *Conn) bool { return c == exclude }
}

func skipUser(userID string) func(*Conn) bool {
	return func(c *Conn) bool { return c.identity.ID == userID }
}
