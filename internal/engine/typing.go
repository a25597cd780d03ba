package engine

import (
	"sync"
	"time"

	"topics-service/internal/models"
	"topics-service/internal/observability"
)

type typingKey struct {
	topicID string
	userID  string
}

type typingEntry struct {
	user  models.Identity
	timer *time.Timer
	// gen is bumped on every refresh so a timer that fired for an older
	// arming cannot expire the refreshed entry.
	gen uint64
}

// typingTracker owns the ephemeral (topic, user) typing entries. Each entry is
// a tiny state machine: start arms (or re-arms) the inactivity timer; stop,
// timeout, leave and disconnect all converge on remove, which fires the stop
// notification exactly once no matter which trigger wins the race.
type typingTracker struct {
	mu      sync.Mutex
	entries map[typingKey]*typingEntry
	timeout time.Duration
	onStop  func(topicID string, user models.Identity)
}

func newTypingTracker(timeout time.Duration, onStop func(topicID string, user models.Identity)) *typingTracker {
	return &typingTracker{
		entries: make(map[typingKey]*typingEntry),
		timeout: timeout,
		onStop:  onStop,
	}
}

// start inserts or refreshes the typing entry and reports whether the user
// transitioned from idle to typing.
func (t *typingTracker) start(topicID string, user models.Identity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := typingKey{topicID: topicID, userID: user.ID}
	if entry, ok := t.entries[key]; ok {
		entry.gen++
		gen := entry.gen
		entry.timer.Stop()
		entry.timer = time.AfterFunc(t.timeout, func() {
			t.expire(key, gen)
		})
		return false
	}
	entry := &typingEntry{user: user}
	entry.timer = time.AfterFunc(t.timeout, func() {
		t.expire(key, 0)
	})
	t.entries[key] = entry
	return true
}

// expire removes the entry only if it still belongs to the arming that fired.
// A callback that lost the lock race to a refresh sees a newer gen and bails.
func (t *typingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if ok && entry.gen == gen {
		delete(t.entries, key)
	} else {
		ok = false
	}
	t.mu.Unlock()

	if ok {
		t.onStop(key.topicID, entry.user)
	}
}

// stop removes the entry if present and emits the stop notification. Safe to
// call from any trigger; only the caller that actually removes the entry
// notifies.
func (t *typingTracker) stop(topicID string, userID string) bool {
	t.mu.Lock()
	key := typingKey{topicID: topicID, userID: userID}
	entry, ok := t.entries[key]
	if ok {
		entry.timer.Stop()
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if ok {
		t.onStop(topicID, entry.user)
	}
	return ok
}

// TypingStart marks the user as typing in their joined topic and notifies the
// rest of the room on the idle-to-typing transition.
func (e *Engine) TypingStart(conn *Conn, topicID string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return ErrConnectionClosed
	}
	if e.reg.roomOf(conn) != topicID {
		return ErrNotJoined
	}
	if e.typing.start(topicID, conn.identity) {
		observability.IncTopicCommand("typing-start")
		e.broadcast(topicID, models.TopicEvent{
			Type:    models.EventUserTyping,
			TopicID: topicID,
			User:    &conn.identity,
		}, skipUser(conn.identity.ID))
	}
	return nil
}

// TypingStop clears the user's typing state explicitly.
func (e *Engine) TypingStop(conn *Conn, topicID string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return ErrConnectionClosed
	}
	if e.reg.roomOf(conn) != topicID {
		return ErrNotJoined
	}
	e.typing.stop(topicID, conn.identity.ID)
	return nil
}

func (e *Engine) notifyStopTyping(topicID string, user models.Identity) {
	observability.IncTopicCommand("typing-stop")
	e.broadcast(topicID, models.TopicEvent{
		Type:    models.EventUserStopTyping,
		TopicID: topicID,
		User:    &user,
	}, skipUser(user.ID))
}

// typingUsers is exposed for tests and the presence snapshot.
func (e *Engine) typingUsers(topicID string) []models.PresenceEntry {
	e.typing.mu.Lock()
	defer e.typing.mu.Unlock()
	var users []models.PresenceEntry
	for key, entry := range e.typing.entries {
		if key.topicID == topicID {
			users = append(users, models.PresenceEntry{UserID: entry.user.ID, Username: entry.user.Username})
		}
	}
	return users
}
