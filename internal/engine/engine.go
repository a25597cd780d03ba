package engine

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"topics-service/internal/auth"
	"topics-service/internal/models"
	"topics-service/internal/observability"
	"topics-service/internal/repositories"
)

const (
	// EditWindow is how long after creation a message stays editable.
	EditWindow = 15 * time.Minute
	// TypingTimeout is the typing inactivity expiry.
	TypingTimeout = 3 * time.Second
	// DefaultPageSize is the history page size.
	DefaultPageSize = 50

	maxContentLen = 1000
	maxEmojiLen   = 10
)

// Engine is the real-time topic messaging core. It owns the connection
// registry, the per-topic live sets and the ephemeral typing state, and
// coordinates them against the durable topic directory and message store.
type Engine struct {
	topics   repositories.TopicRepository
	messages repositories.MessageRepository
	verifier auth.Verifier

	reg    *registry
	typing *typingTracker

	// roomLocks serializes persist+fan-out per topic so that fan-out order
	// matches persistence order. msgLocks serializes the reaction
	// read-modify-write per message.
	roomLocks *stripedMutex
	msgLocks  *stripedMutex

	now func() time.Time
}

// NewEngine constructs the engine.
func NewEngine(topics repositories.TopicRepository, messages repositories.MessageRepository, verifier auth.Verifier) *Engine {
	e := &Engine{
		topics:    topics,
		messages:  messages,
		verifier:  verifier,
		reg:       newRegistry(),
		roomLocks: newStripedMutex(64),
		msgLocks:  newStripedMutex(256),
		now:       time.Now,
	}
	e.typing = newTypingTracker(TypingTimeout, e.notifyStopTyping)
	return e
}

// Attach verifies the credential and registers a new live connection.
// A failed verification refuses the attach; the transport must close.
func (e *Engine) Attach(ctx context.Context, token string) (*Conn, error) {
	identity, err := e.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	conn := newConn(identity)
	e.reg.register(conn)
	return conn, nil
}

// Detach releases all room state held by the connection and removes it.
// Idempotent, and linearized with command processing for the connection.
func (e *Engine) Detach(ctx context.Context, conn *Conn) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return
	}
	conn.detached = true
	if room := e.reg.roomOf(conn); room != "" {
		e.leaveRoom(ctx, conn, room)
	}
	e.reg.unregister(conn)
	conn.closeSend()
}

// Presence returns the users currently online in a topic.
func (e *Engine) Presence(topicID string) []models.PresenceEntry {
	return e.reg.presence(topicID)
}

// Notify delivers an event to a single connection.
func (e *Engine) Notify(conn *Conn, event models.TopicEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal %s event: %v", event.Type, err)
		return
	}
	if !conn.enqueue(payload) {
		e.dropConn(conn)
	}
}

func (e *Engine) broadcast(topicID string, event models.TopicEvent, skip func(*Conn) bool) {
	e.reg.broadcast(topicID, event, skip, e.dropConn)
}

// dropConn disposes of a connection whose outbound queue overflowed. The
// detach runs on its own goroutine: a drop can surface mid-fan-out, and the
// leave cascade must not re-enter room state from inside it.
func (e *Engine) dropConn(conn *Conn) {
	observability.IncFanoutDrop()
	log.Printf("dropping slow connection %s user=%s", conn.id, conn.identity.ID)
	go e.Detach(context.Background(), conn)
}

// checkAccess applies the room authorization rule: a missing topic fails,
// a private topic requires durable membership.
func (e *Engine) checkAccess(ctx context.Context, topicID string, userID string) (models.Topic, error) {
	topic, err := e.topics.Get(ctx, topicID)
	if err != nil {
		return models.Topic{}, err
	}
	if topic.IsPrivate {
		member, err := e.topics.IsMember(ctx, topicID, userID)
		if err != nil {
			return models.Topic{}, err
		}
		if !member {
			return models.Topic{}, ErrAccessDenied
		}
	}
	return topic, nil
}

func (e *Engine) touchActivity(ctx context.Context, topicID string) {
	if err := e.topics.TouchActivity(ctx, topicID); err != nil {
		log.Printf("touch activity for topic %s: %v", topicID, err)
	}
}

// stripedMutex is a fixed pool of mutexes keyed by string hash. Operations on
// different topics or messages proceed independently; there is no global lock.
type stripedMutex struct {
	stripes []sync.Mutex
}

func newStripedMutex(n int) *stripedMutex {
	return &stripedMutex{stripes: make([]sync.Mutex, n)}
}

func (s *stripedMutex) of(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}
