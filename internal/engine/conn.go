package engine

import (
	"sync"

	"github.com/google/uuid"

	"topics-service/internal/models"
)

// sendQueueSize bounds the per-connection outbound queue. A receiver that
// cannot drain 256 events is considered dead and gets dropped rather than
// blocking the sender.
const sendQueueSize = 256

// Conn is one live authenticated connection. A connection is joined to at
// most one topic at a time.
type Conn struct {
	id       string
	identity models.Identity

	// mu linearizes command processing with detach: at most one command
	// or the detach runs at a time for this connection.
	mu       sync.Mutex
	detached bool

	// room is the currently joined topic id, guarded by the registry lock.
	room string

	sendMu sync.Mutex
	closed bool
	send   chan []byte
}

func newConn(identity models.Identity) *Conn {
	return &Conn{
		id:       uuid.NewString(),
		identity: identity,
		send:     make(chan []byte, sendQueueSize),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// Identity returns the identity verified at attach time.
func (c *Conn) Identity() models.Identity { return c.identity }

// Events is the outbound event stream. The channel is closed when the
// connection is detached or dropped.
func (c *Conn) Events() <-chan []byte { return c.send }

// enqueue offers a payload to the outbound queue without blocking. It reports
// false when the connection is already closed or its queue is full; a full
// queue closes the connection.
func (c *Conn) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Conn) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
