package engine

import (
	"context"

	"topics-service/internal/models"
	"topics-service/internal/observability"
)

// Join authorizes the connection against the topic directory and adds it to
// the topic's live set. Joining a public topic does not change the durable
// member list; a private topic requires durable membership. If the connection
// is already joined elsewhere, it implicitly leaves that topic first.
func (e *Engine) Join(ctx context.Context, conn *Conn, topicID string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return ErrConnectionClosed
	}

	if _, err := e.checkAccess(ctx, topicID, conn.identity.ID); err != nil {
		return err
	}

	prev := e.reg.roomOf(conn)
	if prev == topicID {
		// Re-joining the same topic only refreshes the presence snapshot.
		e.Notify(conn, models.TopicEvent{
			Type:    models.EventOnlineUsers,
			TopicID: topicID,
			Users:   e.reg.presence(topicID),
		})
		return nil
	}
	if prev != "" {
		e.leaveRoom(ctx, conn, prev)
	}

	e.reg.joinRoom(conn, topicID)
	observability.IncTopicCommand("join")

	e.broadcast(topicID, models.TopicEvent{
		Type:    models.EventUserJoined,
		TopicID: topicID,
		User:    &conn.identity,
	}, skipConn(conn))

	e.Notify(conn, models.TopicEvent{
		Type:    models.EventOnlineUsers,
		TopicID: topicID,
		Users:   e.reg.presence(topicID),
	})

	e.touchActivity(ctx, topicID)
	return nil
}

// Leave removes the connection from the topic's live set. Leaving a topic the
// connection is not joined to is a no-op, not an error.
func (e *Engine) Leave(ctx context.Context, conn *Conn, topicID string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return ErrConnectionClosed
	}
	e.leaveRoom(ctx, conn, topicID)
	return nil
}

// leaveRoom is the shared leave path for explicit leave, implicit re-join and
// disconnect. Caller holds conn.mu.
func (e *Engine) leaveRoom(ctx context.Context, conn *Conn, topicID string) {
	removed, userRemains := e.reg.leaveRoom(conn, topicID)
	if !removed {
		return
	}
	observability.IncTopicCommand("leave")

	e.broadcast(topicID, models.TopicEvent{
		Type:    models.EventUserLeft,
		TopicID: topicID,
		User:    &conn.identity,
	}, skipConn(conn))

	// Typing state is scoped to the user, not the connection: it is cleared
	// only once no other connection of theirs remains joined.
	if !userRemains {
		e.typing.stop(topicID, conn.identity.ID)
	}
}
