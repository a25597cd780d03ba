package engine

import (
	"context"
	"strings"
	"unicode/utf8"

	"topics-service/internal/models"
	"topics-service/internal/observability"
)

// Send validates, persists and fans out a message to the connection's joined
// topic. Durability precedes visibility: the broadcast happens only after the
// store write succeeds, and it includes the sender's own connection. The
// sender never synthesizes its own echo locally.
func (e *Engine) Send(ctx context.Context, conn *Conn, content string, replyTo *string) (models.Message, error) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return models.Message{}, ErrConnectionClosed
	}

	topicID := e.reg.roomOf(conn)
	if topicID == "" {
		return models.Message{}, ErrNotJoined
	}

	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxContentLen {
		return models.Message{}, ErrInvalidContent
	}

	// Membership may have changed since join; re-check the directory.
	if _, err := e.checkAccess(ctx, topicID, conn.identity.ID); err != nil {
		return models.Message{}, err
	}

	// The room order lock is held across persist and fan-out so that the
	// fan-out order every recipient observes equals the persistence order.
	lock := e.roomLocks.of(topicID)
	lock.Lock()

	var preview *models.ReplyPreview
	if replyTo != nil && *replyTo != "" {
		if quoted, err := e.messages.Get(ctx, *replyTo); err == nil {
			preview = &models.ReplyPreview{
				MessageID:      quoted.ID,
				SenderID:       quoted.SenderID,
				SenderUsername: quoted.SenderUsername,
				Content:        quoted.Content,
			}
		} else {
			replyTo = nil
		}
	}

	msg, err := e.messages.Create(ctx, topicID, conn.identity, content, replyTo)
	if err != nil {
		lock.Unlock()
		return models.Message{}, err
	}
	msg.ReplyPreview = preview

	observability.IncTopicCommand("send")
	e.broadcast(topicID, models.TopicEvent{
		Type:    models.EventNewMessage,
		TopicID: topicID,
		Message: &msg,
	}, nil)
	lock.Unlock()

	e.touchActivity(ctx, topicID)
	return msg, nil
}

// Edit updates a message's content. Only the sender may edit, and only within
// the edit window. A delete that races an edit wins: once the row is gone the
// update fails with not-found and nothing is broadcast.
func (e *Engine) Edit(ctx context.Context, conn *Conn, messageID string, newContent string) (models.Message, error) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return models.Message{}, ErrConnectionClosed
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" || utf8.RuneCountInString(newContent) > maxContentLen {
		return models.Message{}, ErrInvalidContent
	}

	msg, err := e.messages.Get(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != conn.identity.ID {
		return models.Message{}, ErrNotOwner
	}
	now := e.now()
	if now.Sub(msg.CreatedAt) > EditWindow {
		return models.Message{}, ErrEditWindowExpired
	}

	lock := e.roomLocks.of(msg.TopicID)
	lock.Lock()
	defer lock.Unlock()

	updated, err := e.messages.UpdateContent(ctx, messageID, newContent, now)
	if err != nil {
		return models.Message{}, err
	}

	observability.IncTopicCommand("edit")
	e.broadcast(msg.TopicID, models.TopicEvent{
		Type:    models.EventMessageUpdated,
		TopicID: msg.TopicID,
		Message: &updated,
	}, nil)
	return updated, nil
}

// Delete hard-deletes a message. Allowed for the sender or any topic admin.
// The deletion event still fans out so live clients drop it from view.
func (e *Engine) Delete(ctx context.Context, conn *Conn, messageID string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return ErrConnectionClosed
	}

	msg, err := e.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != conn.identity.ID {
		admin, err := e.topics.IsAdmin(ctx, msg.TopicID, conn.identity.ID)
		if err != nil {
			return err
		}
		if !admin {
			return ErrNotAuthorized
		}
	}

	lock := e.roomLocks.of(msg.TopicID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.messages.Delete(ctx, messageID); err != nil {
		return err
	}

	observability.IncTopicCommand("delete")
	e.broadcast(msg.TopicID, models.TopicEvent{
		Type:      models.EventMessageDeleted,
		TopicID:   msg.TopicID,
		MessageID: messageID,
	}, nil)
	return nil
}
