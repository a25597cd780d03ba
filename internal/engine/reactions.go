package engine

import (
	"context"
	"time"
	"unicode/utf8"

	"topics-service/internal/models"
	"topics-service/internal/observability"
)

// React toggles the (user, emoji) reaction on a message and fans the full
// updated reaction list out to the message's topic, actor included. The actor
// must be joined to the message's topic and still pass the access check, same
// as a send. The read-modify-write is serialized per message so concurrent
// reactions from different users never lose updates.
func (e *Engine) React(ctx context.Context, conn *Conn, messageID string, emoji string) error {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.detached {
		return ErrConnectionClosed
	}

	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLen {
		return ErrInvalidEmoji
	}

	lock := e.msgLocks.of(messageID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := e.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if e.reg.roomOf(conn) != msg.TopicID {
		return ErrNotJoined
	}
	if _, err := e.checkAccess(ctx, msg.TopicID, conn.identity.ID); err != nil {
		return err
	}

	reactions := toggleReaction(msg.Reactions, conn.identity, emoji, e.now())
	if err := e.messages.UpdateReactions(ctx, messageID, reactions); err != nil {
		return err
	}

	observability.IncTopicCommand("react")
	e.broadcast(msg.TopicID, models.TopicEvent{
		Type:      models.EventReactionUpdated,
		TopicID:   msg.TopicID,
		MessageID: messageID,
		Reactions: reactions,
	}, nil)
	return nil
}

// toggleReaction removes an existing (user, emoji) pair or appends a new one.
func toggleReaction(reactions []models.Reaction, user models.Identity, emoji string, at time.Time) []models.Reaction {
	out := make([]models.Reaction, 0, len(reactions)+1)
	found := false
	for _, r := range reactions {
		if r.UserID == user.ID && r.Emoji == emoji {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		out = append(out, models.Reaction{
			UserID:    user.ID,
			Username:  user.Username,
			Emoji:     emoji,
			CreatedAt: at,
		})
	}
	return out
}
