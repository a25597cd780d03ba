package models

import "time"

// Reaction is a single emoji reaction on a message, unique per
// (message, user, emoji). Adding the same pair again removes it.
type Reaction struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReplyPreview is the quoted message carried inside a reply.
type ReplyPreview struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
}

// Message represents a message sent in a topic.
type Message struct {
	ID             string        `db:"id" json:"id"`
	TopicID        string        `db:"topic_id" json:"topic_id"`
	SenderID       string        `db:"sender_id" json:"sender_id"`
	SenderUsername string        `db:"sender_username" json:"sender_username"`
	Content        string        `db:"content" json:"content"`
	IsEdited       bool          `db:"is_edited" json:"is_edited"`
	EditedAt       *time.Time    `db:"edited_at" json:"edited_at,omitempty"`
	ReplyTo        *string       `db:"reply_to" json:"reply_to,omitempty"`
	ReplyPreview   *ReplyPreview `db:"-" json:"reply_preview,omitempty"`
	Reactions      []Reaction    `db:"-" json:"reactions"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// HistoryPage is one page of topic history. Page 1 holds the newest messages;
// messages within a page are ordered oldest first.
type HistoryPage struct {
	Messages    []Message `json:"messages"`
	HasMore     bool      `json:"has_more"`
	CurrentPage int       `json:"current_page"`
	TotalPages  int       `json:"total_pages"`
}
