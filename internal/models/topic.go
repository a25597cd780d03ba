package models

import "time"

// Topic represents a named discussion room. Membership and admin sets live in
// join tables and are authoritative in the database, never cached in memory.
type Topic struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	IsPrivate      bool      `db:"is_private" json:"is_private"`
	CreatorID      string    `db:"creator_id" json:"creator_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
}

// PresenceEntry is a user currently online in a topic. Derived from the live
// connection set, not persisted.
type PresenceEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
