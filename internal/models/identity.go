package models

// Identity is the verified user behind a connection. Resolved once at attach
// time and never re-verified mid-connection.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
