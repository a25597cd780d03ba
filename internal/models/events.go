package models

// Event types emitted to topic connections.
const (
	EventNewMessage      = "new-message"
	EventMessageUpdated  = "message-updated"
	EventMessageDeleted  = "message-deleted"
	EventReactionUpdated = "reaction-updated"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventUserTyping      = "user-typing"
	EventUserStopTyping  = "user-stop-typing"
	EventOnlineUsers     = "online-users"
	EventMessageError    = "message-error"
	EventError           = "error"
)

// TopicEvent is broadcasted through websockets.
type TopicEvent struct {
	Type      string          `json:"type"`
	TopicID   string          `json:"topic_id,omitempty"`
	Message   *Message        `json:"message,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Reactions []Reaction      `json:"reactions,omitempty"`
	User      *Identity       `json:"user,omitempty"`
	Users     []PresenceEntry `json:"users,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
}
