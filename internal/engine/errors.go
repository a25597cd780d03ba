package engine

import "errors"

var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrNotJoined         = errors.New("not joined to a topic")
	ErrAccessDenied      = errors.New("access denied")
	ErrNotOwner          = errors.New("only the sender can edit a message")
	ErrNotAuthorized     = errors.New("not authorized to delete this message")
	ErrInvalidContent    = errors.New("message content must be 1-1000 characters")
	ErrInvalidEmoji      = errors.New("emoji must be 1-10 characters")
	ErrEditWindowExpired = errors.New("edit window expired")
)
