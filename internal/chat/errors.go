package chat

import "errors"

var (
	ErrDecode        = errors.New("malformed frame")
	ErrUnknownRoom   = errors.New("unknown room")
	ErrUnknownMember = errors.New("unknown member")
	ErrNotInRoom     = errors.New("connection is not in the room")
	ErrEmptyMessage  = errors.New("empty message")
	ErrDelivery      = errors.New("delivery failed")
	ErrPersistence   = errors.New("message log append failed")
	ErrSessionClosed = errors.New("session closed")
)

// dropReason is the metrics label for an event rejected by the dispatcher.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrUnknownRoom):
		return "unknown_room"
	case errors.Is(err, ErrUnknownMember):
		return "unknown_member"
	case errors.Is(err, ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	default:
		return "internal"
	}
}
