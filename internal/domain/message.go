package domain

import "time"

type MessageType string

const (
	MessageEnter MessageType = "ENTER"
	MessageTalk  MessageType = "TALK"
	MessageClose MessageType = "CLOSE"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageEnter, MessageTalk, MessageClose:
		return true
	}
	return false
}

// ChatMessage is one entry of a room's message log. ID is assigned by the
// dispatcher, so appending the same message twice is a no-op for sinks that
// honour it.
type ChatMessage struct {
	ID        string      `db:"id"`
	RoomID    RoomID      `db:"room_id"`
	Type      MessageType `db:"type"`
	SenderID  *MemberID   `db:"sender_id"`
	Sender    string      `db:"sender"`
	Message   string      `db:"message"`
	CreatedAt time.Time   `db:"created_at"`
}
