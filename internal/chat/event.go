package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type Kind uint8

const (
	KindEnter Kind = iota + 1
	KindTalk
	KindExit
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "enter"
	case KindTalk:
		return "talk"
	case KindExit:
		return "exit"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Envelope is the JSON frame exchanged with clients in both directions.
// Inbound, Sender is an identity token (email); outbound it is a display
// name or the self label.
type Envelope struct {
	Type    domain.MessageType `json:"type"`
	RoomID  domain.RoomID      `json:"roomId"`
	Sender  string             `json:"sender"`
	Message string             `json:"message"`
}

// Event is one unit of work for the Dispatcher.
type Event struct {
	Kind Kind
	Envelope
}

// Decode parses one inbound text frame.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	env.Type = domain.MessageType(strings.ToUpper(strings.TrimSpace(string(env.Type))))
	env.RoomID = domain.RoomID(strings.TrimSpace(string(env.RoomID)))
	env.Sender = strings.TrimSpace(env.Sender)

	var kind Kind
	switch env.Type {
	case domain.MessageEnter:
		kind = KindEnter
	case domain.MessageTalk:
		kind = KindTalk
	case domain.MessageClose:
		kind = KindExit
	default:
		return Event{}, fmt.Errorf("%w: unknown type %q", ErrDecode, env.Type)
	}
	if kind != KindExit && env.RoomID == "" {
		return Event{}, fmt.Errorf("%w: missing roomId", ErrDecode)
	}
	return Event{Kind: kind, Envelope: env}, nil
}
