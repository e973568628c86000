package chat

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

// MemberDirectory resolves identities. Misses are domain.ErrMemberNotFound.
type MemberDirectory interface {
	ResolveByToken(ctx context.Context, token string) (*domain.Member, error)
	ResolveByID(ctx context.Context, id domain.MemberID) (*domain.Member, error)
}

// RoomDirectory reports domain.ErrRoomNotFound for rooms it does not know.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
}

// MessageLog is the best-effort sink for chat events.
type MessageLog interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
}
