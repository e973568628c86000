// Package repository declares the storage contracts shared by the postgres,
// redis and in-memory backends.
package repository

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type MemberRepository interface {
	Create(ctx context.Context, m *domain.Member) (domain.MemberID, error)
	GetByID(ctx context.Context, id domain.MemberID) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// List returns members ordered by id. limit <= 0 means no limit.
	List(ctx context.Context, offset, limit int) ([]domain.Member, error)
	Count(ctx context.Context) (int, error)
	UpdateProfile(ctx context.Context, email, name, image string) error
	DeleteByEmail(ctx context.Context, email string) error
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	// List pages newest first; the returned cursor is empty on the last page.
	List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	Delete(ctx context.Context, id domain.RoomID) error
}

// MessageRepository is an append-only room log. Append ignores a message
// whose ID is already stored.
type MessageRepository interface {
	Append(ctx context.Context, msg domain.ChatMessage) error
	History(ctx context.Context, roomID domain.RoomID, cursor string, limit int) ([]domain.ChatMessage, string, error)
}
