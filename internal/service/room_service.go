package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/repository"

	"github.com/google/uuid"
)

type RoomService struct {
	rooms   repository.RoomRepository
	members repository.MemberRepository
	now     func() time.Time
}

func NewRoomService(rooms repository.RoomRepository, members repository.MemberRepository) *RoomService {
	return &RoomService{rooms: rooms, members: members, now: time.Now}
}

// CreateRoom creates a room. creatorEmail, when set, must belong to a
// registered member.
func (s *RoomService) CreateRoom(ctx context.Context, creatorEmail, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	if email := domain.NormalizeEmail(creatorEmail); email != "" {
		ok, err := s.members.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrMemberNotFound
		}
	}

	room := &domain.Room{
		ID:      domain.RoomID(uuid.NewString()),
		Name:    name,
		RegDate: s.now().UTC(),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}
	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	return room, mapNotFound(err, domain.ErrRoomNotFound)
}

func (s *RoomService) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	return s.rooms.List(ctx, limit, cursor)
}

func (s *RoomService) DeleteRoom(ctx context.Context, id domain.RoomID) error {
	return mapNotFound(s.rooms.Delete(ctx, id), domain.ErrRoomNotFound)
}
