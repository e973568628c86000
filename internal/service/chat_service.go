package service

import (
	"context"
	"errors"
	"sort"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/repository"
)

// Presence is the live membership view of the chat core.
type Presence interface {
	ListMembers(roomID domain.RoomID) []domain.MemberID
}

type ChatService struct {
	messages repository.MessageRepository
	rooms    *RoomService
	members  repository.MemberRepository
	presence Presence
}

func NewChatService(messages repository.MessageRepository, rooms *RoomService, members repository.MemberRepository, presence Presence) *ChatService {
	return &ChatService{messages: messages, rooms: rooms, members: members, presence: presence}
}

// Append stores msg in the message log; it backs the dispatcher's sink.
func (s *ChatService) Append(ctx context.Context, msg domain.ChatMessage) error {
	return s.messages.Append(ctx, msg)
}

func (s *ChatService) History(ctx context.Context, roomID domain.RoomID, cursor string, limit int) ([]domain.ChatMessage, string, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, "", err
	}
	return s.messages.History(ctx, roomID, cursor, limit)
}

// OnlineMembers resolves the room's current membership. Members deleted
// since they joined are left out.
func (s *ChatService) OnlineMembers(ctx context.Context, roomID domain.RoomID) ([]domain.Member, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	ids := s.presence.ListMembers(roomID)
	out := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		m, err := s.members.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
