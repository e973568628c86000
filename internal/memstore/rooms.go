package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"
	"github.com/cwrk-planet/chat-relay/internal/repository"
)

type RoomStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]domain.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[domain.RoomID]domain.Room)}
}

func (s *RoomStore) Create(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[room.ID]; ok {
		return repository.ErrAlreadyExists
	}
	s.rooms[room.ID] = *room
	return nil
}

func (s *RoomStore) Get(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

// List orders rooms newest first, ties broken by id descending.
func (s *RoomStore) List(_ context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.ClampLimit(limit)

	s.mu.RLock()
	all := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if cur == nil || cur.After(r.RegDate, string(r.ID)) {
			all = append(all, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].RegDate.Equal(all[j].RegDate) {
			return all[i].RegDate.After(all[j].RegDate)
		}
		return all[i].ID > all[j].ID
	})

	if len(all) <= limit {
		return all, "", nil
	}
	page := all[:limit]
	last := page[len(page)-1]
	next, _ := pagination.Encode(pagination.Cursor{CreatedAt: last.RegDate, ID: string(last.ID)})
	return page, next, nil
}

func (s *RoomStore) Delete(_ context.Context, id domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}
