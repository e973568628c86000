// Package memstore provides in-memory repositories for development and
// tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/repository"
)

type MemberStore struct {
	mu      sync.RWMutex
	nextID  domain.MemberID
	byID    map[domain.MemberID]*domain.Member
	byEmail map[string]domain.MemberID
}

func NewMemberStore() *MemberStore {
	return &MemberStore{
		byID:    make(map[domain.MemberID]*domain.Member),
		byEmail: make(map[string]domain.MemberID),
	}
}

func (s *MemberStore) Create(_ context.Context, m *domain.Member) (domain.MemberID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[m.Email]; ok {
		return 0, repository.ErrAlreadyExists
	}
	s.nextID++
	m.ID = s.nextID
	cp := *m
	cp.Image = strings.TrimSpace(cp.Image)
	s.byID[cp.ID] = &cp
	s.byEmail[cp.Email] = cp.ID
	return cp.ID, nil
}

func (s *MemberStore) GetByID(_ context.Context, id domain.MemberID) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemberStore) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *MemberStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *MemberStore) List(_ context.Context, offset, limit int) ([]domain.Member, error) {
	s.mu.RLock()
	out := make([]domain.Member, 0, len(s.byID))
	for _, m := range s.byID {
		out = append(out, *m)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemberStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *MemberStore) UpdateProfile(_ context.Context, email, name, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	s.byID[id].Name = name
	s.byID[id].Image = strings.TrimSpace(image)
	return nil
}

func (s *MemberStore) DeleteByEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	delete(s.byEmail, email)
	delete(s.byID, id)
	return nil
}
