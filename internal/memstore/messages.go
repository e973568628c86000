package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"
)

// DefaultDedupWindow is how many recent event ids MessageStore remembers for
// de-duplication.
const DefaultDedupWindow = 10000

// MessageStore keeps the whole log in memory. Only the dedup index is
// bounded: ids older than the window are forgotten.
type MessageStore struct {
	mu     sync.RWMutex
	seen   map[string]struct{}
	order  []string // ring of remembered ids, oldest at next
	next   int
	window int
	byRoom map[domain.RoomID][]domain.ChatMessage
}

func NewMessageStore() *MessageStore {
	return NewMessageStoreWithWindow(DefaultDedupWindow)
}

func NewMessageStoreWithWindow(window int) *MessageStore {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &MessageStore{
		seen:   make(map[string]struct{}, window),
		order:  make([]string, 0, window),
		window: window,
		byRoom: make(map[domain.RoomID][]domain.ChatMessage),
	}
}

func (s *MessageStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[msg.ID]; dup {
		return nil
	}
	s.remember(msg.ID)
	s.byRoom[msg.RoomID] = append(s.byRoom[msg.RoomID], msg)
	return nil
}

func (s *MessageStore) remember(id string) {
	if len(s.order) < s.window {
		s.order = append(s.order, id)
	} else {
		delete(s.seen, s.order[s.next])
		s.order[s.next] = id
		s.next = (s.next + 1) % s.window
	}
	s.seen[id] = struct{}{}
}

func (s *MessageStore) History(_ context.Context, roomID domain.RoomID, cursor string, limit int) ([]domain.ChatMessage, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.ClampLimit(limit)

	s.mu.RLock()
	var msgs []domain.ChatMessage
	for _, m := range s.byRoom[roomID] {
		if cur == nil || cur.After(m.CreatedAt, m.ID) {
			msgs = append(msgs, m)
		}
	}
	s.mu.RUnlock()

	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID > msgs[j].ID
	})

	if len(msgs) <= limit {
		return msgs, "", nil
	}
	page := msgs[:limit]
	last := page[len(page)-1]
	next, _ := pagination.Encode(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	return page, next, nil
}
