package memstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/repository"
	"github.com/stretchr/testify/require"
)

var (
	_ repository.MemberRepository  = (*MemberStore)(nil)
	_ repository.RoomRepository    = (*RoomStore)(nil)
	_ repository.MessageRepository = (*MessageStore)(nil)
)

func TestMemberStore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewMemberStore()

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := s.Create(ctx, &domain.Member{Email: email, Name: email[:1]})
		req.NoError(err)
	}
	_, err := s.Create(ctx, &domain.Member{Email: "a@x.com"})
	req.ErrorIs(err, repository.ErrAlreadyExists)

	n, err := s.Count(ctx)
	req.NoError(err)
	req.Equal(3, n)

	page, err := s.List(ctx, 1, 1)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("b@x.com", page[0].Email)

	all, err := s.List(ctx, 0, 0)
	req.NoError(err)
	req.Len(all, 3)

	empty, err := s.List(ctx, 10, 5)
	req.NoError(err)
	req.Empty(empty)

	req.NoError(s.UpdateProfile(ctx, "a@x.com", "alice", " pic.png "))
	m, err := s.GetByEmail(ctx, "a@x.com")
	req.NoError(err)
	req.Equal("alice", m.Name)
	req.Equal("pic.png", m.Image)

	req.NoError(s.DeleteByEmail(ctx, "a@x.com"))
	ok, err := s.ExistsByEmail(ctx, "a@x.com")
	req.NoError(err)
	req.False(ok)
	_, err = s.GetByID(ctx, m.ID)
	req.ErrorIs(err, repository.ErrNotFound)
	req.ErrorIs(s.UpdateProfile(ctx, "a@x.com", "x", ""), repository.ErrNotFound)
}

func TestRoomStore_ListPages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewRoomStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		req.NoError(s.Create(ctx, &domain.Room{
			ID:      domain.RoomID(fmt.Sprintf("r%d", i)),
			RegDate: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	var seen []domain.RoomID
	cursor := ""
	for {
		page, next, err := s.List(ctx, 2, cursor)
		req.NoError(err)
		for _, r := range page {
			seen = append(seen, r.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	req.Equal([]domain.RoomID{"r4", "r3", "r2", "r1", "r0"}, seen)

	req.NoError(s.Delete(ctx, "r0"))
	req.ErrorIs(s.Delete(ctx, "r0"), repository.ErrNotFound)
	_, err := s.Get(ctx, "r0")
	req.ErrorIs(err, repository.ErrNotFound)
}

func TestMessageStore_DedupAndHistory(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewMessageStore()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// equal timestamps fall back to id order
	for _, id := range []string{"a", "b", "c"} {
		msg := domain.ChatMessage{ID: id, RoomID: "R1", Type: domain.MessageTalk, CreatedAt: ts}
		req.NoError(s.Append(ctx, msg))
		req.NoError(s.Append(ctx, msg))
	}

	page, next, err := s.History(ctx, "R1", "", 2)
	req.NoError(err)
	req.Equal("c", page[0].ID)
	req.Equal("b", page[1].ID)

	page, next, err = s.History(ctx, "R1", next, 2)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("a", page[0].ID)
	req.Empty(next)

	other, _, err := s.History(ctx, "R2", "", 10)
	req.NoError(err)
	req.Empty(other)
}

func TestMessageStore_DedupWindowIsBounded(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := NewMessageStoreWithWindow(2)
	base := time.Now().UTC()

	msg := func(id string, i int) domain.ChatMessage {
		return domain.ChatMessage{ID: id, RoomID: "R1", Type: domain.MessageTalk, Message: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}
	}

	// Given three appends through a window of two
	req.NoError(s.Append(ctx, msg("a", 0)))
	req.NoError(s.Append(ctx, msg("b", 1)))
	req.NoError(s.Append(ctx, msg("c", 2)))

	// Then the index holds only the newest two ids
	req.Len(s.seen, 2)
	req.NotContains(s.seen, "a")

	// And ids inside the window are still de-duplicated
	req.NoError(s.Append(ctx, msg("c", 3)))
	got, _, err := s.History(ctx, "R1", "", 10)
	req.NoError(err)
	req.Len(got, 3)
}
