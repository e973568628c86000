package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// openTx runs the test inside a transaction that is rolled back, against
// the database named by CHAT_TEST_POSTGRES_DSN.
func openTx(t *testing.T) pgx.Tx {
	t.Helper()
	dsn := os.Getenv("CHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHAT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, Config{DSN: dsn, MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

func TestMemberRepo_CRUD(t *testing.T) {
	req := require.New(t)
	tx := openTx(t)
	ctx := context.Background()
	repo := NewMemberRepo(tx)

	email := uuid.NewString() + "@example.com"
	m := &domain.Member{Email: email, Name: "alice", PasswordHash: "x", RegDate: time.Now().UTC()}
	id, err := repo.Create(ctx, m)
	req.NoError(err)
	req.NotZero(id)

	_, err = repo.Create(ctx, &domain.Member{Email: email, Name: "dup", PasswordHash: "x", RegDate: time.Now()})
	req.ErrorIs(err, repository.ErrAlreadyExists)
}

func TestMemberRepo_Lookups(t *testing.T) {
	req := require.New(t)
	tx := openTx(t)
	ctx := context.Background()
	repo := NewMemberRepo(tx)

	email := uuid.NewString() + "@example.com"
	id, err := repo.Create(ctx, &domain.Member{Email: email, Name: "bob", PasswordHash: "x", RegDate: time.Now().UTC()})
	req.NoError(err)

	got, err := repo.GetByID(ctx, id)
	req.NoError(err)
	req.Equal(email, got.Email)

	ok, err := repo.ExistsByEmail(ctx, email)
	req.NoError(err)
	req.True(ok)

	req.NoError(repo.UpdateProfile(ctx, email, "bobby", "img.png"))
	got, err = repo.GetByEmail(ctx, email)
	req.NoError(err)
	req.Equal("bobby", got.Name)

	req.NoError(repo.DeleteByEmail(ctx, email))
	_, err = repo.GetByEmail(ctx, email)
	req.ErrorIs(err, repository.ErrNotFound)
	req.ErrorIs(repo.DeleteByEmail(ctx, email), repository.ErrNotFound)
}

func TestRoomRepo_ListPages(t *testing.T) {
	req := require.New(t)
	tx := openTx(t)
	ctx := context.Background()
	repo := NewRoomRepo(tx)
	_, err := tx.Exec(ctx, `DELETE FROM chat_rooms`)
	req.NoError(err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		req.NoError(repo.Create(ctx, &domain.Room{
			ID:      domain.RoomID(uuid.NewString()),
			Name:    "room",
			RegDate: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, next, err := repo.List(ctx, 2, "")
	req.NoError(err)
	req.Len(page, 2)
	req.NotEmpty(next)

	page, next, err = repo.List(ctx, 2, next)
	req.NoError(err)
	req.Len(page, 1)
	req.Empty(next)
}

func TestMessageRepo_AppendIsIdempotent(t *testing.T) {
	req := require.New(t)
	tx := openTx(t)
	ctx := context.Background()
	repo := NewMessageRepo(tx)

	room := domain.RoomID(uuid.NewString())
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    room,
		Type:      domain.MessageTalk,
		Sender:    "alice",
		Message:   "hi",
		CreatedAt: time.Now().UTC(),
	}
	req.NoError(repo.Append(ctx, msg))
	req.NoError(repo.Append(ctx, msg))

	out, _, err := repo.History(ctx, room, "", 10)
	req.NoError(err)
	req.Len(out, 1)
	req.Equal(msg.ID, out[0].ID)
	req.Nil(out[0].SenderID)
}
