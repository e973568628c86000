package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapPgError(t *testing.T) {
	require.Nil(t, mapPgError(nil))
	require.ErrorIs(t, mapPgError(pgx.ErrNoRows), repository.ErrNotFound)
	require.ErrorIs(t, mapPgError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound)
	require.ErrorIs(t, mapPgError(&pgconn.PgError{Code: "23505"}), repository.ErrAlreadyExists)

	other := errors.New("boom")
	require.Equal(t, other, mapPgError(other))
}

func TestSchemaEmbedded(t *testing.T) {
	require.Contains(t, schema, "CREATE TABLE IF NOT EXISTS members")
	require.Contains(t, schema, "chat_messages")
}

func TestPoolConfig_OverlaysNonZero(t *testing.T) {
	req := require.New(t)

	pc, err := Config{
		DSN:             "postgres://u:p@localhost:5432/chat",
		MaxConns:        7,
		MaxConnLifetime: time.Minute,
		ApplicationName: "chat-relay",
	}.poolConfig()
	req.NoError(err)
	req.EqualValues(7, pc.MaxConns)
	req.Equal(time.Minute, pc.MaxConnLifetime)
	req.Equal("chat-relay", pc.ConnConfig.RuntimeParams["application_name"])

	_, err = Config{DSN: "://bad"}.poolConfig()
	req.Error(err)
}
