package security

import (
	"testing"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	cfg := &BcryptConfig{Cost: bcrypt.MinCost, MinLength: 8}

	_, err := HashPassword("short", cfg)
	require.ErrorIs(t, err, domain.ErrPasswordTooShort)

	hash, err := HashPassword("correct horse", cfg)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", hash)

	require.NoError(t, ComparePassword(hash, "correct horse"))
	require.ErrorIs(t, ComparePassword(hash, "wrong horse"), domain.ErrInvalidCredentials)
}
