package security

import (
	"github.com/cwrk-planet/chat-relay/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type BcryptConfig struct {
	Cost      int
	MinLength int
}

func HashPassword(plain string, cfg *BcryptConfig) (string, error) {
	minLen := 6
	cost := bcrypt.DefaultCost

	if cfg != nil {
		if cfg.MinLength > 0 {
			minLen = cfg.MinLength
		}
		if cfg.Cost > 0 {
			cost = cfg.Cost
		}
	}

	if len(plain) < minLen {
		return "", domain.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword returns domain.ErrInvalidCredentials on mismatch.
func ComparePassword(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}
