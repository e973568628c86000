package domain

import (
	"strings"
	"time"
)

type MemberID int64

// Member is a registered chat user. Email is the identity token clients put
// into the sender field of their first frame.
type Member struct {
	ID           MemberID  `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	Image        string    `db:"image"`
	RegDate      time.Time `db:"reg_date"`
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
