package domain

import "time"

type RoomID string

type Room struct {
	ID      RoomID    `db:"id"`
	Name    string    `db:"name"`
	RegDate time.Time `db:"reg_date"`
}
