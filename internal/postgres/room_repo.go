package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"
	"github.com/cwrk-planet/chat-relay/internal/postgres/queries"
	"github.com/cwrk-planet/chat-relay/internal/repository"
)

type RoomRepo struct {
	q querier
}

func NewRoomRepo(q querier) *RoomRepo {
	return &RoomRepo{q: q}
}

func (r *RoomRepo) Create(ctx context.Context, room *domain.Room) error {
	_, err := r.q.Exec(ctx, queries.CreateRoom, string(room.ID), room.Name, room.RegDate)
	return mapPgError(err)
}

func (r *RoomRepo) Get(ctx context.Context, id domain.RoomID) (*domain.Room, error) {
	var (
		rm    domain.Room
		rawID string
	)
	err := r.q.QueryRow(ctx, queries.GetRoom, string(id)).Scan(&rawID, &rm.Name, &rm.RegDate)
	if err != nil {
		return nil, mapPgError(err)
	}
	rm.ID = domain.RoomID(rawID)
	return &rm, nil
}

func (r *RoomRepo) List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.ClampLimit(limit)

	var regDate, id any
	if cur != nil {
		regDate = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.q.Query(ctx, queries.ListRooms, regDate, id, limit)
	if err != nil {
		return nil, "", mapPgError(err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var (
			rm    domain.Room
			rawID string
		)
		if err := rows.Scan(&rawID, &rm.Name, &rm.RegDate); err != nil {
			return nil, "", err
		}
		rm.ID = domain.RoomID(rawID)
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(rooms) == limit {
		last := rooms[len(rooms)-1]
		next, _ = pagination.Encode(pagination.Cursor{CreatedAt: last.RegDate, ID: string(last.ID)})
	}
	return rooms, next, nil
}

func (r *RoomRepo) Delete(ctx context.Context, id domain.RoomID) error {
	tag, err := r.q.Exec(ctx, queries.DeleteRoom, string(id))
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
