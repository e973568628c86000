package postgres

import (
	"context"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"
	"github.com/cwrk-planet/chat-relay/internal/postgres/queries"
)

type MessageRepo struct {
	q querier
}

func NewMessageRepo(q querier) *MessageRepo {
	return &MessageRepo{q: q}
}

// Append is a no-op for an id that is already stored.
func (r *MessageRepo) Append(ctx context.Context, msg domain.ChatMessage) error {
	var senderID *int64
	if msg.SenderID != nil {
		id := int64(*msg.SenderID)
		senderID = &id
	}
	_, err := r.q.Exec(ctx, queries.AppendMessage,
		msg.ID,
		string(msg.RoomID),
		string(msg.Type),
		senderID,
		msg.Sender,
		msg.Message,
		msg.CreatedAt,
	)
	return mapPgError(err)
}

// History returns messages newest first with keyset pagination.
func (r *MessageRepo) History(ctx context.Context, roomID domain.RoomID, cursor string, limit int) ([]domain.ChatMessage, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.ClampLimit(limit)

	var createdAt, id any
	if cur != nil {
		createdAt = cur.CreatedAt
		id = cur.ID
	}

	rows, err := r.q.Query(ctx, queries.MessageHistory, string(roomID), createdAt, id, limit)
	if err != nil {
		return nil, "", mapPgError(err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var (
			m        domain.ChatMessage
			rawRoom  string
			rawType  string
			senderID *int64
		)
		if err := rows.Scan(&m.ID, &rawRoom, &rawType, &senderID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, "", err
		}
		m.RoomID = domain.RoomID(rawRoom)
		m.Type = domain.MessageType(rawType)
		if senderID != nil {
			sid := domain.MemberID(*senderID)
			m.SenderID = &sid
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next, _ = pagination.Encode(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return out, next, nil
}
