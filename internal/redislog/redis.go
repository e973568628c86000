// Package redislog keeps room message logs in Redis streams.
package redislog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/pagination"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// MaxLen caps each room stream, approximately.
	MaxLen int64
	// DedupTTL is how long an appended message id is remembered.
	DedupTTL time.Duration
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

type MessageLog struct {
	client   *redis.Client
	prefix   string
	maxLen   int64
	dedupTTL time.Duration
}

func NewMessageLog(client *redis.Client, cfg Config) *MessageLog {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "chat"
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 10000
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &MessageLog{client: client, prefix: cfg.KeyPrefix, maxLen: cfg.MaxLen, dedupTTL: cfg.DedupTTL}
}

func (l *MessageLog) streamKey(roomID domain.RoomID) string {
	return l.prefix + ":room:" + string(roomID) + ":messages"
}

func (l *MessageLog) seenKey(id string) string {
	return l.prefix + ":msg:" + id
}

// Append adds msg to the room stream unless its id was already appended.
func (l *MessageLog) Append(ctx context.Context, msg domain.ChatMessage) error {
	fresh, err := l.client.SetNX(ctx, l.seenKey(msg.ID), 1, l.dedupTTL).Result()
	if err != nil {
		return fmt.Errorf("redis dedup: %w", err)
	}
	if !fresh {
		return nil
	}

	err = l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.streamKey(msg.RoomID),
		MaxLen: l.maxLen,
		Approx: true,
		Values: encode(msg),
	}).Err()
	if err != nil {
		// let a retry through
		_ = l.client.Del(ctx, l.seenKey(msg.ID)).Err()
		return fmt.Errorf("redis xadd: %w", err)
	}
	return nil
}

// History reads newest first. The cursor carries the last stream entry id.
func (l *MessageLog) History(ctx context.Context, roomID domain.RoomID, cursor string, limit int) ([]domain.ChatMessage, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}
	limit = pagination.ClampLimit(limit)

	end := "+"
	if cur != nil {
		end = "(" + cur.ID
	}
	entries, err := l.client.XRevRangeN(ctx, l.streamKey(roomID), end, "-", int64(limit)).Result()
	if err != nil {
		return nil, "", fmt.Errorf("redis xrevrange: %w", err)
	}

	out := make([]domain.ChatMessage, 0, len(entries))
	for _, e := range entries {
		m, err := decode(e.Values)
		if err != nil {
			return nil, "", fmt.Errorf("entry %s: %w", e.ID, err)
		}
		out = append(out, m)
	}

	var next string
	if len(entries) == limit {
		last := entries[len(entries)-1]
		next, _ = pagination.Encode(pagination.Cursor{CreatedAt: out[len(out)-1].CreatedAt, ID: last.ID})
	}
	return out, next, nil
}

func encode(msg domain.ChatMessage) map[string]any {
	v := map[string]any{
		"id":         msg.ID,
		"room_id":    string(msg.RoomID),
		"type":       string(msg.Type),
		"sender":     msg.Sender,
		"message":    msg.Message,
		"created_at": msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if msg.SenderID != nil {
		v["sender_id"] = strconv.FormatInt(int64(*msg.SenderID), 10)
	}
	return v
}

func decode(v map[string]any) (domain.ChatMessage, error) {
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}
	created, err := time.Parse(time.RFC3339Nano, str("created_at"))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("created_at: %w", err)
	}
	m := domain.ChatMessage{
		ID:        str("id"),
		RoomID:    domain.RoomID(str("room_id")),
		Type:      domain.MessageType(str("type")),
		Sender:    str("sender"),
		Message:   str("message"),
		CreatedAt: created,
	}
	if raw := str("sender_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.ChatMessage{}, fmt.Errorf("sender_id: %w", err)
		}
		sid := domain.MemberID(id)
		m.SenderID = &sid
	}
	return m, nil
}
