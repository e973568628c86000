package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/metrics"
)

// PayloadBuilder produces the frame for one recipient session.
type PayloadBuilder func(s *Session) Envelope

// Static sends the same envelope to everyone.
func Static(env Envelope) PayloadBuilder {
	return func(*Session) Envelope { return env }
}

// Relabel replaces the sender with selfLabel on the originator's copy.
func Relabel(env Envelope, originConnID, selfLabel string) PayloadBuilder {
	return func(s *Session) Envelope {
		if s.ID() == originConnID {
			out := env
			out.Sender = selfLabel
			return out
		}
		return env
	}
}

type Report struct {
	Recipients int
	Delivered  int
	Skipped    int
	Failed     int
}

type Fanout struct {
	sessions *SessionRegistry
	members  *MembershipTable
	log      *slog.Logger
}

func NewFanout(sessions *SessionRegistry, members *MembershipTable, log *slog.Logger) *Fanout {
	return &Fanout{sessions: sessions, members: members, log: log}
}

// Deliver sends build's payload to every connection currently in roomID.
// Each delivery stands alone: a failure is logged and counted, never retried.
func (f *Fanout) Deliver(ctx context.Context, roomID domain.RoomID, build PayloadBuilder) Report {
	ids := f.members.ListMembers(roomID)
	rep := Report{Recipients: len(ids)}

	for _, id := range ids {
		s, ok := f.sessions.LookupConnectionByMember(id)
		if !ok {
			rep.Skipped++
			continue
		}
		// a stale membership entry for a session that moved rooms
		if cur, ok := s.RoomID(); !ok || cur != roomID {
			rep.Skipped++
			continue
		}

		if err := s.Conn().Send(build(s)); err != nil {
			rep.Failed++
			f.log.WarnContext(ctx, "delivery failed",
				slog.String("room", string(roomID)),
				slog.Int64("member", int64(id)),
				slog.String("conn", s.ID()),
				slog.Any("err", fmt.Errorf("%w: %v", ErrDelivery, err)),
			)
			continue
		}
		rep.Delivered++
	}

	metrics.AddDelivered(rep.Delivered)
	metrics.AddFailed(rep.Failed)
	metrics.AddSkipped(rep.Skipped)
	return rep
}
