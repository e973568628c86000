package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/domain"
	"github.com/cwrk-planet/chat-relay/internal/metrics"
	"github.com/google/uuid"
)

const (
	DefaultSelfLabel     = "me"
	defaultAppendTimeout = 2 * time.Second
)

type Deps struct {
	Sessions *SessionRegistry
	Members  *MembershipTable
	Fanout   *Fanout

	MemberDir MemberDirectory
	RoomDir   RoomDirectory
	// MessageLog may be nil; events are then only broadcast.
	MessageLog MessageLog

	SelfLabel     string
	AppendTimeout time.Duration
	Log           *slog.Logger
}

// Dispatcher drives every session and membership transition. Dispatch is
// called synchronously from a connection's read loop, so events of one
// connection are handled in arrival order.
type Dispatcher struct {
	sessions *SessionRegistry
	members  *MembershipTable
	fanout   *Fanout

	memberDir MemberDirectory
	roomDir   RoomDirectory
	msgLog    MessageLog

	selfLabel     string
	appendTimeout time.Duration
	log           *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewDispatcher(d Deps) *Dispatcher {
	if d.SelfLabel == "" {
		d.SelfLabel = DefaultSelfLabel
	}
	if d.AppendTimeout <= 0 {
		d.AppendTimeout = defaultAppendTimeout
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Dispatcher{
		sessions:      d.Sessions,
		members:       d.Members,
		fanout:        d.Fanout,
		memberDir:     d.MemberDir,
		roomDir:       d.RoomDir,
		msgLog:        d.MessageLog,
		selfLabel:     d.SelfLabel,
		appendTimeout: d.AppendTimeout,
		log:           d.Log,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// Dispatch applies ev for session s. A returned error means the event was
// dropped without any state change; the connection stays open.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, ev Event) error {
	metrics.IncEvent(ev.Kind.String())

	var err error
	switch ev.Kind {
	case KindEnter:
		err = d.enter(ctx, s, ev)
	case KindTalk:
		err = d.talk(ctx, s, ev)
	case KindExit:
		err = d.exit(ctx, s, ev)
	case KindDisconnect:
		d.leave(ctx, s)
	default:
		err = fmt.Errorf("%w: unknown kind %d", ErrDecode, ev.Kind)
	}

	if err != nil {
		metrics.IncDropped(dropReason(err))
		d.log.WarnContext(ctx, "event dropped",
			slog.String("conn", s.ID()),
			slog.String("kind", ev.Kind.String()),
			slog.String("room", string(ev.RoomID)),
			slog.Any("err", err),
		)
	}
	metrics.SetActiveRooms(d.members.Rooms())
	return err
}

func (d *Dispatcher) enter(ctx context.Context, s *Session, ev Event) error {
	room, err := d.roomDir.GetRoom(ctx, ev.RoomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownRoom, ev.RoomID)
		}
		return fmt.Errorf("get room %s: %w", ev.RoomID, err)
	}

	m, err := d.resolve(ctx, s, ev.Sender)
	if err != nil {
		return err
	}

	if prev, had := s.bind(room.ID); had && prev != room.ID {
		d.leaveRoom(ctx, prev, m)
	}

	label := m.Name
	if d.members.Join(room.ID, m.ID) == AlreadyPresent {
		if existing, err := d.memberDir.ResolveByID(ctx, m.ID); err == nil {
			label = existing.Name
		}
	}

	env := Envelope{
		Type:    domain.MessageEnter,
		RoomID:  room.ID,
		Sender:  label,
		Message: label + " entered",
	}
	d.persist(ctx, env, m.ID)
	d.fanout.Deliver(ctx, room.ID, Relabel(env, s.ID(), d.selfLabel))
	return nil
}

// talk checks the room and body before resolving the sender, so a rejected
// Talk never binds an identity.
func (d *Dispatcher) talk(ctx context.Context, s *Session, ev Event) error {
	roomID := ev.RoomID
	if cur, ok := s.RoomID(); !ok || cur != roomID {
		return fmt.Errorf("%w: %s", ErrNotInRoom, roomID)
	}
	if strings.TrimSpace(ev.Message) == "" {
		return ErrEmptyMessage
	}

	m, err := d.resolve(ctx, s, ev.Sender)
	if err != nil {
		return err
	}

	env := Envelope{
		Type:    domain.MessageTalk,
		RoomID:  roomID,
		Sender:  m.Name,
		Message: ev.Message,
	}
	d.persist(ctx, env, m.ID)
	d.fanout.Deliver(ctx, roomID, Relabel(env, s.ID(), d.selfLabel))
	return nil
}

// exit leaves the bound room but keeps the session, so the connection can
// enter another room later.
func (d *Dispatcher) exit(ctx context.Context, s *Session, ev Event) error {
	if ev.RoomID != "" {
		if cur, ok := s.RoomID(); ok && cur != ev.RoomID {
			return fmt.Errorf("%w: %s", ErrNotInRoom, ev.RoomID)
		}
	}
	d.leave(ctx, s)
	return nil
}

// leave is shared by Exit and Disconnect. unbind hands the previous room to
// exactly one caller, which makes repeated cleanup a no-op.
func (d *Dispatcher) leave(ctx context.Context, s *Session) {
	prev, ok := s.unbind()
	if !ok {
		return
	}
	m, ok := s.Member()
	if !ok {
		return
	}
	d.leaveRoom(ctx, prev, m)
}

func (d *Dispatcher) leaveRoom(ctx context.Context, roomID domain.RoomID, m domain.Member) {
	if d.members.Leave(roomID, m.ID) != Removed {
		return
	}
	env := Envelope{
		Type:    domain.MessageClose,
		RoomID:  roomID,
		Sender:  m.Name,
		Message: m.Name + " left",
	}
	d.persist(ctx, env, m.ID)
	d.fanout.Deliver(ctx, roomID, Static(env))
}

// resolve returns the session's member, binding it from the provisional
// token on first use.
func (d *Dispatcher) resolve(ctx context.Context, s *Session, sender string) (domain.Member, error) {
	if m, ok := s.Member(); ok {
		return m, nil
	}
	token := s.Token()
	if token == "" {
		token = sender
	}
	if token == "" {
		return domain.Member{}, fmt.Errorf("%w: no sender", ErrUnknownMember)
	}

	m, err := d.memberDir.ResolveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return domain.Member{}, fmt.Errorf("%w: %s", ErrUnknownMember, token)
		}
		return domain.Member{}, fmt.Errorf("resolve member: %w", err)
	}
	s.bindMember(*m)
	bound, _ := s.Member()
	return bound, nil
}

// persist appends the event to the message log. Failures are logged and
// counted; broadcast goes ahead either way.
func (d *Dispatcher) persist(ctx context.Context, env Envelope, senderID domain.MemberID) {
	if d.msgLog == nil {
		return
	}
	msg := domain.ChatMessage{
		ID:        d.newID(),
		RoomID:    env.RoomID,
		Type:      env.Type,
		SenderID:  &senderID,
		Sender:    env.Sender,
		Message:   env.Message,
		CreatedAt: d.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, d.appendTimeout)
	defer cancel()
	if err := d.msgLog.Append(ctx, msg); err != nil {
		metrics.IncPersistFailure()
		d.log.WarnContext(ctx, "message log append failed",
			slog.String("room", string(msg.RoomID)),
			slog.String("msg_id", msg.ID),
			slog.Any("err", fmt.Errorf("%w: %v", ErrPersistence, err)),
		)
	}
}
