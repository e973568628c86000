package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/domain"
)

type fakeConn struct {
	id string

	mu   sync.Mutex
	sent []Envelope
	err  error
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) failWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *fakeConn) frames() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope(nil), c.sent...)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type fakeDirectory struct {
	members map[string]domain.Member
	rooms   map[domain.RoomID]domain.Room
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members: map[string]domain.Member{
			"alice@example.com": {ID: 1, Email: "alice@example.com", Name: "alice"},
			"bob@example.com":   {ID: 2, Email: "bob@example.com", Name: "bob"},
			"carol@example.com": {ID: 3, Email: "carol@example.com", Name: "carol"},
		},
		rooms: map[domain.RoomID]domain.Room{
			"R1": {ID: "R1", Name: "general"},
			"R2": {ID: "R2", Name: "random"},
		},
	}
}

func (d *fakeDirectory) ResolveByToken(_ context.Context, token string) (*domain.Member, error) {
	m, ok := d.members[token]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return &m, nil
}

func (d *fakeDirectory) ResolveByID(_ context.Context, id domain.MemberID) (*domain.Member, error) {
	for _, m := range d.members {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

func (d *fakeDirectory) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	r, ok := d.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &r, nil
}

type fakeLog struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
	err  error
}

func (l *fakeLog) Append(_ context.Context, msg domain.ChatMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.msgs = append(l.msgs, msg)
	return nil
}

func (l *fakeLog) all() []domain.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ChatMessage(nil), l.msgs...)
}

var errBroken = errors.New("broken pipe")

type harness struct {
	sessions *SessionRegistry
	members  *MembershipTable
	dir      *fakeDirectory
	log      *fakeLog
	disp     *Dispatcher
	gw       *Gateway
}

func newHarness() *harness {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		sessions: NewSessionRegistry(),
		members:  NewMembershipTable(),
		dir:      newFakeDirectory(),
		log:      &fakeLog{},
	}
	h.disp = NewDispatcher(Deps{
		Sessions:   h.sessions,
		Members:    h.members,
		Fanout:     NewFanout(h.sessions, h.members, quiet),
		MemberDir:  h.dir,
		RoomDir:    h.dir,
		MessageLog: h.log,
		Log:        quiet,
	})
	h.gw = NewGateway(h.sessions, h.disp, quiet)
	return h
}

func (h *harness) connect(id string) *fakeConn {
	c := newFakeConn(id)
	h.gw.OnConnect(c)
	return c
}

func (h *harness) send(c *fakeConn, frame string) error {
	return h.gw.OnFrame(context.Background(), c, []byte(frame))
}
