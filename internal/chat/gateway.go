package chat

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/chat-relay/internal/metrics"
)

// Gateway is the transport-facing edge of the core. A transport calls
// OnConnect once, OnFrame per inbound text frame from a single goroutine,
// and OnClose when the connection ends.
type Gateway struct {
	sessions   *SessionRegistry
	dispatcher *Dispatcher
	log        *slog.Logger
}

func NewGateway(sessions *SessionRegistry, dispatcher *Dispatcher, log *slog.Logger) *Gateway {
	return &Gateway{sessions: sessions, dispatcher: dispatcher, log: log}
}

func (g *Gateway) OnConnect(c Conn) *Session {
	s := g.sessions.Register(c)
	metrics.SetConnections(g.sessions.Len())
	g.log.Debug("connection opened", slog.String("conn", c.ID()))
	return s
}

// OnFrame decodes and dispatches one frame. Errors are per-frame; the
// caller keeps reading.
func (g *Gateway) OnFrame(ctx context.Context, c Conn, raw []byte) error {
	s, ok := g.sessions.Get(c.ID())
	if !ok {
		return ErrSessionClosed
	}

	ev, err := Decode(raw)
	if err != nil {
		metrics.IncDropped(dropReason(err))
		g.log.WarnContext(ctx, "bad frame", slog.String("conn", c.ID()), slog.Any("err", err))
		return err
	}
	s.recordToken(ev.Sender)

	return g.dispatcher.Dispatch(ctx, s, ev)
}

// OnClose forgets the session and dispatches a single Disconnect. Only the
// caller that removes the session does the cleanup.
func (g *Gateway) OnClose(ctx context.Context, c Conn) {
	s, ok := g.sessions.Remove(c.ID())
	if !ok {
		return
	}
	metrics.SetConnections(g.sessions.Len())

	_ = g.dispatcher.Dispatch(context.WithoutCancel(ctx), s, Event{Kind: KindDisconnect})
	g.log.Debug("connection closed", slog.String("conn", c.ID()))
}
