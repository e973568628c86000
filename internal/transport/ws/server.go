package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/chat"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

type Config struct {
	SendQueueSize  int
	MaxMessageSize int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	// AllowedOrigins empty or containing "*" accepts any origin.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 64
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 1 << 16
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

type Server struct {
	upgrader websocket.Upgrader
	gateway  *chat.Gateway
	cfg      Config
	log      *slog.Logger

	conns sync.Map // id -> *wsConn
	wg    sync.WaitGroup

	mu      sync.Mutex
	closing bool // set by Shutdown; guards wg.Add against wg.Wait
}

func NewServer(gateway *chat.Gateway, cfg Config, log *slog.Logger) *Server {
	cfg = cfg.withDefaults()
	s := &Server{gateway: gateway, cfg: cfg, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 || lo.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return lo.Contains(s.cfg.AllowedOrigins, origin)
}

// HandleWS serves GET /ws/chat. Identity arrives in the frames, not in the
// handshake.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.wg.Done()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		s.log.Warn("ws upgrade failed", slog.Any("err", err))
		return
	}

	c := newWsConn(uuid.NewString(), ws, s.cfg.SendQueueSize)
	s.conns.Store(c.id, c)
	// Shutdown may have swept conns before the Store above.
	if s.isClosing() {
		_ = c.Close()
		s.conns.Delete(c.id)
		return
	}

	log := s.log.With(slog.String("conn", c.id), slog.String("remote", r.RemoteAddr))
	ctx := r.Context()
	s.gateway.OnConnect(c)

	go s.writeLoop(c, log)
	s.readLoop(ctx, c, log)

	s.gateway.OnClose(ctx, c)
	_ = c.Close()
	s.conns.Delete(c.id)
}

func (s *Server) readLoop(ctx context.Context, c *wsConn, log *slog.Logger) {
	c.ws.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(2 * s.cfg.PingInterval))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			logReadError(log, err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		// per-frame errors are logged by the gateway; the connection stays
		_ = s.gateway.OnFrame(ctx, c, data)
	}
}

func logReadError(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("ws frame too large")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		log.Debug("ws closed", slog.Any("err", err))
	default:
		log.Info("ws read failed", slog.Any("err", err))
	}
}

func (s *Server) writeLoop(c *wsConn, log *slog.Logger) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.ws.WriteJSON(env); err != nil {
				log.Debug("ws write failed", slog.Any("err", err))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// acquire registers a handler with wg unless Shutdown has begun.
func (s *Server) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Shutdown refuses new upgrades, sends a going-away close to every
// connection and waits for their cleanup to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.conns.Range(func(_, v any) bool {
		c := v.(*wsConn)
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
