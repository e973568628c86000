package ws

import (
	"errors"
	"sync"

	"github.com/cwrk-planet/chat-relay/internal/chat"

	"github.com/gorilla/websocket"
)

var errQueueFull = errors.New("send queue full")

// wsConn adapts a websocket to chat.Conn. Frames go through a bounded queue
// drained by the write loop, so Send never waits on the network.
type wsConn struct {
	id     string
	ws     *websocket.Conn
	send   chan chat.Envelope
	closed chan struct{}
	once   sync.Once
}

func newWsConn(id string, ws *websocket.Conn, queueSize int) *wsConn {
	return &wsConn{
		id:     id,
		ws:     ws,
		send:   make(chan chat.Envelope, queueSize),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(env chat.Envelope) error {
	select {
	case <-c.closed:
		return chat.ErrSessionClosed
	default:
	}
	select {
	case c.send <- env:
		return nil
	default:
		return errQueueFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}
