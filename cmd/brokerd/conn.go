package main

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// wsConn adapts a *websocket.Conn to client.Connection. Writes are
// serialized with a mutex since gorilla/websocket forbids concurrent
// writers on the same connection.
type wsConn struct {
	mu     sync.Mutex
	socket *websocket.Conn
	closed bool
}

func newWSConn(socket *websocket.Conn) *wsConn {
	return &wsConn{socket: socket}
}

func (c *wsConn) Send(m *message.Message) error {
	raw, err := encodeFrame(m)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.socket.WriteMessage(websocket.TextMessage, raw)
}

func (c *wsConn) sendRaw(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.socket.WriteMessage(websocket.TextMessage, raw)
}

func (c *wsConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *wsConn) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
