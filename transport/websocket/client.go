package websocket

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var errConnectionClosed = errors.New("connection is closed")

// client wraps one websocket connection. All writes go through a single
// mutex so event delivery and keep-alive pings never interleave a frame.
type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		done: make(chan struct{}),
	}
}

func (that *client) send(messageType string, payload any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return errConnectionClosed
	}

	if err := that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteJSON(message{Type: messageType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// close is idempotent and safe to call from any of the teardown paths.
func (that *client) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	close(that.done)
	_ = that.conn.Close()
}
