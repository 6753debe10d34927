package wsserver

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Connection parameters.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// conn is the part of a websocket connection the server uses.
// *websocket.Conn from gofiber/contrib satisfies it.
type conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// client is one live transport session. Frames are written only by the
// write pump, so the connection never has concurrent writers.
type client struct {
	id   string
	conn conn
	send chan []byte

	// userID is set once identity is asserted. Only the read loop touches it.
	userID string

	done        chan struct{}
	pumpDone    chan struct{}
	closeOnce   sync.Once
	cleanupOnce sync.Once
}

func newClient(id string, c conn, queueSize int) *client {
	return &client{
		id:       id,
		conn:     c,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking.
// It reports false when the client is closed or its queue is full.
func (c *client) enqueue(frame []byte) (queued, full bool) {
	select {
	case <-c.done:
		return false, false
	default:
	}

	select {
	case c.send <- frame:
		return true, false
	default:
		return false, true
	}
}

// close stops the write pump, which sends a close frame, closes the
// connection and so ends the read loop.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// abort closes the connection at once, interrupting a blocked write.
func (c *client) abort() {
	c.close()
	select {
	case <-c.pumpDone:
	default:
		c.conn.Close()
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.pumpDone)
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *client) prepareRead() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}
