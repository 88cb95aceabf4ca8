package server

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBuffer = 256

// Client is one websocket connection to the relay. Frames to deliver
// are enqueued on Send and drained by writePump, so message handling
// never blocks on a slow peer.
type Client struct {
	conn   *websocket.Conn
	board  *Board
	userID string

	Send   chan []byte
	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, board *Board) *Client {
	return &Client{
		conn:  conn,
		board: board,
		Send:  make(chan []byte, sendBuffer),
	}
}

// enqueue offers a frame to the client without blocking. Returns
// false if the client is closed or its buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// writePump drains Send onto the connection until the channel closes
// or a write fails. A write failure only ends delivery to this peer.
func (c *Client) writePump() {
	defer c.conn.Close()
	for frame := range c.Send {
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
}

// readPump feeds inbound frames to the board until the connection
// drops, then tears the session down.
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		close(c.Send)
		c.mu.Unlock()

		c.conn.Close()
		c.board.Disconnect(c)
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("websocket read", "err", err)
			}
			return
		}
		c.board.Handle(c, raw)
	}
}
