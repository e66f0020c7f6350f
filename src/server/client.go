package server

import (
	"time"

	"github.com/gorilla/websocket"

	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// Buffered so the poll loop's non-blocking Deliver absorbs short bursts
	sendBufferSize = 256
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

// Client is one websocket subscriber. It implements interfaces.ISubscriber:
// the subscription manager hands frames to Deliver, the write pump drains
// them onto the wire.
type Client struct {
	conn   *websocket.Conn
	logger *logger.Logger
	send   chan *models.MStreamMessage
	done   chan struct{}
}

// -----------------------------------------------------------------------------

func NewClient(conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		logger: log,
		send:   make(chan *models.MStreamMessage, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// Deliver queues a message without blocking. A full buffer means this client
// cannot keep up; the frame is dropped for this round.
func (c *Client) Deliver(msg *models.MStreamMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// readPump - consumes client frames to keep the connection alive
// Acts as a watchdog for the connection
// -----------------------------------------------------------------------------

func (c *Client) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Inbound payloads are keep-alives only; content is ignored.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Info("WebSocket error: %v", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
