package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"market-gateway/src/models"
	"market-gateway/src/subscription"
)

// -----------------------------------------------------------------------------
// WebSocket Handler
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

// handleWebSocket upgrades the connection and ties its lifetime to one
// subscription key: subscribe on connect, unsubscribe when the read pump
// detects the disconnect.
func (s *GatewayServer) handleWebSocket(c *gin.Context) {
	exchange := c.Query("exchange")
	symbol := c.Query("symbol")
	if exchange == "" || symbol == "" {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "exchange and symbol are required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := NewClient(conn, s.Logger)
	key := subscription.SubscriptionKey{Exchange: exchange, Symbol: symbol}

	s.clients.Add(1)
	s.Subs.Subscribe(key, client)

	go client.writePump()

	// Block on the read pump; returning means the client is gone.
	client.readPump()

	s.Subs.Unsubscribe(key, client)
	close(client.done)
	s.clients.Add(-1)
}
