package models

// -----------------------------------------------------------------------------
// Stream Message Types
// -----------------------------------------------------------------------------

const (
	MessageTypeTicker = "ticker"
	MessageTypeError  = "error"
)

// MStreamMessage is one frame delivered to websocket subscribers.
// Poll failures travel as MessageTypeError frames so the stream stays alive.
type MStreamMessage struct {
	Type      string  `json:"type"` // "ticker" or "error"
	Exchange  string  `json:"exchange"`
	Symbol    string  `json:"symbol"`
	Data      *MQuote `json:"data,omitempty"`
	Error     string  `json:"error,omitempty"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds, production time
}
