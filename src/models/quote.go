package models

// MQuote represents a point-in-time price snapshot for one instrument.
type MQuote struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
}
