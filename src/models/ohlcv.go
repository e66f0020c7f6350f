package models

// MOHLCV represents one open/high/low/close/volume candle.
type MOHLCV struct {
	Timestamp int64   `json:"timestamp"` // Candle open time, Unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}
