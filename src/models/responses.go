package models

// -----------------------------------------------------------------------------
// REST Response Shapes
// -----------------------------------------------------------------------------

type MTickerResponse struct {
	Exchange  string  `json:"exchange"`
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Datetime  string  `json:"datetime"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
}

type MHistoricalResponse struct {
	Exchange string   `json:"exchange"`
	Symbol   string   `json:"symbol"`
	OHLCV    []MOHLCV `json:"ohlcv"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
}

type MMarketsResponse struct {
	Exchange string   `json:"exchange"`
	Markets  []string `json:"markets"`
}

type MErrorResponse struct {
	Detail string `json:"detail"`
}
