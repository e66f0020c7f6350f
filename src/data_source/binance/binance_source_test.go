package binance

import (
	"context"
	"strings"
	"testing"

	"market-gateway/src/logger"
	"market-gateway/src/models"
)

// stubNetwork serves canned payloads keyed by URL path and records the last
// request's query parameters.
type stubNetwork struct {
	responses  map[string]string
	lastURL    string
	lastParams map[string]string
}

func (n *stubNetwork) Get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	n.lastURL = url
	n.lastParams = params
	for suffix, body := range n.responses {
		if strings.HasSuffix(url, suffix) {
			return []byte(body), nil
		}
	}
	return nil, context.Canceled
}

func newTestSource(network *stubNetwork) *BinanceSource {
	cfg := models.MSourceConfig{Name: "binance", Type: "binance"}
	return NewBinanceSource(cfg, network, logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func TestFetchQuote_ParsesTicker(t *testing.T) {
	network := &stubNetwork{responses: map[string]string{
		"/api/v3/ticker/24hr": `{
			"symbol": "BTCUSDT",
			"bidPrice": "42179.10000000",
			"askPrice": "42179.11000000",
			"lastPrice": "42179.10500000",
			"closeTime": 1700000000000
		}`,
	}}
	source := newTestSource(network)

	quote, err := source.FetchQuote(context.Background(), "BTC/USDT")
	if err != nil {
		t.Fatalf("FetchQuote() error = %v", err)
	}

	if quote.Symbol != "BTC/USDT" {
		t.Errorf("Symbol = %q, want BTC/USDT (gateway form, not upstream form)", quote.Symbol)
	}
	if quote.Bid != 42179.1 || quote.Ask != 42179.11 || quote.Last != 42179.105 {
		t.Errorf("prices = %v/%v/%v", quote.Bid, quote.Ask, quote.Last)
	}
	if quote.Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want 1700000000000", quote.Timestamp)
	}
	if network.lastParams["symbol"] != "BTCUSDT" {
		t.Errorf("upstream symbol = %q, want BTCUSDT", network.lastParams["symbol"])
	}
}

// -----------------------------------------------------------------------------

func TestFetchOHLCV_ParsesKlines(t *testing.T) {
	network := &stubNetwork{responses: map[string]string{
		"/api/v3/klines": `[
			[1700000000000, "100.1", "101.5", "99.8", "100.9", "12.5", 1700000059999],
			[1700000060000, "100.9", "102.0", "100.5", "101.7", "8.25", 1700000119999]
		]`,
	}}
	source := newTestSource(network)

	bars, err := source.FetchOHLCV(context.Background(), "BTC/USDT", 1700000000000, 2)
	if err != nil {
		t.Fatalf("FetchOHLCV() error = %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len(bars) = %d, want 2", len(bars))
	}

	first := bars[0]
	if first.Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want 1700000000000", first.Timestamp)
	}
	if first.Open != 100.1 || first.High != 101.5 || first.Low != 99.8 || first.Close != 100.9 {
		t.Errorf("OHLC = %v/%v/%v/%v", first.Open, first.High, first.Low, first.Close)
	}
	if first.Volume != 12.5 {
		t.Errorf("Volume = %v, want 12.5", first.Volume)
	}

	if network.lastParams["startTime"] != "1700000000000" {
		t.Errorf("startTime = %q, want 1700000000000", network.lastParams["startTime"])
	}
	if network.lastParams["limit"] != "2" {
		t.Errorf("limit = %q, want 2", network.lastParams["limit"])
	}
}

// -----------------------------------------------------------------------------

func TestFetchOHLCV_SkipsMalformedRows(t *testing.T) {
	network := &stubNetwork{responses: map[string]string{
		"/api/v3/klines": `[
			[1700000000000, "100.1", "101.5", "99.8", "100.9", "12.5"],
			["not-a-time", "1", "2", "3", "4", "5"],
			[1700000060000, "1"]
		]`,
	}}
	source := newTestSource(network)

	bars, err := source.FetchOHLCV(context.Background(), "BTC/USDT", 0, 3)
	if err != nil {
		t.Fatalf("FetchOHLCV() error = %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("len(bars) = %d, want 1 (malformed rows dropped)", len(bars))
	}
}

// -----------------------------------------------------------------------------

func TestListInstruments_FiltersNonTrading(t *testing.T) {
	network := &stubNetwork{responses: map[string]string{
		"/api/v3/exchangeInfo": `{
			"symbols": [
				{"symbol": "BTCUSDT", "status": "TRADING", "baseAsset": "BTC", "quoteAsset": "USDT"},
				{"symbol": "LUNAUSDT", "status": "BREAK", "baseAsset": "LUNA", "quoteAsset": "USDT"},
				{"symbol": "ETHUSDT", "status": "TRADING", "baseAsset": "ETH", "quoteAsset": "USDT"}
			]
		}`,
	}}
	source := newTestSource(network)

	symbols, err := source.ListInstruments(context.Background())
	if err != nil {
		t.Fatalf("ListInstruments() error = %v", err)
	}
	if len(symbols) != 2 {
		t.Fatalf("len(symbols) = %d, want 2", len(symbols))
	}
	if symbols[0] != "BTC/USDT" || symbols[1] != "ETH/USDT" {
		t.Errorf("symbols = %v, want [BTC/USDT ETH/USDT]", symbols)
	}
}

// -----------------------------------------------------------------------------

func TestToBinanceSymbol(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT": "BTCUSDT",
		"eth/usdt": "ETHUSDT",
		"BTCUSDT":  "BTCUSDT",
	}
	for in, want := range cases {
		if got := toBinanceSymbol(in); got != want {
			t.Errorf("toBinanceSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
