package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
)

const defaultBaseURL = "https://api.binance.com"

// -----------------------------------------------------------------------------

type BinanceSource struct {
	SourceConfig models.MSourceConfig
	Network      interfaces.INetworkManager
	Logger       *logger.Logger
	BaseURL      string
}

// -----------------------------------------------------------------------------

func NewBinanceSource(sourceCfg models.MSourceConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *BinanceSource {
	baseURL := sourceCfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &BinanceSource{
		SourceConfig: sourceCfg,
		Network:      netMgr,
		Logger:       log,
		BaseURL:      baseURL,
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Supports(capability string) bool {
	switch capability {
	case interfaces.CapabilityQuote, interfaces.CapabilityHistorical, interfaces.CapabilityMarkets:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Quote
// -----------------------------------------------------------------------------

type binanceTicker struct {
	Symbol    string `json:"symbol"`
	BidPrice  string `json:"bidPrice"`
	AskPrice  string `json:"askPrice"`
	LastPrice string `json:"lastPrice"`
	CloseTime int64  `json:"closeTime"`
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) FetchQuote(ctx context.Context, symbol string) (*models.MQuote, error) {
	params := map[string]string{
		"symbol": toBinanceSymbol(symbol),
	}

	respBytes, err := s.Network.Get(ctx, s.BaseURL+"/api/v3/ticker/24hr", params)
	if err != nil {
		return nil, err
	}

	var t binanceTicker
	if err := json.Unmarshal(respBytes, &t); err != nil {
		return nil, fmt.Errorf("failed to parse ticker response for %s: %w", symbol, err)
	}

	bid, _ := strconv.ParseFloat(t.BidPrice, 64)
	ask, _ := strconv.ParseFloat(t.AskPrice, 64)
	last, _ := strconv.ParseFloat(t.LastPrice, 64)

	return &models.MQuote{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Timestamp: t.CloseTime,
	}, nil
}

// -----------------------------------------------------------------------------
// Historical (klines)
// -----------------------------------------------------------------------------

func (s *BinanceSource) FetchOHLCV(ctx context.Context, symbol string, since int64, limit int) ([]models.MOHLCV, error) {
	params := map[string]string{
		"symbol":   toBinanceSymbol(symbol),
		"interval": "1m",
		"limit":    strconv.Itoa(limit),
	}
	if since > 0 {
		params["startTime"] = strconv.FormatInt(since, 10)
	}

	respBytes, err := s.Network.Get(ctx, s.BaseURL+"/api/v3/klines", params)
	if err != nil {
		return nil, err
	}

	// Klines arrive as arrays of mixed numbers and numeric strings:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.Unmarshal(respBytes, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse klines response for %s: %w", symbol, err)
	}

	bars := make([]models.MOHLCV, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}

		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			continue
		}

		bars = append(bars, models.MOHLCV{
			Timestamp: openTime,
			Open:      parseStringFloat(row[1]),
			High:      parseStringFloat(row[2]),
			Low:       parseStringFloat(row[3]),
			Close:     parseStringFloat(row[4]),
			Volume:    parseStringFloat(row[5]),
		})
	}

	return bars, nil
}

// -----------------------------------------------------------------------------
// Markets
// -----------------------------------------------------------------------------

type binanceExchangeInfo struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) ListInstruments(ctx context.Context) ([]string, error) {
	respBytes, err := s.Network.Get(ctx, s.BaseURL+"/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}

	var info binanceExchangeInfo
	if err := json.Unmarshal(respBytes, &info); err != nil {
		return nil, fmt.Errorf("failed to parse exchangeInfo response: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, sym.BaseAsset+"/"+sym.QuoteAsset)
	}

	s.Logger.Debug("Binance %s: listed %d tradable instruments", s.Name(), len(symbols))
	return symbols, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// toBinanceSymbol converts "BTC/USDT" to Binance's "BTCUSDT" form.
func toBinanceSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
}

// -----------------------------------------------------------------------------

// parseStringFloat decodes a JSON value that is either a number or a numeric
// string ("42179.1") into a float64. Malformed values yield 0.
func parseStringFloat(raw json.RawMessage) float64 {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		f, _ := strconv.ParseFloat(asString, 64)
		return f
	}

	var asFloat float64
	_ = json.Unmarshal(raw, &asFloat)
	return asFloat
}
