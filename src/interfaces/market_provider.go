package interfaces

import (
	"context"

	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Provider capabilities
// -----------------------------------------------------------------------------

const (
	CapabilityQuote      = "quote"
	CapabilityHistorical = "historical"
	CapabilityMarkets    = "markets"
)

// -----------------------------------------------------------------------------
// IMarketProvider is the contract for one upstream market data source.
// -----------------------------------------------------------------------------

type IMarketProvider interface {

	// Name returns the unique identifier of the source (the "exchange" id
	// clients address in requests).
	Name() string

	// -----------------------------------------------------------------------------

	// Supports reports whether the source can serve the given capability.
	Supports(capability string) bool

	// -----------------------------------------------------------------------------

	// FetchQuote retrieves the current quote for a symbol (e.g. "BTC/USDT").
	FetchQuote(ctx context.Context, symbol string) (*models.MQuote, error)

	// -----------------------------------------------------------------------------

	// FetchOHLCV retrieves up to limit candles for a symbol, starting at the
	// optional since timestamp (Unix milliseconds; zero means "latest window").
	FetchOHLCV(ctx context.Context, symbol string, since int64, limit int) ([]models.MOHLCV, error)

	// -----------------------------------------------------------------------------

	// ListInstruments returns the tradable symbols of the source.
	ListInstruments(ctx context.Context) ([]string, error)
}
