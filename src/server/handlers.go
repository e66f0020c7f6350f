package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"market-gateway/src/helpers"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Ticker
// -----------------------------------------------------------------------------

func (s *GatewayServer) getTicker(c *gin.Context) {
	exchange := c.Query("exchange")
	symbol := c.Query("symbol")
	if exchange == "" || symbol == "" {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "exchange and symbol are required"})
		return
	}

	cacheKey := "ticker::" + exchange + "::" + symbol
	value, err := s.QuoteCache.GetOrFetch(cacheKey, func() (interface{}, error) {
		return s.Fetcher.FetchQuote(c.Request.Context(), exchange, symbol)
	})
	if err != nil {
		s.writeError(c, "ticker", err)
		return
	}

	quote := value.(*models.MQuote)
	c.JSON(http.StatusOK, models.MTickerResponse{
		Exchange:  exchange,
		Symbol:    symbol,
		Timestamp: quote.Timestamp,
		Datetime:  time.UnixMilli(quote.Timestamp).UTC().Format(time.RFC3339),
		Bid:       quote.Bid,
		Ask:       quote.Ask,
		Last:      quote.Last,
	})
}

// -----------------------------------------------------------------------------
// Historical
// -----------------------------------------------------------------------------

func (s *GatewayServer) getHistorical(c *gin.Context) {
	exchange := c.Query("exchange")
	symbol := c.Query("symbol")
	if exchange == "" || symbol == "" {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "exchange and symbol are required"})
		return
	}

	limit, err := intQuery(c, "limit", 100)
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "limit must be between 1 and 1000"})
		return
	}
	page, err := intQuery(c, "page", 1)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "page must be >= 1"})
		return
	}
	since, err := int64Query(c, "since", 0)
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "since must be a millisecond timestamp"})
		return
	}

	// Over-fetch a multiple of the page size so nearby pages are served from
	// the same cached window, bounded so large pages cannot balloon upstream
	// calls. Pages past the fetched window come back empty.
	fetchLimit := limit * 5
	if fetchLimit > s.Config.MaxHistoricalFetch {
		fetchLimit = s.Config.MaxHistoricalFetch
	}

	cacheKey := fmt.Sprintf("hist::%s::%s::%d::%d", exchange, symbol, since, limit)
	value, err := s.HistCache.GetOrFetch(cacheKey, func() (interface{}, error) {
		return s.Fetcher.FetchOHLCV(c.Request.Context(), exchange, symbol, since, fetchLimit)
	})
	if err != nil {
		s.writeError(c, "historical", err)
		return
	}

	bars := value.([]models.MOHLCV)

	// Pagination: page starts at 1
	start := (page - 1) * limit
	end := start + limit
	if start > len(bars) {
		start = len(bars)
	}
	if end > len(bars) {
		end = len(bars)
	}

	c.JSON(http.StatusOK, models.MHistoricalResponse{
		Exchange: exchange,
		Symbol:   symbol,
		OHLCV:    bars[start:end],
		Page:     page,
		Limit:    limit,
	})
}

// -----------------------------------------------------------------------------
// Markets
// -----------------------------------------------------------------------------

func (s *GatewayServer) getMarkets(c *gin.Context) {
	exchange := c.Query("exchange")
	if exchange == "" {
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: "exchange is required"})
		return
	}

	cacheKey := "markets::" + exchange
	value, err := s.HistCache.GetOrFetch(cacheKey, func() (interface{}, error) {
		symbols, err := s.Fetcher.ListInstruments(c.Request.Context(), exchange)
		if err != nil {
			return nil, err
		}
		s.persistCatalog(exchange, symbols)
		return symbols, nil
	})
	if err != nil {
		// Upstream trouble: fall back to the last persisted catalog, if any.
		if helpers.IsTransient(err) && s.Catalog != nil {
			if symbols, loadErr := s.Catalog.LoadInstruments(exchange); loadErr == nil && len(symbols) > 0 {
				s.Logger.Warning("Serving stored instrument catalog for %s, upstream failed: %v", exchange, err)
				c.JSON(http.StatusOK, models.MMarketsResponse{Exchange: exchange, Markets: symbols})
				return
			}
		}
		s.writeError(c, "markets", err)
		return
	}

	c.JSON(http.StatusOK, models.MMarketsResponse{Exchange: exchange, Markets: value.([]string)})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) persistCatalog(exchange string, symbols []string) {
	if s.Catalog == nil {
		return
	}
	if err := s.Catalog.SaveInstruments(exchange, symbols); err != nil {
		s.Logger.Error("Failed to persist instrument catalog for %s: %v", exchange, err)
	}
}

// -----------------------------------------------------------------------------
// Health / Debug
// -----------------------------------------------------------------------------

func (s *GatewayServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"connections":          s.clients.Load(),
		"active_subscriptions": len(s.Subs.ActiveKeys()),
	})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getDebugSubscriptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"subscriptions": s.Subs.ActiveKeys()})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getDebugCache(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"quote_entries":      s.QuoteCache.Len(),
		"historical_entries": s.HistCache.Len(),
	})
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) getDebugRateLimit(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracked_clients": s.Limiter.Len()})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// writeError maps the error taxonomy onto HTTP statuses: client-addressable
// failures are 4xx, exhausted upstream failures are 502.
func (s *GatewayServer) writeError(c *gin.Context, operation string, err error) {
	var unsupportedSource *helpers.UnsupportedSourceError
	var unsupportedCap *helpers.UnsupportedCapabilityError

	switch {
	case errors.As(err, &unsupportedSource), errors.As(err, &unsupportedCap):
		c.JSON(http.StatusBadRequest, models.MErrorResponse{Detail: err.Error()})
	default:
		s.Logger.Error("Failed to fetch %s: %v", operation, err)
		c.JSON(http.StatusBadGateway, models.MErrorResponse{
			Detail: fmt.Sprintf("Failed to fetch %s: %v", operation, err),
		})
	}
}

// -----------------------------------------------------------------------------

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// -----------------------------------------------------------------------------

func int64Query(c *gin.Context, name string, fallback int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
