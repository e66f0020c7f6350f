package server

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"market-gateway/src/cache"
	"market-gateway/src/fetcher"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/metrics"
	"market-gateway/src/models"
	"market-gateway/src/ratelimit"
	"market-gateway/src/subscription"
)

// -----------------------------------------------------------------------------
// GatewayServer
// -----------------------------------------------------------------------------

type GatewayServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	Fetcher    *fetcher.Fetcher
	QuoteCache *cache.ResultCache
	HistCache  *cache.ResultCache
	Limiter    *ratelimit.ClientLimiter
	Subs       *subscription.Manager
	Catalog    interfaces.ICatalogStore // optional, may be nil

	httpServer *http.Server
	clients    atomic.Int64 // connected websocket clients
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewGatewayServer(
	cfg *models.MConfig,
	log *logger.Logger,
	ftch *fetcher.Fetcher,
	quoteCache, histCache *cache.ResultCache,
	limiter *ratelimit.ClientLimiter,
	subs *subscription.Manager,
	catalog interfaces.ICatalogStore,
) *GatewayServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &GatewayServer{
		Config:     cfg,
		Logger:     log,
		engine:     gin.New(),
		Fetcher:    ftch,
		QuoteCache: quoteCache,
		HistCache:  histCache,
		Limiter:    limiter,
		Subs:       subs,
		Catalog:    catalog,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestMetrics())

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *GatewayServer) setupRoutes() {
	// Unauthenticated operational endpoints
	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Market data endpoints: auth, then admission control, then cache/fetch
	api := s.engine.Group("/", s.apiKeyAuth(), s.rateLimit())
	api.GET("/ticker", s.getTicker)
	api.GET("/historical", s.getHistorical)
	api.GET("/markets", s.getMarkets)

	api.GET("/debug/subscriptions", s.getDebugSubscriptions)
	api.GET("/debug/cache", s.getDebugCache)
	api.GET("/debug/ratelimit", s.getDebugRateLimit)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *GatewayServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting gateway on %s", addr)

	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *GatewayServer) Stop() error {
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------

// Engine exposes the router for tests.
func (s *GatewayServer) Engine() *gin.Engine {
	return s.engine
}
