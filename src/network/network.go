package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"market-gateway/src/helpers"
	"market-gateway/src/logger"
	"market-gateway/src/models"
)

const defaultUserAgent = "market-gateway/1.0"

// -----------------------------------------------------------------------------

// NetworkManager performs upstream HTTP requests with a shared timeout client
// and classifies failures into transient vs permanent. Retrying is the
// fetcher's job, not this layer's.
type NetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MConfig, log *logger.Logger) *NetworkManager {
	return &NetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{
			Timeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
		},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with query parameters.
func (nm *NetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqUrl, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqUrl.Query()
	for k, v := range params {
		q.Add(k, v)
	}
	reqUrl.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqUrl.String(), nil)
	if err != nil {
		return nil, err
	}

	ua := nm.Config.Network.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := nm.Client.Do(req)
	if err != nil {
		// Connection failures and client timeouts are retryable.
		return nil, helpers.NewTransientError("request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, helpers.NewTransientError("failed to read response body", err)
		}
		return body, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 418:
		// 418 is Binance's ban status for repeat offenders.
		nm.Logger.Warning("Upstream throttled request (%d): %s", resp.StatusCode, reqUrl.Host)
		return nil, helpers.NewTransientError(fmt.Sprintf("upstream rate limited (status %d)", resp.StatusCode), nil)

	case resp.StatusCode >= 500:
		return nil, helpers.NewTransientError(fmt.Sprintf("upstream error (status %d)", resp.StatusCode), nil)

	default:
		// Remaining 4xx statuses mean the request itself is wrong; retrying
		// will not help.
		return nil, fmt.Errorf("bad status: %d", resp.StatusCode)
	}
}
