package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for upstream HTTP requests.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with query parameters.
	// Returns the response body as bytes or an error. Network failures,
	// timeouts and upstream throttling are returned as transient errors so
	// callers can decide whether to retry.
	Get(ctx context.Context, url string, params map[string]string) ([]byte, error)
}
