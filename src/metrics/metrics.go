package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Collectors
// -----------------------------------------------------------------------------

var (
	RequestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total requests",
	}, []string{"method", "endpoint", "status"})

	RequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "gateway_request_latency_seconds",
		Help: "Request latency",
	}, []string{"endpoint"})

	PollCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_polls_total",
		Help: "Poll loop iterations by exchange and result",
	}, []string{"exchange", "result"})

	DroppedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_dropped_messages_total",
		Help: "Stream messages dropped because a subscriber could not keep up",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_active_subscriptions",
		Help: "Subscription keys with a running poll task",
	})
)

// -----------------------------------------------------------------------------

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
