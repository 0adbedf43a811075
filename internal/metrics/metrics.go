// Package metrics holds the prometheus collectors of the gateway.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Refresh outcomes.
const (
	RefreshRefreshed      = "refreshed"
	RefreshReused         = "reused"
	RefreshFailed         = "failed"
	RefreshNoRefreshToken = "no_refresh_token"
	RefreshDiscarded      = "discarded"
)

var (
	// TokenRefreshes counts renewals by outcome.
	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_token_refreshes_total",
		Help: "Access token renewals by outcome",
	}, []string{"outcome"})

	// Logins counts logins by origin classification.
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_logins_total",
		Help: "Successful logins by origin classification",
	}, []string{"classification"})

	// Callbacks counts handoff callbacks by result.
	Callbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_auth_callbacks_total",
		Help: "Cross-origin handoff callbacks by result",
	}, []string{"result"})

	// HTTPRequests counts requests served by the gateway.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_http_requests_total",
		Help: "HTTP requests served by route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_http_request_duration_seconds",
		Help:    "Latency of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Register adds every collector to reg (prometheus.DefaultRegisterer when nil) and
// returns the /metrics handler. Registering twice with the same registry is fine.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{TokenRefreshes, Logins, Callbacks, HTTPRequests, HTTPDuration} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return nil, err
			}
		}
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}
