// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FeatureRequests counts feature calls by kind and outcome.
	FeatureRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "featbot_feature_requests_total",
		Help: "Feature requests by feature kind and outcome.",
	}, []string{"feature", "outcome"})

	// InflightProviders tracks provider executions currently holding a queue slot.
	InflightProviders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "featbot_inflight_providers",
		Help: "Provider executions currently admitted by the dispatch queue.",
	})

	// Notifications counts audit deliveries by mode (inline, document, fallback)
	// and outcome.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "featbot_notifications_total",
		Help: "Audit notification deliveries by mode and outcome.",
	}, []string{"mode", "outcome"})

	// KeepAlivePings counts self-ping attempts.
	KeepAlivePings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "featbot_keepalive_pings_total",
		Help: "Keep-alive self-ping attempts.",
	})

	// WebhookUpdates counts inbound bot messages by the action taken.
	WebhookUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "featbot_webhook_updates_total",
		Help: "Inbound webhook updates by handling action.",
	}, []string{"action"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
