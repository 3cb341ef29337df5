// Package metrics exposes the server's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomd_connections_active",
		Help: "Currently open websocket sessions.",
	})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomd_messages_total",
		Help: "Inbound messages by envelope type.",
	}, []string{"type"})

	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomd_broadcasts_total",
		Help: "Room broadcasts fanned out.",
	})

	DeliveryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomd_delivery_failures_total",
		Help: "Broadcast deliveries that failed and evicted the recipient.",
	})

	StateMergesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomd_state_merges_total",
		Help: "Room document merges applied.",
	})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
