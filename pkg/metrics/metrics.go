package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections is the number of registered connections per kind.
	Connections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "roomhub",
		Name:      "connections",
		Help:      "Registered connections.",
	}, []string{"kind"})

	// Rooms is the number of non-empty rooms.
	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roomhub",
		Name:      "rooms",
		Help:      "Rooms with at least one connection.",
	})

	MessagesIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomhub",
		Name:      "messages_received_total",
		Help:      "Complete text messages received from clients.",
	}, []string{"kind"})

	MessagesOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomhub",
		Name:      "messages_sent_total",
		Help:      "Text messages written to clients.",
	}, []string{"kind"})

	// BroadcastFanout observes the recipient count of each broadcast.
	BroadcastFanout = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "roomhub",
		Name:      "broadcast_recipients",
		Help:      "Recipients resolved per broadcast.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
