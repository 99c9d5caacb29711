package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instrumentation for the payment core.
type Metrics struct {
	Settlements    *prometheus.CounterVec
	GatewayLatency *prometheus.HistogramVec
	Callbacks      *prometheus.CounterVec
}

// New registers the payment core collectors on the given registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paymitra_settlements_total",
			Help: "Terminal transaction outcomes by service kind and status.",
		}, []string{"kind", "status"}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paymitra_gateway_request_seconds",
			Help:    "Latency of outbound aggregator calls.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"op"}),
		Callbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paymitra_callbacks_total",
			Help: "Inbound aggregator callbacks by reconciliation result.",
		}, []string{"result"}),
	}
}

// ObserveGateway records one outbound call. It matches the observe hook the
// gateway client accepts.
func (m *Metrics) ObserveGateway(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayLatency.WithLabelValues(op).Observe(d.Seconds())
}
