package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service collectors. Each instance registers on its own
// Registerer so tests can build as many routers as they like.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	ReqDuration   *prometheus.HistogramVec
	InFlight      prometheus.Gauge
	AuthAttempts  *prometheus.CounterVec
	TodoOps       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"route", "method", "status"},
		),
		ReqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request duration seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
		),
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "auth_attempts_total", Help: "Authentication attempts by method and outcome"},
			[]string{"method", "outcome"},
		),
		TodoOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "todo_operations_total", Help: "Todo operations by kind and outcome"},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.RequestsTotal, m.ReqDuration, m.InFlight, m.AuthAttempts, m.TodoOps)
	return m
}

func (m *Metrics) Auth(method, outcome string) {
	m.AuthAttempts.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) Todo(op, outcome string) {
	m.TodoOps.WithLabelValues(op, outcome).Inc()
}
