package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/tckz/go-redis-visits/internal/store"
)

var _ store.Observer = (*Metrics)(nil)

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	storeOps *prometheus.HistogramVec
}

func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visits_requests_total",
		Help: "Number of counter requests by result",
	}, []string{"result"})
	c, err := register(registry, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to register requests metric: %w", err)
	}
	m.requests = c.(*prometheus.CounterVec)

	storeOps := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visits_store_op_duration_seconds",
		Help:    "Time taken by store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "status"})
	c, err = register(registry, storeOps)
	if err != nil {
		return nil, fmt.Errorf("failed to register store metric: %w", err)
	}
	m.storeOps = c.(*prometheus.HistogramVec)

	return m, nil
}

func register(registry *prometheus.Registry, c prometheus.Collector) (prometheus.Collector, error) {
	if err := registry.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func status(err error) string {
	return lo.Ternary(err == nil, "ok", "error")
}

func (m *Metrics) ObserveRequest(err error) {
	m.requests.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) ObserveOp(op string, d time.Duration, err error) {
	m.storeOps.WithLabelValues(op, status(err)).Observe(d.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
