package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operations counts listing engine operations by outcome.
type Operations struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
}

// NewOperations registers the counters on a private registry so several
// instances can coexist in one process.
func NewOperations() *Operations {
	registry := prometheus.NewRegistry()
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bazaar",
		Subsystem: "listing_engine",
		Name:      "operations_total",
		Help:      "Listing engine operations by operation and outcome.",
	}, []string{"operation", "outcome"})
	registry.MustRegister(total)
	registry.MustRegister(collectors.NewGoCollector())
	return &Operations{registry: registry, total: total}
}

func (o *Operations) ObserveOperation(operation string, outcome string) {
	o.total.WithLabelValues(operation, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Operations) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

