package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/milodocs/pagekit/errors"
)

// Registrar is the interface widgets use to register their own collectors.
type Registrar interface {
	RegisterCounter(owner, name string, counter prometheus.Counter) error
	RegisterGauge(owner, name string, gauge prometheus.Gauge) error
	RegisterHistogram(owner, name string, histogram prometheus.Histogram) error
	Unregister(owner, name string) bool
}

// Registry manages the registration and lifecycle of metrics. It owns a
// dedicated Prometheus registry so multiple runtime contexts (tests
// included) never collide on collector registration.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Core               *Metrics
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a metrics registry with core runtime metrics and Go
// runtime collectors attached.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Core:               NewMetrics(),
		registered:         make(map[string]prometheus.Collector),
	}

	for _, c := range r.Core.collectors() {
		r.prometheusRegistry.MustRegister(c)
	}
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry, for
// promhttp handlers.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// RegisterCounter registers a counter for an owner (widget or subsystem).
func (r *Registry) RegisterCounter(owner, name string, counter prometheus.Counter) error {
	return r.register(owner, name, counter)
}

// RegisterGauge registers a gauge for an owner.
func (r *Registry) RegisterGauge(owner, name string, gauge prometheus.Gauge) error {
	return r.register(owner, name, gauge)
}

// RegisterHistogram registers a histogram for an owner.
func (r *Registry) RegisterHistogram(owner, name string, histogram prometheus.Histogram) error {
	return r.register(owner, name, histogram)
}

func (r *Registry) register(owner, name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", owner, name)
	if _, exists := r.registered[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for %s", name, owner),
			"Registry", "register", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			// Same collector registered through another path; record it so
			// Unregister works symmetrically.
			r.registered[key] = already.ExistingCollector
			return nil
		}
		return errors.Wrap(err, "Registry", "register", "prometheus registration")
	}

	r.registered[key] = collector
	return nil
}

// Unregister removes an owner's collector. Returns whether anything was
// removed.
func (r *Registry) Unregister(owner, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", owner, name)
	collector, exists := r.registered[key]
	if !exists {
		return false
	}
	delete(r.registered, key)
	return r.prometheusRegistry.Unregister(collector)
}
