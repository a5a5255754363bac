// Package prometrics backs the metrics ports with prometheus/client_golang vectors.
package prometrics

import (
	"errors"
	"sync"

	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates label-keyed instruments. Asking twice for a name returns the same vector.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	namespace string
	subsystem string
	reg       prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// New registers collectors on reg; nil means the default registerer.
func New(namespace, subsystem string, reg prometheus.Registerer) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{
		namespace:  namespace,
		subsystem:  subsystem,
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cv, ok := r.counters[name]; ok {
		return counter{cv}
	}
	cv := register(r.reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys))
	r.counters[name] = cv
	return counter{cv}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hv, ok := r.histograms[name]; ok {
		return histogram{hv}
	}
	hv := register(r.reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys))
	r.histograms[name] = hv
	return histogram{hv}
}

// register reuses a collector already on reg, e.g. when two registries share the
// default registerer. Any other registration failure is a programming error.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

type counter struct{ v *prometheus.CounterVec }

func (c counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

func (c counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return c.v.With(labelMap(labels))
}

type histogram struct{ v *prometheus.HistogramVec }

func (h histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func (h histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return h.v.With(labelMap(labels))
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}
