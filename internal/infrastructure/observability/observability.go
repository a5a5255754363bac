// Package observability assembles the service's Observability from the zap,
// OpenTelemetry and Prometheus adapters in its subpackages.
package observability

import (
	"maps"

	"github.com/Zhima-Mochi/minishop-inventory/internal/observability"
)

type Provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instrumentSet
}

var _ observability.Observability = (*Provider)(nil)

// New builds the provider from registered instruments, usually prometrics.Instruments.
// Nil parts and unregistered keys resolve to no-ops.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) *Provider {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Provider{
		tracer: tracer,
		logger: logger,
		metrics: instrumentSet{
			counters:   maps.Clone(counters),
			histograms: maps.Clone(histograms),
		},
	}
}

func (p *Provider) Tracer() observability.Tracer   { return p.tracer }
func (p *Provider) Logger() observability.Logger   { return p.logger }
func (p *Provider) Metrics() observability.Metrics { return p.metrics }

type instrumentSet struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (s instrumentSet) Counter(name observability.MetricKey) observability.Counter {
	if c := s.counters[name]; c != nil {
		return c
	}
	return observability.NopCounter()
}

func (s instrumentSet) Histogram(name observability.MetricKey) observability.Histogram {
	if h := s.histograms[name]; h != nil {
		return h
	}
	return observability.NopHistogram()
}
