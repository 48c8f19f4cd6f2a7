package instrument

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	written *prometheus.CounterVec
	dropped *prometheus.CounterVec
	sinks   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		written: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opcost_samples_written_total",
				Help: "Total number of samples appended to sample logs",
			},
			[]string{"kind"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opcost_samples_dropped_total",
				Help: "Total number of samples dropped because the log was full",
			},
			[]string{"kind"},
		),
		sinks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "opcost_sinks_open",
				Help: "Number of open sample logs",
			},
		),
	}
	if reg == nil {
		return m
	}
	m.written = register(reg, m.written)
	m.dropped = register(reg, m.dropped)
	m.sinks = register(reg, m.sinks)
	return m
}

// register adds c to reg, reusing the collector already registered under the
// same name so several recorders can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
