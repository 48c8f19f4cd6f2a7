// Package instrument times individual interpreter instructions and persists
// a capped sample of per-kind execution times to CSV logs, one file per
// instruction kind. The logs feed offline cost modelling.
//
// A Recorder is created once by the host and handed to each interpreter:
//
//	rec := instrument.New(instrument.WithDir("target/metrics"))
//	defer rec.Close()
//	...
//	defer rec.Start(ins).Stop()
package instrument

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Recorder maps each instruction kind to its Sink. Sinks are created on the
// first sample of their kind and live until Close. A Recorder is safe for
// concurrent use.
//
// A process must use at most one Recorder per output directory. Two
// Recorders on the same directory each open their own Sink for a kind; rows
// are never lost, since logs are opened in append mode, but each Sink applies
// the cap on its own and the log can exceed it.
type Recorder struct {
	mu         sync.Mutex
	sinks      map[Kind]*Sink
	dirReady   bool
	closed     bool
	dir        string
	cap        int
	policy     *Policy
	logger     zerolog.Logger
	fatal      func(error)
	registerer prometheus.Registerer
	metrics    *metrics
}

// New creates a Recorder. Unless overridden, the output directory comes from
// LoadConfig and the cap is DefaultCap.
func New(options ...Option) *Recorder {
	r := &Recorder{
		sinks:  map[Kind]*Sink{},
		dir:    LoadConfig().Dir,
		cap:    DefaultCap,
		policy: DefaultPolicy,
		logger: log.Logger.With().Str("component", "opcost").Logger(),
	}
	for _, opt := range options {
		opt(r)
	}
	if r.fatal == nil {
		logger := r.logger
		r.fatal = func(err error) {
			logger.Fatal().Err(err).Msg("instruction profiling failed")
		}
	}
	r.metrics = newMetrics(r.registerer)
	return r
}

// Dir returns the output directory.
func (r *Recorder) Dir() string { return r.dir }

// Policy returns the classification policy used by Start and Time.
func (r *Recorder) Policy() *Policy { return r.policy }

// RecordSample appends one sample for kind, creating the kind's log on first
// use. Samples beyond the cap are dropped. I/O failures are passed to the
// fatal handler and never returned.
func (r *Recorder) RecordSample(kind Kind, properties []string, elapsed time.Duration) {
	sink, err := r.Sink(kind)
	if err != nil {
		r.fatal(err)
		return
	}
	if sink == nil {
		r.logger.Debug().Str("kind", string(kind)).Msg("recorder closed; sample dropped")
		r.metrics.dropped.WithLabelValues(string(kind)).Inc()
		return
	}
	n, err := sink.append(properties, elapsed)
	if err != nil {
		r.fatal(err)
		return
	}
	if n == 0 {
		r.metrics.dropped.WithLabelValues(string(kind)).Inc()
		return
	}
	r.metrics.written.WithLabelValues(string(kind)).Inc()
	if n == sink.Cap() {
		r.logFull(sink)
	}
}

// logFull logs once, from the append that filled the sink.
func (r *Recorder) logFull(s *Sink) {
	r.logger.Info().
		Str("kind", string(s.Kind())).
		Str("path", s.Path()).
		Int("cap", s.Cap()).
		Msg("sample log full")
}

// Sink returns the sink for kind, opening or creating its log if needed.
// It returns nil, nil once the recorder has been closed.
func (r *Recorder) Sink(kind Kind) (*Sink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil
	}
	if s, ok := r.sinks[kind]; ok {
		return s, nil
	}
	if !r.dirReady {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", r.dir, err)
		}
		r.dirReady = true
	}
	s, err := OpenSink(r.dir, kind, r.cap)
	if err != nil {
		return nil, err
	}
	r.sinks[kind] = s
	r.metrics.sinks.Inc()
	r.logger.Debug().
		Str("kind", string(kind)).
		Str("path", s.Path()).
		Bool("resumed", s.Resumed()).
		Int("count", s.Count()).
		Msg("opened sample log")
	return s, nil
}

// Preload opens the logs for the given kinds, or for every kind the policy
// can produce when none are given, so that configuration problems surface
// before the interpreter starts.
func (r *Recorder) Preload(kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = r.policy.Kinds()
	}
	for _, kind := range kinds {
		if _, err := r.Sink(kind); err != nil {
			return err
		}
	}
	return nil
}

// Kinds returns the kinds that currently have an open sink.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.sinks))
	for k := range r.sinks {
		kinds = append(kinds, k)
	}
	return kinds
}

// Close closes every sink. Samples recorded after Close are dropped.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	var result *multierror.Error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		r.metrics.sinks.Dec()
	}
	return result.ErrorOrNil()
}
