package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Option is a configuration function for a Recorder.
type Option func(*Recorder)

// WithConfig applies settings loaded with LoadConfig.
func WithConfig(cfg Config) Option {
	return func(r *Recorder) {
		if cfg.Dir != "" {
			r.dir = cfg.Dir
		}
	}
}

// WithDir sets the output directory, overriding the environment.
func WithDir(dir string) Option {
	return func(r *Recorder) {
		r.dir = dir
	}
}

// WithCap sets the maximum number of samples kept per kind. The default is
// DefaultCap.
func WithCap(cap int) Option {
	return func(r *Recorder) {
		r.cap = cap
	}
}

// WithPolicy replaces DefaultPolicy for instructions passed to Start and Time.
func WithPolicy(policy *Policy) Option {
	return func(r *Recorder) {
		r.policy = policy
	}
}

// WithLogger sets the logger used for sink lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithFatalHandler sets the function called when a sample log cannot be
// created, resumed or written. The default logs the error at fatal level,
// which exits the process. A handler that returns causes the sample to be
// dropped.
func WithFatalHandler(fn func(error)) Option {
	return func(r *Recorder) {
		r.fatal = fn
	}
}

// WithRegisterer registers the recorder's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Recorder) {
		r.registerer = reg
	}
}
