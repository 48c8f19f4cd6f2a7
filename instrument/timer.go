package instrument

import (
	"time"

	"github.com/deepnoodle-ai/opcost/op"
)

// Timer measures a single instruction execution. Create one with
// Recorder.Start and finish it with Stop, normally via defer so the sample is
// recorded on every exit path:
//
//	defer rec.Start(ins).Stop()
//
// A nil *Timer is valid and does nothing; Start returns nil for instructions
// the policy excludes.
type Timer struct {
	rec        *Recorder
	kind       Kind
	properties []string
	start      time.Time
	stopped    bool
}

// Start begins timing ins. It returns nil when ins is not instrumented or
// when r is nil.
func (r *Recorder) Start(ins op.Instruction) *Timer {
	if r == nil {
		return nil
	}
	kind, properties, ok := r.policy.Classify(ins)
	if !ok {
		return nil
	}
	return &Timer{
		rec:        r,
		kind:       kind,
		properties: properties,
		start:      time.Now(),
	}
}

// Stop records the time elapsed since Start. Only the first call records a
// sample. Stop never fails from the caller's point of view.
func (t *Timer) Stop() {
	if t == nil || t.stopped {
		return
	}
	elapsed := time.Since(t.start)
	t.stopped = true
	t.rec.RecordSample(t.kind, t.properties, elapsed)
}

// Kind returns the kind being timed.
func (t *Timer) Kind() Kind {
	if t == nil {
		return ""
	}
	return t.kind
}

// Properties returns the properties recorded with the sample.
func (t *Timer) Properties() []string {
	if t == nil {
		return nil
	}
	return t.properties
}

// Time runs fn as the execution of ins and records its duration whether fn
// returns normally, returns an error or panics. The error from fn is returned
// unchanged and panics continue to propagate.
func (r *Recorder) Time(ins op.Instruction, fn func() error) error {
	defer r.Start(ins).Stop()
	return fn()
}
