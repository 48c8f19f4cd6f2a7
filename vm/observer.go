package vm

import "github.com/deepnoodle-ai/opcost/op"

// Observer is an interface for observing VM execution. It complements the
// instruction timing done through WithRecorder: observers see every step,
// including instructions the profiling policy skips.
//
// Observer methods are called synchronously during execution.
// Implementations should be fast to avoid distorting timings.
type Observer interface {
	// OnStep is called before each instruction is dispatched.
	// Returns false to halt execution immediately.
	OnStep(event StepEvent) bool
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// IP is the instruction pointer (index into the instruction slice).
	IP int

	// Instruction is the instruction about to execute.
	Instruction op.Instruction

	// StackDepth is the current depth of the value stack.
	StackDepth int
}

// NoOpObserver is an Observer implementation that does nothing.
type NoOpObserver struct{}

func (NoOpObserver) OnStep(StepEvent) bool { return true }

// Ensure NoOpObserver implements Observer.
var _ Observer = NoOpObserver{}
