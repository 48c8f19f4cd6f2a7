package vm

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/opcost/op"
)

var (
	// ErrHalted is returned when an observer stops execution.
	ErrHalted = errors.New("execution halted by observer")

	// ErrStepLimit is returned when a program exceeds the configured
	// instruction budget.
	ErrStepLimit = errors.New("step limit exceeded")
)

// TrapKind represents the category of a trap.
type TrapKind int

const (
	// TrapUnreachable indicates an Unreachable instruction was executed.
	TrapUnreachable TrapKind = iota
	// TrapDivisionByZero indicates an integer division or remainder by zero.
	TrapDivisionByZero
	// TrapIntegerOverflow indicates a signed division overflow.
	TrapIntegerOverflow
	// TrapStackOverflow indicates the value stack is full.
	TrapStackOverflow
	// TrapStackUnderflow indicates an instruction needed more operands than
	// the stack held.
	TrapStackUnderflow
	// TrapMemoryOutOfBounds indicates a load or store outside linear memory.
	TrapMemoryOutOfBounds
	// TrapInvalidIndex indicates a local, global or branch target out of range.
	TrapInvalidIndex
	// TrapUnsupported indicates an instruction this interpreter does not run.
	TrapUnsupported
)

// String returns the string representation of the trap kind.
func (k TrapKind) String() string {
	switch k {
	case TrapUnreachable:
		return "unreachable"
	case TrapDivisionByZero:
		return "integer divide by zero"
	case TrapIntegerOverflow:
		return "integer overflow"
	case TrapStackOverflow:
		return "stack overflow"
	case TrapStackUnderflow:
		return "stack underflow"
	case TrapMemoryOutOfBounds:
		return "out of bounds memory access"
	case TrapInvalidIndex:
		return "invalid index"
	case TrapUnsupported:
		return "unsupported instruction"
	default:
		return "trap"
	}
}

// Trap is the error returned when execution of an instruction fails.
type Trap struct {
	Kind        TrapKind
	IP          int
	Instruction op.Instruction
}

// Error implements the error interface.
func (t *Trap) Error() string {
	return fmt.Sprintf("trap: %s at %d (%s)", t.Kind, t.IP, t.Instruction)
}

// Is matches traps by kind, so errors.Is(err, &Trap{Kind: TrapUnreachable})
// works regardless of position.
func (t *Trap) Is(target error) bool {
	other, ok := target.(*Trap)
	return ok && other.Kind == t.Kind
}
