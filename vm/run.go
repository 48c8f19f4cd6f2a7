package vm

import (
	"context"

	"github.com/deepnoodle-ai/opcost/op"
)

// Run the given program in a new Virtual Machine and return the final value
// stack, bottom first.
func Run(ctx context.Context, code []op.Instruction, options ...Option) ([]uint64, error) {
	machine := New(code, options...)
	if err := machine.Run(ctx); err != nil {
		return nil, err
	}
	return machine.Stack(), nil
}
