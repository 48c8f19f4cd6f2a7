package vm

import "github.com/deepnoodle-ai/opcost/instrument"

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithRecorder times every dispatched instruction with the given recorder.
// Many VMs may share one recorder.
func WithRecorder(rec *instrument.Recorder) Option {
	return func(vm *VirtualMachine) {
		vm.recorder = rec
	}
}

// WithLocals sets the initial values of the local variables. The number of
// values determines how many locals the program may address.
func WithLocals(values ...uint64) Option {
	return func(vm *VirtualMachine) {
		vm.locals = append([]uint64(nil), values...)
	}
}

// WithGlobals sets the initial values of the global variables.
func WithGlobals(values ...uint64) Option {
	return func(vm *VirtualMachine) {
		vm.globals = append([]uint64(nil), values...)
	}
}

// WithMemoryPages sets the initial and maximum size of linear memory in
// 64 KiB pages.
func WithMemoryPages(initial, maximum int) Option {
	return func(vm *VirtualMachine) {
		vm.memory = make([]byte, initial*PageSize)
		vm.maxPages = maximum
	}
}

// WithMaxSteps limits the number of instructions a run may execute. Zero
// means no limit.
func WithMaxSteps(n int) Option {
	return func(vm *VirtualMachine) {
		vm.maxSteps = n
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution, in instructions. A value of 0 disables the check. The default
// is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}
