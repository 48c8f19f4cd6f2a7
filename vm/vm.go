// Package vm provides a small stack-based VirtualMachine for the opcost
// instruction set. It runs integer programs and, when given a Recorder,
// times each dispatched instruction.
package vm

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/deepnoodle-ai/opcost/instrument"
	"github.com/deepnoodle-ai/opcost/op"
)

const (
	MaxStackDepth = 1024
	PageSize      = 64 * 1024

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

type VirtualMachine struct {
	ip       int // instruction pointer
	sp       int // stack pointer
	code     []op.Instruction
	stack    [MaxStackDepth]uint64
	locals   []uint64
	globals  []uint64
	memory   []byte
	maxPages int
	running  bool
	runMutex sync.Mutex

	maxSteps             int
	contextCheckInterval int

	// recorder times each instruction. If nil, nothing is timed.
	recorder *instrument.Recorder

	// observer receives a callback before each instruction. If nil, no
	// callbacks are made.
	observer Observer
}

// New creates a new Virtual Machine for the given program.
func New(code []op.Instruction, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		sp:                   -1,
		code:                 code,
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

func (vm *VirtualMachine) start() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	vm.running = true
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// Run executes the program from the first instruction until it returns,
// runs off the end, or traps. The value stack is kept for inspection.
func (vm *VirtualMachine) Run(ctx context.Context) (err error) {
	if err := vm.start(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if trap, ok := r.(*Trap); ok {
				err = trap
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
		vm.stop()
	}()
	vm.ip = 0
	vm.sp = -1
	return vm.eval(ctx)
}

func (vm *VirtualMachine) eval(ctx context.Context) error {
	doneChan := ctx.Done()
	checkInterval := vm.contextCheckInterval
	var instructionCount, steps int

	for vm.ip >= 0 && vm.ip < len(vm.code) {
		if checkInterval > 0 && doneChan != nil {
			instructionCount++
			if instructionCount >= checkInterval {
				instructionCount = 0
				select {
				case <-doneChan:
					return ctx.Err()
				default:
				}
			}
		}
		if vm.maxSteps > 0 {
			if steps >= vm.maxSteps {
				return ErrStepLimit
			}
			steps++
		}

		ins := vm.code[vm.ip]
		if vm.observer != nil {
			event := StepEvent{IP: vm.ip, Instruction: ins, StackDepth: vm.sp + 1}
			if !vm.observer.OnStep(event) {
				return ErrHalted
			}
		}
		if done := vm.step(ins); done {
			return nil
		}
	}
	return nil
}

// step dispatches one instruction under a profiling timer. The timer is
// stopped on return and when the instruction traps. It reports whether the
// program returned.
func (vm *VirtualMachine) step(ins op.Instruction) bool {
	defer vm.recorder.Start(ins).Stop()

	ip := vm.ip
	// Advance before executing; branches overwrite the pointer.
	vm.ip++

	switch ins.Code {
	case op.Unreachable:
		vm.trap(TrapUnreachable, ip, ins)
	case op.Br:
		vm.jump(ins.Target, ip, ins)
	case op.BrIfEqz:
		if vm.pop() == 0 {
			vm.jump(ins.Target, ip, ins)
		}
	case op.BrIfNez:
		if vm.pop() != 0 {
			vm.jump(ins.Target, ip, ins)
		}
	case op.BrTable:
		if len(ins.Targets) == 0 {
			vm.trap(TrapInvalidIndex, ip, ins)
		}
		idx := uint32(vm.pop())
		if int(idx) >= len(ins.Targets)-1 {
			idx = uint32(len(ins.Targets) - 1)
		}
		vm.jump(ins.Targets[idx], ip, ins)
	case op.Return:
		vm.dropKeep(ins.DropKeep)
		return true
	case op.Drop:
		vm.pop()
	case op.Select:
		cond := vm.pop()
		b := vm.pop()
		a := vm.pop()
		if cond != 0 {
			vm.push(a)
		} else {
			vm.push(b)
		}

	case op.GetLocal:
		vm.push(*vm.variable(vm.locals, ip, ins))
	case op.SetLocal:
		*vm.variable(vm.locals, ip, ins) = vm.pop()
	case op.TeeLocal:
		*vm.variable(vm.locals, ip, ins) = vm.peek()
	case op.GetGlobal:
		vm.push(*vm.variable(vm.globals, ip, ins))
	case op.SetGlobal:
		*vm.variable(vm.globals, ip, ins) = vm.pop()

	case op.I32Const:
		vm.push(uint64(uint32(ins.Operand)))
	case op.I64Const:
		vm.push(uint64(ins.Operand))

	case op.I32Load, op.I32Load8S, op.I32Load8U, op.I32Load16S, op.I32Load16U,
		op.I64Load, op.I64Load8S, op.I64Load8U, op.I64Load16S, op.I64Load16U,
		op.I64Load32S, op.I64Load32U:
		vm.load(ip, ins)
	case op.I32Store, op.I32Store8, op.I32Store16,
		op.I64Store, op.I64Store8, op.I64Store16, op.I64Store32:
		vm.store(ip, ins)
	case op.CurrentMemory:
		vm.push(uint64(len(vm.memory) / PageSize))
	case op.GrowMemory:
		delta := int(uint32(vm.pop()))
		pages := len(vm.memory) / PageSize
		if pages+delta > vm.maxPages {
			vm.push(uint64(math.MaxUint32))
		} else {
			vm.memory = append(vm.memory, make([]byte, delta*PageSize)...)
			vm.push(uint64(pages))
		}

	case op.I32Eqz:
		vm.push(boolean(uint32(vm.pop()) == 0))
	case op.I64Eqz:
		vm.push(boolean(vm.pop() == 0))
	case op.I32Eq, op.I32Ne, op.I32LtS, op.I32LtU, op.I32GtS, op.I32GtU,
		op.I32LeS, op.I32LeU, op.I32GeS, op.I32GeU:
		b, a := uint32(vm.pop()), uint32(vm.pop())
		vm.push(boolean(compare32(ins.Code, a, b)))
	case op.I64Eq, op.I64Ne, op.I64LtS, op.I64LtU, op.I64GtS, op.I64GtU,
		op.I64LeS, op.I64LeU, op.I64GeS, op.I64GeU:
		b, a := vm.pop(), vm.pop()
		vm.push(boolean(compare64(ins.Code, a, b)))

	case op.I32Clz:
		vm.push(uint64(bits.LeadingZeros32(uint32(vm.pop()))))
	case op.I32Ctz:
		vm.push(uint64(bits.TrailingZeros32(uint32(vm.pop()))))
	case op.I32Popcnt:
		vm.push(uint64(bits.OnesCount32(uint32(vm.pop()))))
	case op.I64Clz:
		vm.push(uint64(bits.LeadingZeros64(vm.pop())))
	case op.I64Ctz:
		vm.push(uint64(bits.TrailingZeros64(vm.pop())))
	case op.I64Popcnt:
		vm.push(uint64(bits.OnesCount64(vm.pop())))
	case op.I32Add, op.I32Sub, op.I32Mul, op.I32DivS, op.I32DivU, op.I32RemS,
		op.I32RemU, op.I32And, op.I32Or, op.I32Xor, op.I32Shl, op.I32ShrS,
		op.I32ShrU, op.I32Rotl, op.I32Rotr:
		b, a := uint32(vm.pop()), uint32(vm.pop())
		vm.push(uint64(vm.arith32(ip, ins, a, b)))
	case op.I64Add, op.I64Sub, op.I64Mul, op.I64DivS, op.I64DivU, op.I64RemS,
		op.I64RemU, op.I64And, op.I64Or, op.I64Xor, op.I64Shl, op.I64ShrS,
		op.I64ShrU, op.I64Rotl, op.I64Rotr:
		b, a := vm.pop(), vm.pop()
		vm.push(vm.arith64(ip, ins, a, b))

	case op.I32WrapI64:
		vm.push(uint64(uint32(vm.pop())))
	case op.I64ExtendSI32:
		vm.push(uint64(int64(int32(vm.pop()))))
	case op.I64ExtendUI32:
		vm.push(uint64(uint32(vm.pop())))

	default:
		vm.trap(TrapUnsupported, ip, ins)
	}
	return false
}

func (vm *VirtualMachine) trap(kind TrapKind, ip int, ins op.Instruction) {
	panic(&Trap{Kind: kind, IP: ip, Instruction: ins})
}

func (vm *VirtualMachine) jump(target op.Target, ip int, ins op.Instruction) {
	if target.DstPC < 0 || target.DstPC > len(vm.code) {
		vm.trap(TrapInvalidIndex, ip, ins)
	}
	vm.dropKeep(target.DropKeep)
	vm.ip = target.DstPC
}

// dropKeep moves the top Keep values down over the Drop values beneath them.
func (vm *VirtualMachine) dropKeep(dk op.DropKeep) {
	drop, keep := int(dk.Drop), int(dk.Keep)
	if drop+keep > vm.sp+1 {
		vm.trap(TrapStackUnderflow, vm.ip-1, vm.code[vm.ip-1])
	}
	if drop == 0 {
		return
	}
	base := vm.sp + 1 - keep
	copy(vm.stack[base-drop:], vm.stack[base:vm.sp+1])
	vm.sp -= drop
}

func (vm *VirtualMachine) variable(vars []uint64, ip int, ins op.Instruction) *uint64 {
	if ins.Operand < 0 || ins.Operand >= int64(len(vars)) {
		vm.trap(TrapInvalidIndex, ip, ins)
	}
	return &vars[ins.Operand]
}

// effectiveAddress pops the base address and returns the byte range for an
// access of size bytes.
func (vm *VirtualMachine) effectiveAddress(ip int, ins op.Instruction, size int) []byte {
	addr := uint64(uint32(vm.pop())) + uint64(ins.Operand)
	if ins.Operand < 0 || addr+uint64(size) > uint64(len(vm.memory)) {
		vm.trap(TrapMemoryOutOfBounds, ip, ins)
	}
	return vm.memory[addr : addr+uint64(size)]
}

func (vm *VirtualMachine) load(ip int, ins op.Instruction) {
	le := binary.LittleEndian
	switch ins.Code {
	case op.I32Load:
		vm.push(uint64(le.Uint32(vm.effectiveAddress(ip, ins, 4))))
	case op.I64Load:
		vm.push(le.Uint64(vm.effectiveAddress(ip, ins, 8)))
	case op.I32Load8S:
		vm.push(uint64(uint32(int32(int8(vm.effectiveAddress(ip, ins, 1)[0])))))
	case op.I32Load8U, op.I64Load8U:
		vm.push(uint64(vm.effectiveAddress(ip, ins, 1)[0]))
	case op.I32Load16S:
		vm.push(uint64(uint32(int32(int16(le.Uint16(vm.effectiveAddress(ip, ins, 2)))))))
	case op.I32Load16U, op.I64Load16U:
		vm.push(uint64(le.Uint16(vm.effectiveAddress(ip, ins, 2))))
	case op.I64Load8S:
		vm.push(uint64(int64(int8(vm.effectiveAddress(ip, ins, 1)[0]))))
	case op.I64Load16S:
		vm.push(uint64(int64(int16(le.Uint16(vm.effectiveAddress(ip, ins, 2))))))
	case op.I64Load32S:
		vm.push(uint64(int64(int32(le.Uint32(vm.effectiveAddress(ip, ins, 4))))))
	case op.I64Load32U:
		vm.push(uint64(le.Uint32(vm.effectiveAddress(ip, ins, 4))))
	}
}

func (vm *VirtualMachine) store(ip int, ins op.Instruction) {
	le := binary.LittleEndian
	value := vm.pop()
	switch ins.Code {
	case op.I32Store, op.I64Store32:
		le.PutUint32(vm.effectiveAddress(ip, ins, 4), uint32(value))
	case op.I64Store:
		le.PutUint64(vm.effectiveAddress(ip, ins, 8), value)
	case op.I32Store8, op.I64Store8:
		vm.effectiveAddress(ip, ins, 1)[0] = byte(value)
	case op.I32Store16, op.I64Store16:
		le.PutUint16(vm.effectiveAddress(ip, ins, 2), uint16(value))
	}
}

func (vm *VirtualMachine) arith32(ip int, ins op.Instruction, a, b uint32) uint32 {
	switch ins.Code {
	case op.I32Add:
		return a + b
	case op.I32Sub:
		return a - b
	case op.I32Mul:
		return a * b
	case op.I32DivS:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		if int32(a) == math.MinInt32 && int32(b) == -1 {
			vm.trap(TrapIntegerOverflow, ip, ins)
		}
		return uint32(int32(a) / int32(b))
	case op.I32DivU:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		return a / b
	case op.I32RemS:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		if int32(b) == -1 {
			return 0
		}
		return uint32(int32(a) % int32(b))
	case op.I32RemU:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		return a % b
	case op.I32And:
		return a & b
	case op.I32Or:
		return a | b
	case op.I32Xor:
		return a ^ b
	case op.I32Shl:
		return a << (b & 31)
	case op.I32ShrS:
		return uint32(int32(a) >> (b & 31))
	case op.I32ShrU:
		return a >> (b & 31)
	case op.I32Rotl:
		return bits.RotateLeft32(a, int(b&31))
	case op.I32Rotr:
		return bits.RotateLeft32(a, -int(b&31))
	}
	return 0
}

func (vm *VirtualMachine) arith64(ip int, ins op.Instruction, a, b uint64) uint64 {
	switch ins.Code {
	case op.I64Add:
		return a + b
	case op.I64Sub:
		return a - b
	case op.I64Mul:
		return a * b
	case op.I64DivS:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		if int64(a) == math.MinInt64 && int64(b) == -1 {
			vm.trap(TrapIntegerOverflow, ip, ins)
		}
		return uint64(int64(a) / int64(b))
	case op.I64DivU:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		return a / b
	case op.I64RemS:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		if int64(b) == -1 {
			return 0
		}
		return uint64(int64(a) % int64(b))
	case op.I64RemU:
		if b == 0 {
			vm.trap(TrapDivisionByZero, ip, ins)
		}
		return a % b
	case op.I64And:
		return a & b
	case op.I64Or:
		return a | b
	case op.I64Xor:
		return a ^ b
	case op.I64Shl:
		return a << (b & 63)
	case op.I64ShrS:
		return uint64(int64(a) >> (b & 63))
	case op.I64ShrU:
		return a >> (b & 63)
	case op.I64Rotl:
		return bits.RotateLeft64(a, int(b&63))
	case op.I64Rotr:
		return bits.RotateLeft64(a, -int(b&63))
	}
	return 0
}

func compare32(code op.Code, a, b uint32) bool {
	switch code {
	case op.I32Eq:
		return a == b
	case op.I32Ne:
		return a != b
	case op.I32LtS:
		return int32(a) < int32(b)
	case op.I32LtU:
		return a < b
	case op.I32GtS:
		return int32(a) > int32(b)
	case op.I32GtU:
		return a > b
	case op.I32LeS:
		return int32(a) <= int32(b)
	case op.I32LeU:
		return a <= b
	case op.I32GeS:
		return int32(a) >= int32(b)
	default:
		return a >= b
	}
}

func compare64(code op.Code, a, b uint64) bool {
	switch code {
	case op.I64Eq:
		return a == b
	case op.I64Ne:
		return a != b
	case op.I64LtS:
		return int64(a) < int64(b)
	case op.I64LtU:
		return a < b
	case op.I64GtS:
		return int64(a) > int64(b)
	case op.I64GtU:
		return a > b
	case op.I64LeS:
		return int64(a) <= int64(b)
	case op.I64LeU:
		return a <= b
	case op.I64GeS:
		return int64(a) >= int64(b)
	default:
		return a >= b
	}
}

func boolean(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// TOS returns the top-of-stack value if there is one, without modifying the
// stack.
func (vm *VirtualMachine) TOS() (uint64, bool) {
	if vm.sp >= 0 {
		return vm.stack[vm.sp], true
	}
	return 0, false
}

// Stack returns a copy of the value stack, bottom first.
func (vm *VirtualMachine) Stack() []uint64 {
	return append([]uint64(nil), vm.stack[:vm.sp+1]...)
}

// Locals returns a copy of the local variables.
func (vm *VirtualMachine) Locals() []uint64 {
	return append([]uint64(nil), vm.locals...)
}

// Globals returns a copy of the global variables.
func (vm *VirtualMachine) Globals() []uint64 {
	return append([]uint64(nil), vm.globals...)
}

// Memory returns the linear memory. The slice aliases VM state.
func (vm *VirtualMachine) Memory() []byte {
	return vm.memory
}

func (vm *VirtualMachine) pop() uint64 {
	if vm.sp < 0 {
		vm.trap(TrapStackUnderflow, vm.ip-1, vm.code[vm.ip-1])
	}
	v := vm.stack[vm.sp]
	vm.sp--
	return v
}

func (vm *VirtualMachine) peek() uint64 {
	if vm.sp < 0 {
		vm.trap(TrapStackUnderflow, vm.ip-1, vm.code[vm.ip-1])
	}
	return vm.stack[vm.sp]
}

func (vm *VirtualMachine) push(v uint64) {
	if vm.sp >= MaxStackDepth-1 {
		vm.trap(TrapStackOverflow, vm.ip-1, vm.code[vm.ip-1])
	}
	vm.sp++
	vm.stack[vm.sp] = v
}
