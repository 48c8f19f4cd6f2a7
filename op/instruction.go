package op

import "fmt"

// DropKeep describes how the value stack is adjusted across a control
// transfer: the top Keep values are preserved and the Drop values beneath
// them are discarded.
type DropKeep struct {
	Drop uint32
	Keep uint32
}

// Target is the destination of a branch together with its stack adjustment.
type Target struct {
	DstPC    int
	DropKeep DropKeep
}

// Instruction is a single decoded instruction. Only the fields relevant to
// Code are meaningful:
//
//   - Br, BrIfEqz, BrIfNez use Target
//   - BrTable uses Targets; the last entry is the default
//   - Return uses DropKeep
//   - everything with an operand (locals, globals, calls, memory offsets,
//     constants) uses Operand
type Instruction struct {
	Code     Code
	Operand  int64
	Target   Target
	Targets  []Target
	DropKeep DropKeep
}

// Make returns an instruction with the given opcode and operand.
func Make(code Code, operand ...int64) Instruction {
	ins := Instruction{Code: code}
	if len(operand) > 0 {
		ins.Operand = operand[0]
	}
	return ins
}

// Branch returns a Br, BrIfEqz or BrIfNez instruction.
func Branch(code Code, dst int, dk DropKeep) Instruction {
	return Instruction{Code: code, Target: Target{DstPC: dst, DropKeep: dk}}
}

// Ret returns a Return instruction with the given stack adjustment.
func Ret(dk DropKeep) Instruction {
	return Instruction{Code: Return, DropKeep: dk}
}

// KeepCount returns the number of values retained across the control
// transfer performed by the instruction. The second result is false for
// instructions that do not transfer control with a single DropKeep.
func (ins Instruction) KeepCount() (uint32, bool) {
	switch ins.Code {
	case Br, BrIfEqz, BrIfNez:
		return ins.Target.DropKeep.Keep, true
	case Return:
		return ins.DropKeep.Keep, true
	default:
		return 0, false
	}
}

func (ins Instruction) String() string {
	switch ins.Code {
	case Br, BrIfEqz, BrIfNez:
		return fmt.Sprintf("%s(%d, drop=%d, keep=%d)", ins.Code, ins.Target.DstPC,
			ins.Target.DropKeep.Drop, ins.Target.DropKeep.Keep)
	case Return:
		return fmt.Sprintf("%s(drop=%d, keep=%d)", ins.Code, ins.DropKeep.Drop, ins.DropKeep.Keep)
	case BrTable:
		return fmt.Sprintf("%s(%d targets)", ins.Code, len(ins.Targets))
	}
	if GetInfo(ins.Code).OperandCount > 0 {
		return fmt.Sprintf("%s(%d)", ins.Code, ins.Operand)
	}
	return ins.Code.String()
}
