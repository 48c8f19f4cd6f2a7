// Package op defines the instruction set executed by the opcost interpreter
// and classified by the instrument package.
package op

// Code is an integer opcode that identifies an instruction.
type Code uint16

const (
	Invalid Code = iota

	// Control
	Unreachable
	Br
	BrIfEqz
	BrIfNez
	BrTable
	Return
	Call
	CallIndirect
	Drop
	Select

	// Variables
	GetLocal
	SetLocal
	TeeLocal
	GetGlobal
	SetGlobal

	// Memory
	I32Load
	I64Load
	F32Load
	F64Load
	I32Load8S
	I32Load8U
	I32Load16S
	I32Load16U
	I64Load8S
	I64Load8U
	I64Load16S
	I64Load16U
	I64Load32S
	I64Load32U
	I32Store
	I64Store
	F32Store
	F64Store
	I32Store8
	I32Store16
	I64Store8
	I64Store16
	I64Store32
	CurrentMemory
	GrowMemory

	// Constants
	I32Const
	I64Const
	F32Const
	F64Const

	// Comparison
	I32Eqz
	I32Eq
	I32Ne
	I32LtS
	I32LtU
	I32GtS
	I32GtU
	I32LeS
	I32LeU
	I32GeS
	I32GeU
	I64Eqz
	I64Eq
	I64Ne
	I64LtS
	I64LtU
	I64GtS
	I64GtU
	I64LeS
	I64LeU
	I64GeS
	I64GeU
	F32Eq
	F32Ne
	F32Lt
	F32Gt
	F32Le
	F32Ge
	F64Eq
	F64Ne
	F64Lt
	F64Gt
	F64Le
	F64Ge

	// Numeric
	I32Clz
	I32Ctz
	I32Popcnt
	I32Add
	I32Sub
	I32Mul
	I32DivS
	I32DivU
	I32RemS
	I32RemU
	I32And
	I32Or
	I32Xor
	I32Shl
	I32ShrS
	I32ShrU
	I32Rotl
	I32Rotr
	I64Clz
	I64Ctz
	I64Popcnt
	I64Add
	I64Sub
	I64Mul
	I64DivS
	I64DivU
	I64RemS
	I64RemU
	I64And
	I64Or
	I64Xor
	I64Shl
	I64ShrS
	I64ShrU
	I64Rotl
	I64Rotr
	F32Abs
	F32Neg
	F32Ceil
	F32Floor
	F32Trunc
	F32Nearest
	F32Sqrt
	F32Add
	F32Sub
	F32Mul
	F32Div
	F32Min
	F32Max
	F32Copysign
	F64Abs
	F64Neg
	F64Ceil
	F64Floor
	F64Trunc
	F64Nearest
	F64Sqrt
	F64Add
	F64Sub
	F64Mul
	F64Div
	F64Min
	F64Max
	F64Copysign

	// Conversion
	I32WrapI64
	I32TruncSF32
	I32TruncUF32
	I32TruncSF64
	I32TruncUF64
	I64ExtendSI32
	I64ExtendUI32
	I64TruncSF32
	I64TruncUF32
	I64TruncSF64
	I64TruncUF64
	F32ConvertSI32
	F32ConvertUI32
	F32ConvertSI64
	F32ConvertUI64
	F32DemoteF64
	F64ConvertSI32
	F64ConvertUI32
	F64ConvertSI64
	F64ConvertUI64
	F64PromoteF32
	I32ReinterpretF32
	I64ReinterpretF64
	F32ReinterpretI32
	F64ReinterpretI64

	codeCount
)

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make([]Info, codeCount)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{Unreachable, "Unreachable", 0},
		{Br, "Br", 1},
		{BrIfEqz, "BrIfEqz", 1},
		{BrIfNez, "BrIfNez", 1},
		{BrTable, "BrTable", 1},
		{Return, "Return", 1},
		{Call, "Call", 1},
		{CallIndirect, "CallIndirect", 1},
		{Drop, "Drop", 0},
		{Select, "Select", 0},
		{GetLocal, "GetLocal", 1},
		{SetLocal, "SetLocal", 1},
		{TeeLocal, "TeeLocal", 1},
		{GetGlobal, "GetGlobal", 1},
		{SetGlobal, "SetGlobal", 1},
		{I32Load, "I32Load", 1},
		{I64Load, "I64Load", 1},
		{F32Load, "F32Load", 1},
		{F64Load, "F64Load", 1},
		{I32Load8S, "I32Load8S", 1},
		{I32Load8U, "I32Load8U", 1},
		{I32Load16S, "I32Load16S", 1},
		{I32Load16U, "I32Load16U", 1},
		{I64Load8S, "I64Load8S", 1},
		{I64Load8U, "I64Load8U", 1},
		{I64Load16S, "I64Load16S", 1},
		{I64Load16U, "I64Load16U", 1},
		{I64Load32S, "I64Load32S", 1},
		{I64Load32U, "I64Load32U", 1},
		{I32Store, "I32Store", 1},
		{I64Store, "I64Store", 1},
		{F32Store, "F32Store", 1},
		{F64Store, "F64Store", 1},
		{I32Store8, "I32Store8", 1},
		{I32Store16, "I32Store16", 1},
		{I64Store8, "I64Store8", 1},
		{I64Store16, "I64Store16", 1},
		{I64Store32, "I64Store32", 1},
		{CurrentMemory, "CurrentMemory", 0},
		{GrowMemory, "GrowMemory", 0},
		{I32Const, "I32Const", 1},
		{I64Const, "I64Const", 1},
		{F32Const, "F32Const", 1},
		{F64Const, "F64Const", 1},
		{I32Eqz, "I32Eqz", 0},
		{I32Eq, "I32Eq", 0},
		{I32Ne, "I32Ne", 0},
		{I32LtS, "I32LtS", 0},
		{I32LtU, "I32LtU", 0},
		{I32GtS, "I32GtS", 0},
		{I32GtU, "I32GtU", 0},
		{I32LeS, "I32LeS", 0},
		{I32LeU, "I32LeU", 0},
		{I32GeS, "I32GeS", 0},
		{I32GeU, "I32GeU", 0},
		{I64Eqz, "I64Eqz", 0},
		{I64Eq, "I64Eq", 0},
		{I64Ne, "I64Ne", 0},
		{I64LtS, "I64LtS", 0},
		{I64LtU, "I64LtU", 0},
		{I64GtS, "I64GtS", 0},
		{I64GtU, "I64GtU", 0},
		{I64LeS, "I64LeS", 0},
		{I64LeU, "I64LeU", 0},
		{I64GeS, "I64GeS", 0},
		{I64GeU, "I64GeU", 0},
		{F32Eq, "F32Eq", 0},
		{F32Ne, "F32Ne", 0},
		{F32Lt, "F32Lt", 0},
		{F32Gt, "F32Gt", 0},
		{F32Le, "F32Le", 0},
		{F32Ge, "F32Ge", 0},
		{F64Eq, "F64Eq", 0},
		{F64Ne, "F64Ne", 0},
		{F64Lt, "F64Lt", 0},
		{F64Gt, "F64Gt", 0},
		{F64Le, "F64Le", 0},
		{F64Ge, "F64Ge", 0},
		{I32Clz, "I32Clz", 0},
		{I32Ctz, "I32Ctz", 0},
		{I32Popcnt, "I32Popcnt", 0},
		{I32Add, "I32Add", 0},
		{I32Sub, "I32Sub", 0},
		{I32Mul, "I32Mul", 0},
		{I32DivS, "I32DivS", 0},
		{I32DivU, "I32DivU", 0},
		{I32RemS, "I32RemS", 0},
		{I32RemU, "I32RemU", 0},
		{I32And, "I32And", 0},
		{I32Or, "I32Or", 0},
		{I32Xor, "I32Xor", 0},
		{I32Shl, "I32Shl", 0},
		{I32ShrS, "I32ShrS", 0},
		{I32ShrU, "I32ShrU", 0},
		{I32Rotl, "I32Rotl", 0},
		{I32Rotr, "I32Rotr", 0},
		{I64Clz, "I64Clz", 0},
		{I64Ctz, "I64Ctz", 0},
		{I64Popcnt, "I64Popcnt", 0},
		{I64Add, "I64Add", 0},
		{I64Sub, "I64Sub", 0},
		{I64Mul, "I64Mul", 0},
		{I64DivS, "I64DivS", 0},
		{I64DivU, "I64DivU", 0},
		{I64RemS, "I64RemS", 0},
		{I64RemU, "I64RemU", 0},
		{I64And, "I64And", 0},
		{I64Or, "I64Or", 0},
		{I64Xor, "I64Xor", 0},
		{I64Shl, "I64Shl", 0},
		{I64ShrS, "I64ShrS", 0},
		{I64ShrU, "I64ShrU", 0},
		{I64Rotl, "I64Rotl", 0},
		{I64Rotr, "I64Rotr", 0},
		{F32Abs, "F32Abs", 0},
		{F32Neg, "F32Neg", 0},
		{F32Ceil, "F32Ceil", 0},
		{F32Floor, "F32Floor", 0},
		{F32Trunc, "F32Trunc", 0},
		{F32Nearest, "F32Nearest", 0},
		{F32Sqrt, "F32Sqrt", 0},
		{F32Add, "F32Add", 0},
		{F32Sub, "F32Sub", 0},
		{F32Mul, "F32Mul", 0},
		{F32Div, "F32Div", 0},
		{F32Min, "F32Min", 0},
		{F32Max, "F32Max", 0},
		{F32Copysign, "F32Copysign", 0},
		{F64Abs, "F64Abs", 0},
		{F64Neg, "F64Neg", 0},
		{F64Ceil, "F64Ceil", 0},
		{F64Floor, "F64Floor", 0},
		{F64Trunc, "F64Trunc", 0},
		{F64Nearest, "F64Nearest", 0},
		{F64Sqrt, "F64Sqrt", 0},
		{F64Add, "F64Add", 0},
		{F64Sub, "F64Sub", 0},
		{F64Mul, "F64Mul", 0},
		{F64Div, "F64Div", 0},
		{F64Min, "F64Min", 0},
		{F64Max, "F64Max", 0},
		{F64Copysign, "F64Copysign", 0},
		{I32WrapI64, "I32WrapI64", 0},
		{I32TruncSF32, "I32TruncSF32", 0},
		{I32TruncUF32, "I32TruncUF32", 0},
		{I32TruncSF64, "I32TruncSF64", 0},
		{I32TruncUF64, "I32TruncUF64", 0},
		{I64ExtendSI32, "I64ExtendSI32", 0},
		{I64ExtendUI32, "I64ExtendUI32", 0},
		{I64TruncSF32, "I64TruncSF32", 0},
		{I64TruncUF32, "I64TruncUF32", 0},
		{I64TruncSF64, "I64TruncSF64", 0},
		{I64TruncUF64, "I64TruncUF64", 0},
		{F32ConvertSI32, "F32ConvertSI32", 0},
		{F32ConvertUI32, "F32ConvertUI32", 0},
		{F32ConvertSI64, "F32ConvertSI64", 0},
		{F32ConvertUI64, "F32ConvertUI64", 0},
		{F32DemoteF64, "F32DemoteF64", 0},
		{F64ConvertSI32, "F64ConvertSI32", 0},
		{F64ConvertUI32, "F64ConvertUI32", 0},
		{F64ConvertSI64, "F64ConvertSI64", 0},
		{F64ConvertUI64, "F64ConvertUI64", 0},
		{F64PromoteF32, "F64PromoteF32", 0},
		{I32ReinterpretF32, "I32ReinterpretF32", 0},
		{I64ReinterpretF64, "I64ReinterpretF64", 0},
		{F32ReinterpretI32, "F32ReinterpretI32", 0},
		{F64ReinterpretI64, "F64ReinterpretI64", 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes
// return the zero Info.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}

// Codes returns every valid opcode in table order.
func Codes() []Code {
	codes := make([]Code, 0, codeCount-1)
	for c := Code(1); c < codeCount; c++ {
		codes = append(codes, c)
	}
	return codes
}

// Valid reports whether the opcode is part of the instruction set.
func (c Code) Valid() bool {
	return c > Invalid && c < codeCount
}

// String returns the instruction name, e.g. "I32Add".
func (c Code) String() string {
	if name := GetInfo(c).Name; name != "" {
		return name
	}
	return "Invalid"
}
