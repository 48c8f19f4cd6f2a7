package instrument

import (
	"strconv"

	"github.com/deepnoodle-ai/opcost/op"
)

// Kind identifies a category of instruction independent of its operands,
// e.g. "Br" or "I32Load". It names the log file samples are written to.
type Kind string

// propertyFunc extracts the properties recorded alongside a sample.
type propertyFunc func(ins op.Instruction) []string

type rule struct {
	kind       Kind
	excluded   bool
	properties propertyFunc
}

// Floating point arithmetic, float/int conversions and bit reinterpretation
// have a flat cost and are not timed.
var excludedCodes = []op.Code{
	op.F32Load, op.F64Load, op.F32Store, op.F64Store,
	op.F32Const, op.F64Const,
	op.F32Eq, op.F32Ne, op.F32Lt, op.F32Gt, op.F32Le, op.F32Ge,
	op.F64Eq, op.F64Ne, op.F64Lt, op.F64Gt, op.F64Le, op.F64Ge,
	op.F32Abs, op.F32Neg, op.F32Ceil, op.F32Floor, op.F32Trunc, op.F32Nearest,
	op.F32Sqrt, op.F32Add, op.F32Sub, op.F32Mul, op.F32Div, op.F32Min,
	op.F32Max, op.F32Copysign,
	op.F64Abs, op.F64Neg, op.F64Ceil, op.F64Floor, op.F64Trunc, op.F64Nearest,
	op.F64Sqrt, op.F64Add, op.F64Sub, op.F64Mul, op.F64Div, op.F64Min,
	op.F64Max, op.F64Copysign,
	op.I32TruncSF32, op.I32TruncUF32, op.I32TruncSF64, op.I32TruncUF64,
	op.I64TruncSF32, op.I64TruncUF32, op.I64TruncSF64, op.I64TruncUF64,
	op.F32ConvertSI32, op.F32ConvertUI32, op.F32ConvertSI64, op.F32ConvertUI64,
	op.F32DemoteF64,
	op.F64ConvertSI32, op.F64ConvertUI32, op.F64ConvertSI64, op.F64ConvertUI64,
	op.F64PromoteF32,
	op.I32ReinterpretF32, op.I64ReinterpretF64, op.F32ReinterpretI32, op.F64ReinterpretI64,
}

// Codes whose samples carry the keep count of their control transfer.
var keepCountCodes = []op.Code{op.Br, op.BrIfEqz, op.BrIfNez, op.Return}

// DefaultPolicy is the classification table used by Classify and by
// recorders that are not given a policy of their own.
var DefaultPolicy = NewPolicy(excludedCodes, keepCountCodes)

// Policy decides which instructions are timed, which kind they are filed
// under and which properties accompany each sample. A Policy is immutable
// once built and safe for concurrent use.
type Policy struct {
	rules []rule
}

// NewPolicy builds a policy over every opcode in the instruction set.
// Instructions in excluded are never timed; instructions in keepCount record
// their keep count as the single property. Codes outside the instruction
// set are ignored.
func NewPolicy(excluded []op.Code, keepCount []op.Code) *Policy {
	codes := op.Codes()
	p := &Policy{rules: make([]rule, len(codes)+1)}
	for _, code := range codes {
		p.rules[code] = rule{kind: Kind(op.GetInfo(code).Name)}
	}
	for _, code := range excluded {
		if code.Valid() {
			p.rules[code].excluded = true
		}
	}
	for _, code := range keepCount {
		if code.Valid() {
			p.rules[code].properties = keepCountProperty
		}
	}
	return p
}

func keepCountProperty(ins op.Instruction) []string {
	n, _ := ins.KeepCount()
	return []string{strconv.FormatUint(uint64(n), 10)}
}

// Classify returns the kind and properties for the instruction. The final
// result is false when the instruction is not instrumented.
func (p *Policy) Classify(ins op.Instruction) (Kind, []string, bool) {
	if int(ins.Code) >= len(p.rules) {
		return "", nil, false
	}
	r := p.rules[ins.Code]
	if r.kind == "" || r.excluded {
		return "", nil, false
	}
	if r.properties == nil {
		return r.kind, nil, true
	}
	return r.kind, r.properties(ins), true
}

// Excluded reports whether instructions with this opcode are skipped.
func (p *Policy) Excluded(code op.Code) bool {
	if int(code) >= len(p.rules) {
		return true
	}
	r := p.rules[code]
	return r.kind == "" || r.excluded
}

// Kinds lists every kind the policy can produce, in opcode order.
func (p *Policy) Kinds() []Kind {
	var kinds []Kind
	for _, r := range p.rules {
		if r.kind != "" && !r.excluded {
			kinds = append(kinds, r.kind)
		}
	}
	return kinds
}

// Classify classifies the instruction using DefaultPolicy.
func Classify(ins op.Instruction) (Kind, []string, bool) {
	return DefaultPolicy.Classify(ins)
}
