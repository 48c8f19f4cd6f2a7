package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/opcost/op"
)

func TestClassifyExcluded(t *testing.T) {
	require.Len(t, excludedCodes, 68)
	for _, code := range excludedCodes {
		t.Run(code.String(), func(t *testing.T) {
			_, _, ok := Classify(op.Make(code, 42))
			assert.False(t, ok)
			assert.True(t, DefaultPolicy.Excluded(code))
		})
	}
}

func TestClassifyKindIsTotalAndStable(t *testing.T) {
	seen := map[Kind]op.Code{}
	for _, code := range op.Codes() {
		if DefaultPolicy.Excluded(code) {
			continue
		}
		kind, _, ok := Classify(op.Make(code))
		require.True(t, ok, code.String())
		assert.Equal(t, Kind(op.GetInfo(code).Name), kind)

		// Operands never change the kind.
		again, _, _ := Classify(op.Instruction{
			Code:     code,
			Operand:  99,
			Target:   op.Target{DstPC: 7, DropKeep: op.DropKeep{Drop: 2, Keep: 5}},
			DropKeep: op.DropKeep{Drop: 1, Keep: 1},
		})
		assert.Equal(t, kind, again)

		prev, dup := seen[kind]
		require.False(t, dup, "%s produced by %s and %s", kind, prev, code)
		seen[kind] = code
	}
	assert.Len(t, seen, len(op.Codes())-len(excludedCodes))
	assert.Len(t, DefaultPolicy.Kinds(), len(seen))
}

func TestClassifyProperties(t *testing.T) {
	tests := []struct {
		name string
		ins  op.Instruction
		kind Kind
		want []string
	}{
		{"br", op.Branch(op.Br, 10, op.DropKeep{Drop: 3, Keep: 2}), "Br", []string{"2"}},
		{"br_if_eqz", op.Branch(op.BrIfEqz, 4, op.DropKeep{Keep: 1}), "BrIfEqz", []string{"1"}},
		{"br_if_nez", op.Branch(op.BrIfNez, 4, op.DropKeep{Drop: 1}), "BrIfNez", []string{"0"}},
		{"return", op.Ret(op.DropKeep{Drop: 4, Keep: 7}), "Return", []string{"7"}},
		{"br_table", op.Instruction{Code: op.BrTable, Targets: []op.Target{{DropKeep: op.DropKeep{Keep: 1}}}}, "BrTable", nil},
		{"call", op.Make(op.Call, 3), "Call", nil},
		{"i32_add", op.Make(op.I32Add), "I32Add", nil},
		{"i32_load", op.Make(op.I32Load, 16), "I32Load", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, props, ok := Classify(tt.ins)
			require.True(t, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.want, props)
		})
	}
}

func TestClassifyInvalid(t *testing.T) {
	_, _, ok := Classify(op.Make(op.Invalid))
	assert.False(t, ok)
	_, _, ok = Classify(op.Make(op.Code(4000)))
	assert.False(t, ok)
	assert.True(t, DefaultPolicy.Excluded(op.Code(4000)))
}

func TestCustomPolicy(t *testing.T) {
	p := NewPolicy([]op.Code{op.I32Add}, []op.Code{op.Return})

	_, _, ok := p.Classify(op.Make(op.I32Add))
	assert.False(t, ok)

	kind, props, ok := p.Classify(op.Make(op.F32Add))
	require.True(t, ok)
	assert.Equal(t, Kind("F32Add"), kind)
	assert.Empty(t, props)

	_, props, _ = p.Classify(op.Branch(op.Br, 0, op.DropKeep{Keep: 3}))
	assert.Empty(t, props)
	_, props, _ = p.Classify(op.Ret(op.DropKeep{Keep: 3}))
	assert.Equal(t, []string{"3"}, props)
}

func TestCustomPolicyIgnoresUnknownCodes(t *testing.T) {
	var p *Policy
	require.NotPanics(t, func() {
		p = NewPolicy([]op.Code{op.Code(4000), op.Invalid}, []op.Code{op.Code(5000)})
	})
	kind, props, ok := p.Classify(op.Make(op.I32Add))
	require.True(t, ok)
	assert.Equal(t, Kind("I32Add"), kind)
	assert.Empty(t, props)
	assert.Len(t, p.Kinds(), len(op.Codes()))
	assert.True(t, p.Excluded(op.Code(4000)))
}
