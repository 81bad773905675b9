package wazeroir

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wami-rt/wami/internal/ir"
)

func TestFuseConstArith_BaseLevelIsArithOps(t *testing.T) {
	// Stack before the pair: one operand already pushed at level 0.
	// i32.const pushes at level 1; i32.add pops both and writes at
	// level 0 (the arith op's own base, not the const's).
	constInst := ir.Imc{Op: ir.OpI32Const, BaseStackLevel: 1, ImmI32: 7}
	addInst := ir.Imc{Op: ir.OpI32Add, BaseStackLevel: 0}

	fused, ok := fuseConstArith(constInst, addInst)
	require.True(t, ok)
	require.Equal(t, ir.OpFusedI32AddI, fused.Op)
	require.Equal(t, 0, fused.BaseStackLevel)
	require.Equal(t, int32(7), fused.ImmI32)
}

func TestFuseConstArith_I64(t *testing.T) {
	constInst := ir.Imc{Op: ir.OpI64Const, BaseStackLevel: 3, ImmI64: 42}
	subInst := ir.Imc{Op: ir.OpI64Sub, BaseStackLevel: 2}

	fused, ok := fuseConstArith(constInst, subInst)
	require.True(t, ok)
	require.Equal(t, ir.OpFusedI64SubI, fused.Op)
	require.Equal(t, 2, fused.BaseStackLevel)
	require.Equal(t, int64(42), fused.ImmI64)
}

func TestFuseConstArith_NoMatch(t *testing.T) {
	constInst := ir.Imc{Op: ir.OpI32Const, BaseStackLevel: 1}
	other := ir.Imc{Op: ir.OpI32Eq, BaseStackLevel: 0}
	_, ok := fuseConstArith(constInst, other)
	require.False(t, ok)
}

func TestFuseConstSet(t *testing.T) {
	constInst := ir.Imc{Op: ir.OpI32Const, ImmI32: 9}
	setInst := ir.Imc{Op: ir.OpLocalSetInt, BaseStackLevel: 0, VarIndex: 2}
	fused, ok := fuseConstSet(constInst, setInst)
	require.True(t, ok)
	require.Equal(t, ir.OpFusedI32SetConst, fused.Op)
	require.Equal(t, 0, fused.BaseStackLevel)
	require.Equal(t, uint32(2), fused.VarIndex)
}

func TestFuseCompareBranch(t *testing.T) {
	cmp := ir.Imc{Op: ir.OpI32LtS, BaseStackLevel: 1}
	brIf := ir.Imc{Op: ir.OpBrIf, BlockID: 5}
	fused, ok := fuseCompareBranch(cmp, brIf)
	require.True(t, ok)
	require.Equal(t, ir.OpFusedI32BrLtS, fused.Op)
	require.Equal(t, 1, fused.BaseStackLevel)
	require.Equal(t, 5, fused.BlockID)
}

func TestFuseCompareBranch_RequiresBrIf(t *testing.T) {
	cmp := ir.Imc{Op: ir.OpI32LtS, BaseStackLevel: 1}
	notBr := ir.Imc{Op: ir.OpI32Add}
	_, ok := fuseCompareBranch(cmp, notBr)
	require.False(t, ok)
}

func TestFuse_SkipsFusedPairAndContinues(t *testing.T) {
	in := []ir.Imc{
		{Op: ir.OpI32Const, BaseStackLevel: 1, ImmI32: 3},
		{Op: ir.OpI32Add, BaseStackLevel: 0},
		{Op: ir.OpI32Const, BaseStackLevel: 1, ImmI32: 4},
		{Op: ir.OpI32Add, BaseStackLevel: 0},
	}
	out := fuse(in)
	require.Len(t, out, 4)
	require.Equal(t, ir.OpMarkerNop, out[0].Op)
	require.Equal(t, ir.OpFusedI32AddI, out[1].Op)
	require.Equal(t, ir.OpMarkerNop, out[2].Op)
	require.Equal(t, ir.OpFusedI32AddI, out[3].Op)
}
