package interpreter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/trap"
)

func newFrame(cells ...uint64) *frame {
	return &frame{cells: cells, numLocals: 0}
}

func TestEvalNumeric_IntegerArith(t *testing.T) {
	fr := newFrame(7, 3)
	v, kind, err := evalNumeric(ir.OpI32Add, fr, 0)
	require.NoError(t, err)
	require.Equal(t, trap.Kind(0), kind)
	require.Equal(t, int32(10), i32(v))

	fr = newFrame(uint64(uint32(math.MaxUint32)), 1)
	v, _, err = evalNumeric(ir.OpI32Add, fr, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), u32(v))
}

func TestEvalNumeric_DivideByZero(t *testing.T) {
	fr := newFrame(6, 0)
	_, kind, err := evalNumeric(ir.OpI32DivS, fr, 0)
	require.Error(t, err)
	require.Equal(t, trap.DivideByZero, kind)
}

func TestEvalNumeric_DivS_OverflowTrapsAsDivideByZero(t *testing.T) {
	fr := newFrame(cellI32(math.MinInt32), cellI32(-1))
	_, kind, err := evalNumeric(ir.OpI32DivS, fr, 0)
	require.Error(t, err)
	require.Equal(t, trap.DivideByZero, kind)
}

func TestEvalNumeric_RemSByZero(t *testing.T) {
	fr := newFrame(6, 0)
	_, kind, err := evalNumeric(ir.OpI64RemS, fr, 0)
	require.Error(t, err)
	require.Equal(t, trap.DivideByZero, kind)
}

func TestEvalNumeric_ShiftAmountIsMasked(t *testing.T) {
	// i32.shl by 33 behaves as a shift by 1.
	fr := newFrame(1, 33)
	v, _, err := evalNumeric(ir.OpI32Shl, fr, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(2), u32(v))
}

func TestWasmFMinMax_NaNPropagates(t *testing.T) {
	require.True(t, math.IsNaN(wasmFMin(math.NaN(), 1)))
	require.True(t, math.IsNaN(wasmFMax(1, math.NaN())))
}

func TestWasmFMinMax_SignedZero(t *testing.T) {
	require.True(t, math.Signbit(wasmFMin(0, math.Copysign(0, -1))))
	require.False(t, math.Signbit(wasmFMax(0, math.Copysign(0, -1))))
}

func TestTruncToI32_NaNTraps(t *testing.T) {
	_, kind, err := truncToI32(math.NaN(), false)
	require.Error(t, err)
	require.Equal(t, trap.InvalidParameter, kind)
}

func TestTruncToI32_OutOfRangeTraps(t *testing.T) {
	_, kind, err := truncToI32(1e20, false)
	require.Error(t, err)
	require.Equal(t, trap.InvalidParameter, kind)
}

func TestTruncToI32_InRange(t *testing.T) {
	v, kind, err := truncToI32(-4.7, false)
	require.NoError(t, err)
	require.Equal(t, trap.Kind(0), kind)
	require.Equal(t, int32(-4), i32(v))
}

func TestSatI32_NaNBecomesZero(t *testing.T) {
	require.Equal(t, int32(0), satI32(math.NaN()))
}

func TestSatI32_ClampsOutOfRange(t *testing.T) {
	require.Equal(t, int32(math.MaxInt32), satI32(1e20))
	require.Equal(t, int32(math.MinInt32), satI32(-1e20))
}

func TestSatU32_ClampsNegativeToZero(t *testing.T) {
	require.Equal(t, uint32(0), satU32(-5))
}

func TestEvalFusedArith_AddImmediate(t *testing.T) {
	fr := newFrame(10)
	inst := &ir.Imc{Op: ir.OpFusedI32AddI, BaseStackLevel: 0, ImmI32: 5}
	v := evalFusedArith(inst, fr)
	require.Equal(t, int32(15), i32(v))
}

func TestEvalFusedCompareBranch_LtS(t *testing.T) {
	fr := newFrame(3, 10)
	require.True(t, evalFusedCompareBranch(ir.OpFusedI32BrLtS, fr, 0))
	fr = newFrame(10, 3)
	require.False(t, evalFusedCompareBranch(ir.OpFusedI32BrLtS, fr, 0))
}

func TestEvalFusedCompareBranch_Z(t *testing.T) {
	fr := newFrame(0)
	require.True(t, evalFusedCompareBranch(ir.OpFusedI32BrZ, fr, 0))
}

func TestEvalNumeric_Reinterprets(t *testing.T) {
	bits := uint64(math.Float32bits(3.5))
	fr := newFrame(bits)
	v, _, err := evalNumeric(ir.OpI32ReinterpretF32, fr, 0)
	require.NoError(t, err)
	require.Equal(t, bits, v)
}

func TestEvalNumeric_SignExtend8S(t *testing.T) {
	fr := newFrame(uint64(uint32(0xff)))
	v, _, err := evalNumeric(ir.OpI32Extend8S, fr, 0)
	require.NoError(t, err)
	require.Equal(t, int32(-1), i32(v))
}
