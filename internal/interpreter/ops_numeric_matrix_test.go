package interpreter

import (
	"math"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/trap"
)

// binOpCase is one entry of the i32/i64 binary-operator edge-case
// matrix: INT_MIN/-1, 0/0, and sign-alternating operand pairs, mirroring
// the edge cases the original tester.wasm harness exercised for every
// wrapping arithmetic, bitwise, shift, and rotate opcode.
type binOpCase struct {
	name string
	a, b int64
}

var i32EdgeCases = []binOpCase{
	{"int_min_neg_one", math.MinInt32, -1},
	{"zero_zero", 0, 0},
	{"sign_alternating", 0x55555555, -0x55555556}, // 0x55555555, 0xAAAAAAAA
}

var i64EdgeCases = []binOpCase{
	{"int_min_neg_one", math.MinInt64, -1},
	{"zero_zero", 0, 0},
	{"sign_alternating", 0x5555555555555555, -0x5555555555555556}, // 0x5555555555555555, 0xAAAAAAAAAAAAAAAA
}

func TestEvalNumeric_I32BinaryMatrix(t *testing.T) {
	ops := []struct {
		name string
		op   ir.Op
		want func(a, b int32) (uint64, trap.Kind, bool)
	}{
		{"add", ir.OpI32Add, func(a, b int32) (uint64, trap.Kind, bool) { return cellI32(a + b), 0, false }},
		{"sub", ir.OpI32Sub, func(a, b int32) (uint64, trap.Kind, bool) { return cellI32(a - b), 0, false }},
		{"mul", ir.OpI32Mul, func(a, b int32) (uint64, trap.Kind, bool) { return cellI32(a * b), 0, false }},
		{"div_s", ir.OpI32DivS, func(a, b int32) (uint64, trap.Kind, bool) {
			if b == 0 || (a == math.MinInt32 && b == -1) {
				return 0, trap.DivideByZero, true
			}
			return cellI32(a / b), 0, false
		}},
		{"div_u", ir.OpI32DivU, func(a, b int32) (uint64, trap.Kind, bool) {
			ua, ub := uint32(a), uint32(b)
			if ub == 0 {
				return 0, trap.DivideByZero, true
			}
			return cellU32(ua / ub), 0, false
		}},
		{"rem_s", ir.OpI32RemS, func(a, b int32) (uint64, trap.Kind, bool) {
			if b == 0 {
				return 0, trap.DivideByZero, true
			}
			if a == math.MinInt32 && b == -1 {
				return cellI32(0), 0, false
			}
			return cellI32(a % b), 0, false
		}},
		{"rem_u", ir.OpI32RemU, func(a, b int32) (uint64, trap.Kind, bool) {
			ua, ub := uint32(a), uint32(b)
			if ub == 0 {
				return 0, trap.DivideByZero, true
			}
			return cellU32(ua % ub), 0, false
		}},
		{"and", ir.OpI32And, func(a, b int32) (uint64, trap.Kind, bool) { return cellU32(uint32(a) & uint32(b)), 0, false }},
		{"or", ir.OpI32Or, func(a, b int32) (uint64, trap.Kind, bool) { return cellU32(uint32(a) | uint32(b)), 0, false }},
		{"xor", ir.OpI32Xor, func(a, b int32) (uint64, trap.Kind, bool) { return cellU32(uint32(a) ^ uint32(b)), 0, false }},
		{"shl", ir.OpI32Shl, func(a, b int32) (uint64, trap.Kind, bool) {
			return cellU32(uint32(a) << (uint32(b) & 31)), 0, false
		}},
		{"shr_s", ir.OpI32ShrS, func(a, b int32) (uint64, trap.Kind, bool) {
			return cellI32(a >> (uint32(b) & 31)), 0, false
		}},
		{"shr_u", ir.OpI32ShrU, func(a, b int32) (uint64, trap.Kind, bool) {
			return cellU32(uint32(a) >> (uint32(b) & 31)), 0, false
		}},
		{"rotl", ir.OpI32Rotl, func(a, b int32) (uint64, trap.Kind, bool) {
			return cellU32(bits.RotateLeft32(uint32(a), int(uint32(b)&31))), 0, false
		}},
		{"rotr", ir.OpI32Rotr, func(a, b int32) (uint64, trap.Kind, bool) {
			return cellU32(bits.RotateLeft32(uint32(a), -int(uint32(b)&31))), 0, false
		}},
	}

	for _, tc := range ops {
		for _, ec := range i32EdgeCases {
			t.Run(tc.name+"/"+ec.name, func(t *testing.T) {
				a, b := int32(ec.a), int32(ec.b)
				fr := newFrame(uint64(uint32(a)), uint64(uint32(b)))
				wantV, wantKind, wantErr := tc.want(a, b)

				v, kind, err := evalNumeric(tc.op, fr, 0)
				if wantErr {
					require.Error(t, err)
					require.Equal(t, wantKind, kind)
					return
				}
				require.NoError(t, err)
				require.Equal(t, trap.Kind(0), kind)
				require.Equal(t, wantV, v)
			})
		}
	}
}

func TestEvalNumeric_I64BinaryMatrix(t *testing.T) {
	ops := []struct {
		name string
		op   ir.Op
		want func(a, b int64) (uint64, trap.Kind, bool)
	}{
		{"add", ir.OpI64Add, func(a, b int64) (uint64, trap.Kind, bool) { return uint64(a + b), 0, false }},
		{"sub", ir.OpI64Sub, func(a, b int64) (uint64, trap.Kind, bool) { return uint64(a - b), 0, false }},
		{"mul", ir.OpI64Mul, func(a, b int64) (uint64, trap.Kind, bool) { return uint64(a * b), 0, false }},
		{"div_s", ir.OpI64DivS, func(a, b int64) (uint64, trap.Kind, bool) {
			if b == 0 || (a == math.MinInt64 && b == -1) {
				return 0, trap.DivideByZero, true
			}
			return cellI64(a / b), 0, false
		}},
		{"div_u", ir.OpI64DivU, func(a, b int64) (uint64, trap.Kind, bool) {
			ua, ub := uint64(a), uint64(b)
			if ub == 0 {
				return 0, trap.DivideByZero, true
			}
			return ua / ub, 0, false
		}},
		{"rem_s", ir.OpI64RemS, func(a, b int64) (uint64, trap.Kind, bool) {
			if b == 0 {
				return 0, trap.DivideByZero, true
			}
			if a == math.MinInt64 && b == -1 {
				return cellI64(0), 0, false
			}
			return cellI64(a % b), 0, false
		}},
		{"rem_u", ir.OpI64RemU, func(a, b int64) (uint64, trap.Kind, bool) {
			ua, ub := uint64(a), uint64(b)
			if ub == 0 {
				return 0, trap.DivideByZero, true
			}
			return ua % ub, 0, false
		}},
		{"and", ir.OpI64And, func(a, b int64) (uint64, trap.Kind, bool) { return uint64(a) & uint64(b), 0, false }},
		{"or", ir.OpI64Or, func(a, b int64) (uint64, trap.Kind, bool) { return uint64(a) | uint64(b), 0, false }},
		{"xor", ir.OpI64Xor, func(a, b int64) (uint64, trap.Kind, bool) { return uint64(a) ^ uint64(b), 0, false }},
		{"shl", ir.OpI64Shl, func(a, b int64) (uint64, trap.Kind, bool) {
			return uint64(a) << (uint64(b) & 63), 0, false
		}},
		{"shr_s", ir.OpI64ShrS, func(a, b int64) (uint64, trap.Kind, bool) {
			return cellI64(a >> (uint64(b) & 63)), 0, false
		}},
		{"shr_u", ir.OpI64ShrU, func(a, b int64) (uint64, trap.Kind, bool) {
			return uint64(a) >> (uint64(b) & 63), 0, false
		}},
		{"rotl", ir.OpI64Rotl, func(a, b int64) (uint64, trap.Kind, bool) {
			return bits.RotateLeft64(uint64(a), int(uint64(b)&63)), 0, false
		}},
		{"rotr", ir.OpI64Rotr, func(a, b int64) (uint64, trap.Kind, bool) {
			return bits.RotateLeft64(uint64(a), -int(uint64(b)&63)), 0, false
		}},
	}

	for _, tc := range ops {
		for _, ec := range i64EdgeCases {
			t.Run(tc.name+"/"+ec.name, func(t *testing.T) {
				fr := newFrame(uint64(ec.a), uint64(ec.b))
				wantV, wantKind, wantErr := tc.want(ec.a, ec.b)

				v, kind, err := evalNumeric(tc.op, fr, 0)
				if wantErr {
					require.Error(t, err)
					require.Equal(t, wantKind, kind)
					return
				}
				require.NoError(t, err)
				require.Equal(t, trap.Kind(0), kind)
				require.Equal(t, wantV, v)
			})
		}
	}
}
