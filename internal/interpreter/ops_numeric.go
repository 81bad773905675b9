package interpreter

import (
	"math"
	"math/bits"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/trap"
)

// evalNumeric evaluates every non-fused, non-memory, non-control
// instruction: comparisons, arithmetic, conversions, reinterprets,
// sign-extensions and saturating truncations. base is the operand's
// BaseStackLevel; operands live at fr.op(base), fr.op(base+1), ... and
// the single result (every one of these ops is single-result) is
// written back to fr.op(base) by the caller.
func evalNumeric(op ir.Op, fr *frame, base int) (uint64, trap.Kind, error) {
	switch op {

	// i32 comparisons
	case ir.OpI32Eqz:
		return boolCell(i32(fr.op(base)) == 0), 0, nil
	case ir.OpI32Eq:
		return boolCell(i32(fr.op(base)) == i32(fr.op(base+1))), 0, nil
	case ir.OpI32Ne:
		return boolCell(i32(fr.op(base)) != i32(fr.op(base+1))), 0, nil
	case ir.OpI32LtS:
		return boolCell(i32(fr.op(base)) < i32(fr.op(base+1))), 0, nil
	case ir.OpI32LtU:
		return boolCell(u32(fr.op(base)) < u32(fr.op(base+1))), 0, nil
	case ir.OpI32GtS:
		return boolCell(i32(fr.op(base)) > i32(fr.op(base+1))), 0, nil
	case ir.OpI32GtU:
		return boolCell(u32(fr.op(base)) > u32(fr.op(base+1))), 0, nil
	case ir.OpI32LeS:
		return boolCell(i32(fr.op(base)) <= i32(fr.op(base+1))), 0, nil
	case ir.OpI32LeU:
		return boolCell(u32(fr.op(base)) <= u32(fr.op(base+1))), 0, nil
	case ir.OpI32GeS:
		return boolCell(i32(fr.op(base)) >= i32(fr.op(base+1))), 0, nil
	case ir.OpI32GeU:
		return boolCell(u32(fr.op(base)) >= u32(fr.op(base+1))), 0, nil

	// i64 comparisons
	case ir.OpI64Eqz:
		return boolCell(i64v(fr.op(base)) == 0), 0, nil
	case ir.OpI64Eq:
		return boolCell(i64v(fr.op(base)) == i64v(fr.op(base+1))), 0, nil
	case ir.OpI64Ne:
		return boolCell(i64v(fr.op(base)) != i64v(fr.op(base+1))), 0, nil
	case ir.OpI64LtS:
		return boolCell(i64v(fr.op(base)) < i64v(fr.op(base+1))), 0, nil
	case ir.OpI64LtU:
		return boolCell(fr.op(base) < fr.op(base+1)), 0, nil
	case ir.OpI64GtS:
		return boolCell(i64v(fr.op(base)) > i64v(fr.op(base+1))), 0, nil
	case ir.OpI64GtU:
		return boolCell(fr.op(base) > fr.op(base+1)), 0, nil
	case ir.OpI64LeS:
		return boolCell(i64v(fr.op(base)) <= i64v(fr.op(base+1))), 0, nil
	case ir.OpI64LeU:
		return boolCell(fr.op(base) <= fr.op(base+1)), 0, nil
	case ir.OpI64GeS:
		return boolCell(i64v(fr.op(base)) >= i64v(fr.op(base+1))), 0, nil
	case ir.OpI64GeU:
		return boolCell(fr.op(base) >= fr.op(base+1)), 0, nil

	// f32/f64 comparisons
	case ir.OpF32Eq:
		return boolCell(f32v(fr.op(base)) == f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Ne:
		return boolCell(f32v(fr.op(base)) != f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Lt:
		return boolCell(f32v(fr.op(base)) < f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Gt:
		return boolCell(f32v(fr.op(base)) > f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Le:
		return boolCell(f32v(fr.op(base)) <= f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Ge:
		return boolCell(f32v(fr.op(base)) >= f32v(fr.op(base+1))), 0, nil
	case ir.OpF64Eq:
		return boolCell(f64v(fr.op(base)) == f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Ne:
		return boolCell(f64v(fr.op(base)) != f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Lt:
		return boolCell(f64v(fr.op(base)) < f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Gt:
		return boolCell(f64v(fr.op(base)) > f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Le:
		return boolCell(f64v(fr.op(base)) <= f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Ge:
		return boolCell(f64v(fr.op(base)) >= f64v(fr.op(base+1))), 0, nil

	// i32 arithmetic
	case ir.OpI32Clz:
		return cellI32(int32(bits.LeadingZeros32(u32(fr.op(base))))), 0, nil
	case ir.OpI32Ctz:
		return cellI32(int32(bits.TrailingZeros32(u32(fr.op(base))))), 0, nil
	case ir.OpI32Popcnt:
		return cellI32(int32(bits.OnesCount32(u32(fr.op(base))))), 0, nil
	case ir.OpI32Add:
		return cellI32(i32(fr.op(base)) + i32(fr.op(base+1))), 0, nil
	case ir.OpI32Sub:
		return cellI32(i32(fr.op(base)) - i32(fr.op(base+1))), 0, nil
	case ir.OpI32Mul:
		return cellI32(i32(fr.op(base)) * i32(fr.op(base+1))), 0, nil
	case ir.OpI32DivS:
		a, b := i32(fr.op(base)), i32(fr.op(base+1))
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		// INT_MIN / -1 overflows a signed 32-bit result; there is no
		// dedicated overflow trap kind, so this reuses DivideByZero.
		if a == math.MinInt32 && b == -1 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		return cellI32(a / b), 0, nil
	case ir.OpI32DivU:
		a, b := u32(fr.op(base)), u32(fr.op(base+1))
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		return cellU32(a / b), 0, nil
	case ir.OpI32RemS:
		a, b := i32(fr.op(base)), i32(fr.op(base+1))
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		if a == math.MinInt32 && b == -1 {
			return cellI32(0), 0, nil
		}
		return cellI32(a % b), 0, nil
	case ir.OpI32RemU:
		a, b := u32(fr.op(base)), u32(fr.op(base+1))
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		return cellU32(a % b), 0, nil
	case ir.OpI32And:
		return cellU32(u32(fr.op(base)) & u32(fr.op(base+1))), 0, nil
	case ir.OpI32Or:
		return cellU32(u32(fr.op(base)) | u32(fr.op(base+1))), 0, nil
	case ir.OpI32Xor:
		return cellU32(u32(fr.op(base)) ^ u32(fr.op(base+1))), 0, nil
	case ir.OpI32Shl:
		return cellU32(u32(fr.op(base)) << (u32(fr.op(base+1)) & 31)), 0, nil
	case ir.OpI32ShrS:
		return cellI32(i32(fr.op(base)) >> (u32(fr.op(base+1)) & 31)), 0, nil
	case ir.OpI32ShrU:
		return cellU32(u32(fr.op(base)) >> (u32(fr.op(base+1)) & 31)), 0, nil
	case ir.OpI32Rotl:
		return cellU32(bits.RotateLeft32(u32(fr.op(base)), int(u32(fr.op(base+1))&31))), 0, nil
	case ir.OpI32Rotr:
		return cellU32(bits.RotateLeft32(u32(fr.op(base)), -int(u32(fr.op(base+1))&31))), 0, nil

	// i64 arithmetic
	case ir.OpI64Clz:
		return cellI64(int64(bits.LeadingZeros64(fr.op(base)))), 0, nil
	case ir.OpI64Ctz:
		return cellI64(int64(bits.TrailingZeros64(fr.op(base)))), 0, nil
	case ir.OpI64Popcnt:
		return cellI64(int64(bits.OnesCount64(fr.op(base)))), 0, nil
	case ir.OpI64Add:
		return fr.op(base) + fr.op(base+1), 0, nil
	case ir.OpI64Sub:
		return fr.op(base) - fr.op(base+1), 0, nil
	case ir.OpI64Mul:
		return fr.op(base) * fr.op(base+1), 0, nil
	case ir.OpI64DivS:
		a, b := i64v(fr.op(base)), i64v(fr.op(base+1))
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		if a == math.MinInt64 && b == -1 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		return cellI64(a / b), 0, nil
	case ir.OpI64DivU:
		a, b := fr.op(base), fr.op(base+1)
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		return a / b, 0, nil
	case ir.OpI64RemS:
		a, b := i64v(fr.op(base)), i64v(fr.op(base+1))
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		if a == math.MinInt64 && b == -1 {
			return cellI64(0), 0, nil
		}
		return cellI64(a % b), 0, nil
	case ir.OpI64RemU:
		a, b := fr.op(base), fr.op(base+1)
		if b == 0 {
			return 0, trap.DivideByZero, errDivideByZero
		}
		return a % b, 0, nil
	case ir.OpI64And:
		return fr.op(base) & fr.op(base+1), 0, nil
	case ir.OpI64Or:
		return fr.op(base) | fr.op(base+1), 0, nil
	case ir.OpI64Xor:
		return fr.op(base) ^ fr.op(base+1), 0, nil
	case ir.OpI64Shl:
		return fr.op(base) << (fr.op(base+1) & 63), 0, nil
	case ir.OpI64ShrS:
		return cellI64(i64v(fr.op(base)) >> (fr.op(base+1) & 63)), 0, nil
	case ir.OpI64ShrU:
		return fr.op(base) >> (fr.op(base+1) & 63), 0, nil
	case ir.OpI64Rotl:
		return bits.RotateLeft64(fr.op(base), int(fr.op(base+1)&63)), 0, nil
	case ir.OpI64Rotr:
		return bits.RotateLeft64(fr.op(base), -int(fr.op(base+1)&63)), 0, nil

	// f32 arithmetic
	case ir.OpF32Abs:
		return cellF32(float32(math.Abs(float64(f32v(fr.op(base)))))), 0, nil
	case ir.OpF32Neg:
		return cellF32(-f32v(fr.op(base))), 0, nil
	case ir.OpF32Ceil:
		return cellF32(float32(math.Ceil(float64(f32v(fr.op(base)))))), 0, nil
	case ir.OpF32Floor:
		return cellF32(float32(math.Floor(float64(f32v(fr.op(base)))))), 0, nil
	case ir.OpF32Trunc:
		return cellF32(float32(math.Trunc(float64(f32v(fr.op(base)))))), 0, nil
	case ir.OpF32Nearest:
		return cellF32(float32(math.RoundToEven(float64(f32v(fr.op(base)))))), 0, nil
	case ir.OpF32Sqrt:
		return cellF32(float32(math.Sqrt(float64(f32v(fr.op(base)))))), 0, nil
	case ir.OpF32Add:
		return cellF32(f32v(fr.op(base)) + f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Sub:
		return cellF32(f32v(fr.op(base)) - f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Mul:
		return cellF32(f32v(fr.op(base)) * f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Div:
		return cellF32(f32v(fr.op(base)) / f32v(fr.op(base+1))), 0, nil
	case ir.OpF32Min:
		return cellF32(float32(wasmFMin(float64(f32v(fr.op(base))), float64(f32v(fr.op(base+1)))))), 0, nil
	case ir.OpF32Max:
		return cellF32(float32(wasmFMax(float64(f32v(fr.op(base))), float64(f32v(fr.op(base+1)))))), 0, nil
	case ir.OpF32Copysign:
		return cellF32(float32(math.Copysign(float64(f32v(fr.op(base))), float64(f32v(fr.op(base+1)))))), 0, nil

	// f64 arithmetic
	case ir.OpF64Abs:
		return cellF64(math.Abs(f64v(fr.op(base)))), 0, nil
	case ir.OpF64Neg:
		return cellF64(-f64v(fr.op(base))), 0, nil
	case ir.OpF64Ceil:
		return cellF64(math.Ceil(f64v(fr.op(base)))), 0, nil
	case ir.OpF64Floor:
		return cellF64(math.Floor(f64v(fr.op(base)))), 0, nil
	case ir.OpF64Trunc:
		return cellF64(math.Trunc(f64v(fr.op(base)))), 0, nil
	case ir.OpF64Nearest:
		return cellF64(math.RoundToEven(f64v(fr.op(base)))), 0, nil
	case ir.OpF64Sqrt:
		return cellF64(math.Sqrt(f64v(fr.op(base)))), 0, nil
	case ir.OpF64Add:
		return cellF64(f64v(fr.op(base)) + f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Sub:
		return cellF64(f64v(fr.op(base)) - f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Mul:
		return cellF64(f64v(fr.op(base)) * f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Div:
		return cellF64(f64v(fr.op(base)) / f64v(fr.op(base+1))), 0, nil
	case ir.OpF64Min:
		return cellF64(wasmFMin(f64v(fr.op(base)), f64v(fr.op(base+1)))), 0, nil
	case ir.OpF64Max:
		return cellF64(wasmFMax(f64v(fr.op(base)), f64v(fr.op(base+1)))), 0, nil
	case ir.OpF64Copysign:
		return cellF64(math.Copysign(f64v(fr.op(base)), f64v(fr.op(base+1)))), 0, nil

	// Conversions and reinterprets
	case ir.OpI32WrapI64:
		return cellI32(int32(fr.op(base))), 0, nil
	case ir.OpI32TruncF32S:
		return truncToI32(float64(f32v(fr.op(base))), false)
	case ir.OpI32TruncF32U:
		return truncToI32(float64(f32v(fr.op(base))), true)
	case ir.OpI32TruncF64S:
		return truncToI32(f64v(fr.op(base)), false)
	case ir.OpI32TruncF64U:
		return truncToI32(f64v(fr.op(base)), true)
	case ir.OpI64ExtendI32S:
		return cellI64(int64(i32(fr.op(base)))), 0, nil
	case ir.OpI64ExtendI32U:
		return cellI64(int64(u32(fr.op(base)))), 0, nil
	case ir.OpI64TruncF32S:
		return truncToI64(float64(f32v(fr.op(base))), false)
	case ir.OpI64TruncF32U:
		return truncToI64(float64(f32v(fr.op(base))), true)
	case ir.OpI64TruncF64S:
		return truncToI64(f64v(fr.op(base)), false)
	case ir.OpI64TruncF64U:
		return truncToI64(f64v(fr.op(base)), true)
	case ir.OpF32ConvertI32S:
		return cellF32(float32(i32(fr.op(base)))), 0, nil
	case ir.OpF32ConvertI32U:
		return cellF32(float32(u32(fr.op(base)))), 0, nil
	case ir.OpF32ConvertI64S:
		return cellF32(float32(i64v(fr.op(base)))), 0, nil
	case ir.OpF32ConvertI64U:
		return cellF32(float32(fr.op(base))), 0, nil
	case ir.OpF32DemoteF64:
		return cellF32(float32(f64v(fr.op(base)))), 0, nil
	case ir.OpF64ConvertI32S:
		return cellF64(float64(i32(fr.op(base)))), 0, nil
	case ir.OpF64ConvertI32U:
		return cellF64(float64(u32(fr.op(base)))), 0, nil
	case ir.OpF64ConvertI64S:
		return cellF64(float64(i64v(fr.op(base)))), 0, nil
	case ir.OpF64ConvertI64U:
		return cellF64(float64(fr.op(base))), 0, nil
	case ir.OpF64PromoteF32:
		return cellF64(float64(f32v(fr.op(base)))), 0, nil
	case ir.OpI32ReinterpretF32, ir.OpI64ReinterpretF64, ir.OpF32ReinterpretI32, ir.OpF64ReinterpretI64:
		return fr.op(base), 0, nil

	// Sign extension
	case ir.OpI32Extend8S:
		return cellI32(int32(int8(fr.op(base)))), 0, nil
	case ir.OpI32Extend16S:
		return cellI32(int32(int16(fr.op(base)))), 0, nil
	case ir.OpI64Extend8S:
		return cellI64(int64(int8(fr.op(base)))), 0, nil
	case ir.OpI64Extend16S:
		return cellI64(int64(int16(fr.op(base)))), 0, nil
	case ir.OpI64Extend32S:
		return cellI64(int64(int32(fr.op(base)))), 0, nil

	// Saturating truncation: clamps instead of trapping, NaN maps to 0.
	case ir.OpI32TruncSatF32S:
		return cellI32(satI32(float64(f32v(fr.op(base))))), 0, nil
	case ir.OpI32TruncSatF32U:
		return cellU32(satU32(float64(f32v(fr.op(base))))), 0, nil
	case ir.OpI32TruncSatF64S:
		return cellI32(satI32(f64v(fr.op(base)))), 0, nil
	case ir.OpI32TruncSatF64U:
		return cellU32(satU32(f64v(fr.op(base)))), 0, nil
	case ir.OpI64TruncSatF32S:
		return cellI64(satI64(float64(f32v(fr.op(base))))), 0, nil
	case ir.OpI64TruncSatF32U:
		return satU64(float64(f32v(fr.op(base)))), 0, nil
	case ir.OpI64TruncSatF64S:
		return cellI64(satI64(f64v(fr.op(base)))), 0, nil
	case ir.OpI64TruncSatF64U:
		return satU64(f64v(fr.op(base))), 0, nil
	}

	return 0, trap.NotSupported, errUnknownOp
}

var errDivideByZero = trapSentinel("divide by zero")
var errUnknownOp = trapSentinel("unknown numeric opcode")
var errTruncInvalid = trapSentinel("invalid truncation operand")

// trapSentinel is a plain string error: evalNumeric's callers only need
// a non-nil error to know the accompanying Kind is authoritative, never
// this message itself.
type trapSentinel string

func (e trapSentinel) Error() string { return string(e) }

// wasmFMin and wasmFMax apply Wasm's min/max NaN propagation and
// signed-zero tie-breaking, which differ from math.Min/Max's handling.
func wasmFMin(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if math.Signbit(a) || math.Signbit(b) {
			return math.Copysign(0, -1)
		}
		return 0
	}
	if a < b {
		return a
	}
	return b
}

func wasmFMax(a, b float64) float64 {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	if a == 0 && b == 0 {
		if !math.Signbit(a) || !math.Signbit(b) {
			return 0
		}
		return math.Copysign(0, -1)
	}
	if a > b {
		return a
	}
	return b
}

// truncToI32/truncToI64 implement the non-saturating trunc instructions:
// NaN and out-of-range operands trap rather than clamp.
func truncToI32(v float64, unsigned bool) (uint64, trap.Kind, error) {
	if math.IsNaN(v) {
		return 0, trap.InvalidParameter, errTruncInvalid
	}
	t := math.Trunc(v)
	if unsigned {
		if t < 0 || t > math.MaxUint32 {
			return 0, trap.InvalidParameter, errTruncInvalid
		}
		return cellU32(uint32(t)), 0, nil
	}
	if t < math.MinInt32 || t > math.MaxInt32 {
		return 0, trap.InvalidParameter, errTruncInvalid
	}
	return cellI32(int32(t)), 0, nil
}

func truncToI64(v float64, unsigned bool) (uint64, trap.Kind, error) {
	if math.IsNaN(v) {
		return 0, trap.InvalidParameter, errTruncInvalid
	}
	t := math.Trunc(v)
	if unsigned {
		if t < 0 || t >= math.MaxUint64 {
			return 0, trap.InvalidParameter, errTruncInvalid
		}
		return uint64(t), 0, nil
	}
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, trap.InvalidParameter, errTruncInvalid
	}
	return cellI64(int64(t)), 0, nil
}

func satI32(v float64) int32 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t < math.MinInt32 {
		return math.MinInt32
	}
	if t > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(t)
}

func satU32(v float64) uint32 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	t := math.Trunc(v)
	if t > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(t)
}

func satI64(v float64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	t := math.Trunc(v)
	if t < math.MinInt64 {
		return math.MinInt64
	}
	if t >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(t)
}

func satU64(v float64) uint64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	t := math.Trunc(v)
	if t >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(t)
}

// evalFusedArith executes a const-folded binary arithmetic op: one
// operand lives in the frame at BaseStackLevel, the other is the
// instruction's own immediate.
func evalFusedArith(inst *ir.Imc, fr *frame) uint64 {
	switch inst.Op {
	case ir.OpFusedI32AddI:
		return cellI32(i32(fr.op(inst.BaseStackLevel)) + inst.ImmI32)
	case ir.OpFusedI32SubI:
		return cellI32(i32(fr.op(inst.BaseStackLevel)) - inst.ImmI32)
	case ir.OpFusedI32AndI:
		return cellU32(u32(fr.op(inst.BaseStackLevel)) & uint32(inst.ImmI32))
	case ir.OpFusedI32OrI:
		return cellU32(u32(fr.op(inst.BaseStackLevel)) | uint32(inst.ImmI32))
	case ir.OpFusedI32XorI:
		return cellU32(u32(fr.op(inst.BaseStackLevel)) ^ uint32(inst.ImmI32))
	case ir.OpFusedI32ShlI:
		return cellU32(u32(fr.op(inst.BaseStackLevel)) << (uint32(inst.ImmI32) & 31))
	case ir.OpFusedI32ShrSI:
		return cellI32(i32(fr.op(inst.BaseStackLevel)) >> (uint32(inst.ImmI32) & 31))
	case ir.OpFusedI32ShrUI:
		return cellU32(u32(fr.op(inst.BaseStackLevel)) >> (uint32(inst.ImmI32) & 31))
	case ir.OpFusedI64AddI:
		return fr.op(inst.BaseStackLevel) + uint64(inst.ImmI64)
	case ir.OpFusedI64SubI:
		return fr.op(inst.BaseStackLevel) - uint64(inst.ImmI64)
	case ir.OpFusedI64AndI:
		return fr.op(inst.BaseStackLevel) & uint64(inst.ImmI64)
	case ir.OpFusedI64OrI:
		return fr.op(inst.BaseStackLevel) | uint64(inst.ImmI64)
	case ir.OpFusedI64XorI:
		return fr.op(inst.BaseStackLevel) ^ uint64(inst.ImmI64)
	case ir.OpFusedI64ShlI:
		return fr.op(inst.BaseStackLevel) << (uint64(inst.ImmI64) & 63)
	case ir.OpFusedI64ShrSI:
		return cellI64(i64v(fr.op(inst.BaseStackLevel)) >> (uint64(inst.ImmI64) & 63))
	case ir.OpFusedI64ShrUI:
		return fr.op(inst.BaseStackLevel) >> (uint64(inst.ImmI64) & 63)
	}
	panic("unreachable: unhandled fused arith op")
}

// evalFusedCompareBranch executes a fused compare-and-branch, reporting
// whether the branch is taken. Eqz/BrZ reads one operand; every other
// comparison reads two, both at/after base since the original compare
// wrote its boolean result back to base.
func evalFusedCompareBranch(op ir.Op, fr *frame, base int) bool {
	switch op {
	case ir.OpFusedI32BrZ:
		return i32(fr.op(base)) == 0
	case ir.OpFusedI32BrEq:
		return i32(fr.op(base)) == i32(fr.op(base+1))
	case ir.OpFusedI32BrNe:
		return i32(fr.op(base)) != i32(fr.op(base+1))
	case ir.OpFusedI32BrLtS:
		return i32(fr.op(base)) < i32(fr.op(base+1))
	case ir.OpFusedI32BrLtU:
		return u32(fr.op(base)) < u32(fr.op(base+1))
	case ir.OpFusedI32BrGtS:
		return i32(fr.op(base)) > i32(fr.op(base+1))
	case ir.OpFusedI32BrGtU:
		return u32(fr.op(base)) > u32(fr.op(base+1))
	case ir.OpFusedI32BrLeS:
		return i32(fr.op(base)) <= i32(fr.op(base+1))
	case ir.OpFusedI32BrLeU:
		return u32(fr.op(base)) <= u32(fr.op(base+1))
	case ir.OpFusedI32BrGeS:
		return i32(fr.op(base)) >= i32(fr.op(base+1))
	case ir.OpFusedI32BrGeU:
		return u32(fr.op(base)) >= u32(fr.op(base+1))
	case ir.OpFusedI64BrZ:
		return i64v(fr.op(base)) == 0
	case ir.OpFusedI64BrEq:
		return i64v(fr.op(base)) == i64v(fr.op(base+1))
	case ir.OpFusedI64BrNe:
		return i64v(fr.op(base)) != i64v(fr.op(base+1))
	}
	panic("unreachable: unhandled fused compare-branch op")
}
