package wazeroir

import "github.com/wami-rt/wami/internal/ir"

// fuse runs a single non-overlapping pass over in, rewriting adjacent
// instruction pairs the interpreter can execute faster as one fused
// instruction. The first slot of a fused pair becomes a Marker(Nop);
// compact.go drops those. Only immediately-adjacent pairs are
// considered — this is a peephole pass, not a general scheduler.
func fuse(in []ir.Imc) []ir.Imc {
	out := make([]ir.Imc, len(in))
	copy(out, in)

	for i := 0; i < len(out)-1; i++ {
		a, b := out[i], out[i+1]

		if fused, ok := fuseConstSet(a, b); ok {
			out[i] = ir.Imc{Op: ir.OpMarkerNop}
			out[i+1] = fused
			i++
			continue
		}
		if fused, ok := fuseConstArith(a, b); ok {
			out[i] = ir.Imc{Op: ir.OpMarkerNop}
			out[i+1] = fused
			i++
			continue
		}
		if fused, ok := fuseCompareBranch(a, b); ok {
			out[i] = ir.Imc{Op: ir.OpMarkerNop}
			out[i+1] = fused
			i++
			continue
		}
	}
	return out
}

// fuseConstSet rewrites `i32.const c; local.set L` (and the i64 form)
// into a single store-of-immediate instruction.
func fuseConstSet(a, b ir.Imc) (ir.Imc, bool) {
	switch {
	case a.Op == ir.OpI32Const && b.Op == ir.OpLocalSetInt:
		return ir.Imc{Op: ir.OpFusedI32SetConst, BaseStackLevel: b.BaseStackLevel, VarIndex: b.VarIndex, ImmI32: a.ImmI32, SrcPos: b.SrcPos}, true
	case a.Op == ir.OpI64Const && b.Op == ir.OpLocalSetInt:
		return ir.Imc{Op: ir.OpFusedI64SetConst, BaseStackLevel: b.BaseStackLevel, VarIndex: b.VarIndex, ImmI64: a.ImmI64, SrcPos: b.SrcPos}, true
	}
	return ir.Imc{}, false
}

var i32ArithFuse = map[ir.Op]ir.Op{
	ir.OpI32Add: ir.OpFusedI32AddI,
	ir.OpI32Sub: ir.OpFusedI32SubI,
	ir.OpI32And: ir.OpFusedI32AndI,
	ir.OpI32Or:  ir.OpFusedI32OrI,
	ir.OpI32Xor: ir.OpFusedI32XorI,
	ir.OpI32Shl: ir.OpFusedI32ShlI,
	ir.OpI32ShrS: ir.OpFusedI32ShrSI,
	ir.OpI32ShrU: ir.OpFusedI32ShrUI,
}

var i64ArithFuse = map[ir.Op]ir.Op{
	ir.OpI64Add: ir.OpFusedI64AddI,
	ir.OpI64Sub: ir.OpFusedI64SubI,
	ir.OpI64And: ir.OpFusedI64AndI,
	ir.OpI64Or:  ir.OpFusedI64OrI,
	ir.OpI64Xor: ir.OpFusedI64XorI,
	ir.OpI64Shl: ir.OpFusedI64ShlI,
	ir.OpI64ShrS: ir.OpFusedI64ShrSI,
	ir.OpI64ShrU: ir.OpFusedI64ShrUI,
}

// fuseConstArith rewrites `i32.const c; i32.<arith>` into the
// corresponding fused-immediate op, saving a const-push for the
// interpreter's common constant-operand case. The surviving operand (the
// value pushed before the const) and the result both sit at b's base
// level, not a's: the binary op pops two and pushes one, landing one
// slot below where the const itself was written.
func fuseConstArith(a, b ir.Imc) (ir.Imc, bool) {
	if a.Op == ir.OpI32Const {
		if fused, ok := i32ArithFuse[b.Op]; ok {
			return ir.Imc{Op: fused, BaseStackLevel: b.BaseStackLevel, ImmI32: a.ImmI32, SrcPos: b.SrcPos}, true
		}
	}
	if a.Op == ir.OpI64Const {
		if fused, ok := i64ArithFuse[b.Op]; ok {
			return ir.Imc{Op: fused, BaseStackLevel: b.BaseStackLevel, ImmI64: a.ImmI64, SrcPos: b.SrcPos}, true
		}
	}
	return ir.Imc{}, false
}

var i32CompareBrFuse = map[ir.Op]ir.Op{
	ir.OpI32Eqz: ir.OpFusedI32BrZ,
	ir.OpI32Eq:  ir.OpFusedI32BrEq,
	ir.OpI32Ne:  ir.OpFusedI32BrNe,
	ir.OpI32LtS: ir.OpFusedI32BrLtS,
	ir.OpI32LtU: ir.OpFusedI32BrLtU,
	ir.OpI32GtS: ir.OpFusedI32BrGtS,
	ir.OpI32GtU: ir.OpFusedI32BrGtU,
	ir.OpI32LeS: ir.OpFusedI32BrLeS,
	ir.OpI32LeU: ir.OpFusedI32BrLeU,
	ir.OpI32GeS: ir.OpFusedI32BrGeS,
	ir.OpI32GeU: ir.OpFusedI32BrGeU,
}

var i64CompareBrFuse = map[ir.Op]ir.Op{
	ir.OpI64Eqz: ir.OpFusedI64BrZ,
	ir.OpI64Eq:  ir.OpFusedI64BrEq,
	ir.OpI64Ne:  ir.OpFusedI64BrNe,
}

// fuseCompareBranch rewrites `i32.<cmp>; br_if L` into a single fused
// compare-and-branch when the br_if is a plain (non-result-carrying)
// branch — the common `if (a < b) goto` shape in compiled loops.
func fuseCompareBranch(a, b ir.Imc) (ir.Imc, bool) {
	if b.Op != ir.OpBrIf {
		return ir.Imc{}, false
	}
	if fused, ok := i32CompareBrFuse[a.Op]; ok {
		return ir.Imc{Op: fused, BaseStackLevel: a.BaseStackLevel, BlockID: b.BlockID, SrcPos: b.SrcPos}, true
	}
	if fused, ok := i64CompareBrFuse[a.Op]; ok {
		return ir.Imc{Op: fused, BaseStackLevel: a.BaseStackLevel, BlockID: b.BlockID, SrcPos: b.SrcPos}, true
	}
	return ir.Imc{}, false
}
