package interpreter

import (
	"context"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/trap"
	"github.com/wami-rt/wami/internal/wasm"
)

// run walks fd.Code.IR from position 0, dispatching on each Imc's Op.
// Position jumps happen by assigning pos directly from a branch target;
// everything else falls through to pos++. The IR always ends with an
// Unreachable sentinel so a runaway position counter traps instead of
// reading out of bounds.
func (e *Engine) run(ctx context.Context, fd *wasm.FunctionDescriptor, fr *frame) (wasm.TypedValue, error) {
	code := fd.Code
	pos := 0
	for {
		inst := &code.IR[pos]

		switch inst.Op {
		case ir.OpUnreachable:
			return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trap.Unreachable, "unreachable")
		case ir.OpNotSupported:
			return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trap.NotSupported, "not-supported")

		case ir.OpReturnNone:
			return wasm.TypedValue{}, nil
		case ir.OpReturnInt:
			return wasm.TypedValue{Type: wasm.ValueTypeI32, Bits: fr.op(inst.BaseStackLevel)}, nil
		case ir.OpReturnFloat:
			return wasm.TypedValue{Type: wasm.ValueTypeF32, Bits: fr.op(inst.BaseStackLevel)}, nil

		case ir.OpIf:
			if fr.op(inst.BaseStackLevel) == 0 {
				pos = inst.Target
			} else {
				pos++
			}
			continue

		case ir.OpBr:
			pos = inst.Target
			continue
		case ir.OpBrIf:
			if fr.op(inst.BaseStackLevel) != 0 {
				pos = inst.Target
			} else {
				pos++
			}
			continue
		case ir.OpBrUnwind:
			fr.setOp(inst.UnwindLevel, fr.op(inst.BaseStackLevel-1))
			pos = inst.Target
			continue
		case ir.OpBrIfUnwind:
			if fr.op(inst.BaseStackLevel) != 0 {
				fr.setOp(inst.UnwindLevel, fr.op(inst.BaseStackLevel-1))
				pos = inst.Target
			} else {
				pos++
			}
			continue
		case ir.OpBrTable:
			sel := int(i32(fr.op(inst.BaseStackLevel)))
			if sel < 0 || sel >= len(inst.Targets)-1 {
				sel = len(inst.Targets) - 1
			}
			pos = inst.Targets[sel]
			continue

		case ir.OpFusedI32BrZ, ir.OpFusedI32BrEq, ir.OpFusedI32BrNe,
			ir.OpFusedI32BrLtS, ir.OpFusedI32BrLtU, ir.OpFusedI32BrGtS, ir.OpFusedI32BrGtU,
			ir.OpFusedI32BrLeS, ir.OpFusedI32BrLeU, ir.OpFusedI32BrGeS, ir.OpFusedI32BrGeU,
			ir.OpFusedI64BrZ, ir.OpFusedI64BrEq, ir.OpFusedI64BrNe:
			if evalFusedCompareBranch(inst.Op, fr, inst.BaseStackLevel) {
				pos = inst.Target
			} else {
				pos++
			}
			continue

		case ir.OpDrop:
			// No runtime action: the compiler recomputed every later
			// instruction's base_stack_level as if this slot never
			// existed.

		case ir.OpCall:
			res, err := e.callFrom(ctx, inst.CallIndex, fr, inst.BaseStackLevel)
			if err != nil {
				return wasm.TypedValue{}, err
			}
			if len(e.Instance.Module.TypeOf(inst.CallIndex).Results) > 0 {
				fr.setOp(inst.BaseStackLevel, res.Bits)
			}

		case ir.OpCallIndirect:
			res, err := e.callIndirect(ctx, inst, fr, fd)
			if err != nil {
				return wasm.TypedValue{}, err
			}
			if len(e.Instance.Module.TypeByIndex(inst.CallIndex).Results) > 0 {
				fr.setOp(inst.BaseStackLevel, res.Bits)
			}

		case ir.OpSelectInt, ir.OpSelectFloat:
			cond := fr.op(inst.BaseStackLevel + 2)
			if cond != 0 {
				fr.setOp(inst.BaseStackLevel, fr.op(inst.BaseStackLevel))
			} else {
				fr.setOp(inst.BaseStackLevel, fr.op(inst.BaseStackLevel+1))
			}

		case ir.OpLocalGetInt, ir.OpLocalGetFloat:
			fr.setOp(inst.BaseStackLevel, fr.local(inst.VarIndex))
		case ir.OpLocalSetInt, ir.OpLocalSetFloat:
			fr.setLocal(inst.VarIndex, fr.op(inst.BaseStackLevel))
		case ir.OpLocalTeeInt, ir.OpLocalTeeFloat:
			v := fr.op(inst.BaseStackLevel)
			fr.setLocal(inst.VarIndex, v)
			fr.setOp(inst.BaseStackLevel, v)
		case ir.OpGlobalGetInt, ir.OpGlobalGetFloat:
			fr.setOp(inst.BaseStackLevel, uint64(e.Instance.Global(inst.VarIndex)))
		case ir.OpGlobalSetInt, ir.OpGlobalSetFloat:
			e.Instance.SetGlobal(inst.VarIndex, wasm.Cell(fr.op(inst.BaseStackLevel)))

		case ir.OpI32Const:
			fr.setOp(inst.BaseStackLevel, cellI32(inst.ImmI32))
		case ir.OpI64Const:
			fr.setOp(inst.BaseStackLevel, cellI64(inst.ImmI64))
		case ir.OpF32Const:
			fr.setOp(inst.BaseStackLevel, cellF32(inst.ImmF32))
		case ir.OpF64Const:
			fr.setOp(inst.BaseStackLevel, cellF64(inst.ImmF64))

		case ir.OpFusedI32SetConst:
			fr.setLocal(inst.VarIndex, cellI32(inst.ImmI32))
		case ir.OpFusedI64SetConst:
			fr.setLocal(inst.VarIndex, cellI64(inst.ImmI64))

		case ir.OpFusedI32AddI, ir.OpFusedI32SubI, ir.OpFusedI32AndI, ir.OpFusedI32OrI, ir.OpFusedI32XorI,
			ir.OpFusedI32ShlI, ir.OpFusedI32ShrSI, ir.OpFusedI32ShrUI,
			ir.OpFusedI64AddI, ir.OpFusedI64SubI, ir.OpFusedI64AndI, ir.OpFusedI64OrI, ir.OpFusedI64XorI,
			ir.OpFusedI64ShlI, ir.OpFusedI64ShrSI, ir.OpFusedI64ShrUI:
			fr.setOp(inst.BaseStackLevel, evalFusedArith(inst, fr))

		case ir.OpI32Load, ir.OpI64Load, ir.OpF32Load, ir.OpF64Load,
			ir.OpI32Load8S, ir.OpI32Load8U, ir.OpI32Load16S, ir.OpI32Load16U,
			ir.OpI64Load8S, ir.OpI64Load8U, ir.OpI64Load16S, ir.OpI64Load16U,
			ir.OpI64Load32S, ir.OpI64Load32U:
			v, ok := e.execLoad(inst.Op, e.Instance.Memory, inst.MemOffset, u32(fr.op(inst.BaseStackLevel)))
			if !ok {
				return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trap.OutOfBounds, "load")
			}
			fr.setOp(inst.BaseStackLevel, v)

		case ir.OpI32Store, ir.OpI64Store, ir.OpF32Store, ir.OpF64Store,
			ir.OpI32Store8, ir.OpI32Store16, ir.OpI64Store8, ir.OpI64Store16, ir.OpI64Store32:
			addr := u32(fr.op(inst.BaseStackLevel))
			val := fr.op(inst.BaseStackLevel + 1)
			if !e.execStore(inst.Op, e.Instance.Memory, inst.MemOffset, addr, val) {
				return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trap.OutOfBounds, "store")
			}

		case ir.OpMemorySize:
			fr.setOp(inst.BaseStackLevel, cellI32(int32(e.Instance.Memory.SizePages())))
		case ir.OpMemoryGrow:
			delta := u32(fr.op(inst.BaseStackLevel))
			prev, ok := e.Instance.Memory.Grow(delta)
			if !ok {
				fr.setOp(inst.BaseStackLevel, cellI32(-1))
			} else {
				fr.setOp(inst.BaseStackLevel, cellI32(int32(prev)))
			}
		case ir.OpMemoryCopy:
			dst := u32(fr.op(inst.BaseStackLevel))
			src := u32(fr.op(inst.BaseStackLevel + 1))
			n := u32(fr.op(inst.BaseStackLevel + 2))
			if !e.Instance.Memory.Copy(dst, src, n) {
				return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trap.OutOfBounds, "memory.copy")
			}
		case ir.OpMemoryFill:
			dst := u32(fr.op(inst.BaseStackLevel))
			val := byte(u32(fr.op(inst.BaseStackLevel + 1)))
			n := u32(fr.op(inst.BaseStackLevel + 2))
			if !e.Instance.Memory.Fill(dst, val, n) {
				return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trap.OutOfBounds, "memory.fill")
			}

		default:
			v, trapKind, err := evalNumeric(inst.Op, fr, inst.BaseStackLevel)
			if err != nil {
				return wasm.TypedValue{}, e.trapAt(fd, inst.SrcPos, trapKind, "numeric")
			}
			fr.setOp(inst.BaseStackLevel, v)
		}
		pos++
	}
}

// callFrom evaluates a direct call's arguments out of the caller's
// frame and dispatches through Engine.Call.
func (e *Engine) callFrom(ctx context.Context, funcIndex uint32, fr *frame, base int) (wasm.TypedValue, error) {
	sig := e.Instance.Module.TypeOf(funcIndex)
	args := make([]wasm.Cell, len(sig.Params))
	for i := range args {
		args[i] = wasm.Cell(fr.op(base + i))
	}
	return e.Call(ctx, funcIndex, args)
}

func (e *Engine) callIndirect(ctx context.Context, inst *ir.Imc, fr *frame, callerFd *wasm.FunctionDescriptor) (wasm.TypedValue, error) {
	module := e.Instance.Module
	table := e.Instance.Table
	declaredType := module.TypeByIndex(inst.CallIndex)

	tableIdx := i32(fr.op(inst.BaseStackLevel + len(declaredType.Params)))
	if table == nil || tableIdx < 0 || int(tableIdx) >= len(table.Entries) {
		return wasm.TypedValue{}, e.trapAt(callerFd, inst.SrcPos, trap.OutOfBounds, "call_indirect")
	}
	funcIndex := table.Entries[tableIdx]
	if funcIndex < 0 {
		return wasm.TypedValue{}, e.trapAt(callerFd, inst.SrcPos, trap.NoMethod, "call_indirect")
	}
	actualType := module.TypeOf(uint32(funcIndex))
	if !declaredType.Equal(actualType) {
		return wasm.TypedValue{}, e.trapAt(callerFd, inst.SrcPos, trap.TypeMismatch, "call_indirect")
	}
	args := make([]wasm.Cell, len(actualType.Params))
	for i := range args {
		args[i] = wasm.Cell(fr.op(inst.BaseStackLevel + i))
	}
	return e.Call(ctx, uint32(funcIndex), args)
}
