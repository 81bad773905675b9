package wazeroir

import (
	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/leb128"
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasmdebug"
)

// readMemarg reads the (align, offset) pair every load/store/misc memory
// op carries. align is decoded but unused: this core does not exploit
// alignment hints, it always does unaligned little-endian access.
func (c *compiler) readMemarg() (offset uint32, err error) {
	if _, _, err = leb128.DecodeUint32(c.r); err != nil {
		return 0, wasmdebug.New(wasmdebug.UnexpectedToken, "memarg align")
	}
	offset, _, err = leb128.DecodeUint32(c.r)
	if err != nil {
		return 0, wasmdebug.New(wasmdebug.UnexpectedToken, "memarg offset")
	}
	return offset, nil
}

func (c *compiler) decodeLoad(op wasm.Opcode, pos int) error {
	if !c.module.HasMemory() {
		return wasmdebug.New(wasmdebug.OutOfMemory, "memory access without a memory")
	}
	offset, err := c.readMemarg()
	if err != nil {
		return err
	}
	if e := c.expect(i32); e != nil {
		return e
	}
	irOp, result := loadOpInfo(op)
	base := len(c.valueStack) // load's single address operand is already popped from the logical stack, but the IR result overwrites that slot
	c.emit(ir.Imc{Op: irOp, BaseStackLevel: base, MemOffset: offset, SrcPos: pos})
	c.push(result)
	return nil
}

func (c *compiler) decodeStore(op wasm.Opcode, pos int) error {
	if !c.module.HasMemory() {
		return wasmdebug.New(wasmdebug.OutOfMemory, "memory access without a memory")
	}
	offset, err := c.readMemarg()
	if err != nil {
		return err
	}
	irOp, valType := storeOpInfo(op)
	if e := c.expect(valType); e != nil {
		return e
	}
	if e := c.expect(i32); e != nil {
		return e
	}
	c.emit(ir.Imc{Op: irOp, BaseStackLevel: len(c.valueStack), MemOffset: offset, SrcPos: pos})
	return nil
}

func loadOpInfo(op wasm.Opcode) (ir.Op, wasm.ValueType) {
	switch op {
	case wasm.OpcodeI32Load:
		return ir.OpI32Load, i32
	case wasm.OpcodeI64Load:
		return ir.OpI64Load, i64
	case wasm.OpcodeF32Load:
		return ir.OpF32Load, f32
	case wasm.OpcodeF64Load:
		return ir.OpF64Load, f64
	case wasm.OpcodeI32Load8S:
		return ir.OpI32Load8S, i32
	case wasm.OpcodeI32Load8U:
		return ir.OpI32Load8U, i32
	case wasm.OpcodeI32Load16S:
		return ir.OpI32Load16S, i32
	case wasm.OpcodeI32Load16U:
		return ir.OpI32Load16U, i32
	case wasm.OpcodeI64Load8S:
		return ir.OpI64Load8S, i64
	case wasm.OpcodeI64Load8U:
		return ir.OpI64Load8U, i64
	case wasm.OpcodeI64Load16S:
		return ir.OpI64Load16S, i64
	case wasm.OpcodeI64Load16U:
		return ir.OpI64Load16U, i64
	case wasm.OpcodeI64Load32S:
		return ir.OpI64Load32S, i64
	case wasm.OpcodeI64Load32U:
		return ir.OpI64Load32U, i64
	}
	panic("unreachable: unhandled load opcode")
}

func storeOpInfo(op wasm.Opcode) (ir.Op, wasm.ValueType) {
	switch op {
	case wasm.OpcodeI32Store:
		return ir.OpI32Store, i32
	case wasm.OpcodeI64Store:
		return ir.OpI64Store, i64
	case wasm.OpcodeF32Store:
		return ir.OpF32Store, f32
	case wasm.OpcodeF64Store:
		return ir.OpF64Store, f64
	case wasm.OpcodeI32Store8:
		return ir.OpI32Store8, i32
	case wasm.OpcodeI32Store16:
		return ir.OpI32Store16, i32
	case wasm.OpcodeI64Store8:
		return ir.OpI64Store8, i64
	case wasm.OpcodeI64Store16:
		return ir.OpI64Store16, i64
	case wasm.OpcodeI64Store32:
		return ir.OpI64Store32, i64
	}
	panic("unreachable: unhandled store opcode")
}

// decodeMisc handles the 0xFC-prefixed sub-opcode space: saturating
// truncation (0-7) and bulk-memory copy/fill (10-11). memory.init,
// data.drop, table.init, elem.drop, and table.copy (8, 9, 12-14) are out
// of scope and reported as decode-time unsupported-opcode errors, since
// this core has neither passive segments nor multiple tables.
func (c *compiler) decodeMisc(pos int) error {
	sub, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "misc sub-opcode")
	}
	switch sub {
	case wasm.MiscI32TruncSatF32S, wasm.MiscI32TruncSatF32U, wasm.MiscI32TruncSatF64S, wasm.MiscI32TruncSatF64U,
		wasm.MiscI64TruncSatF32S, wasm.MiscI64TruncSatF32U, wasm.MiscI64TruncSatF64S, wasm.MiscI64TruncSatF64U:
		return c.decodeTruncSat(sub, pos)
	case wasm.MiscMemoryCopy:
		return c.decodeMemoryCopy(pos)
	case wasm.MiscMemoryFill:
		return c.decodeMemoryFill(pos)
	default:
		return wasmdebug.New(wasmdebug.UnsupportedOpCode, "bulk memory/table op is not supported")
	}
}

func (c *compiler) decodeTruncSat(sub uint32, pos int) error {
	srcType, irOp, dstType := truncSatOpInfo(sub)
	if e := c.expect(srcType); e != nil {
		return e
	}
	c.emit(ir.Imc{Op: irOp, BaseStackLevel: len(c.valueStack), SrcPos: pos})
	c.push(dstType)
	return nil
}

func truncSatOpInfo(sub uint32) (src wasm.ValueType, op ir.Op, dst wasm.ValueType) {
	switch sub {
	case wasm.MiscI32TruncSatF32S:
		return f32, ir.OpI32TruncSatF32S, i32
	case wasm.MiscI32TruncSatF32U:
		return f32, ir.OpI32TruncSatF32U, i32
	case wasm.MiscI32TruncSatF64S:
		return f64, ir.OpI32TruncSatF64S, i32
	case wasm.MiscI32TruncSatF64U:
		return f64, ir.OpI32TruncSatF64U, i32
	case wasm.MiscI64TruncSatF32S:
		return f32, ir.OpI64TruncSatF32S, i64
	case wasm.MiscI64TruncSatF32U:
		return f32, ir.OpI64TruncSatF32U, i64
	case wasm.MiscI64TruncSatF64S:
		return f64, ir.OpI64TruncSatF64S, i64
	case wasm.MiscI64TruncSatF64U:
		return f64, ir.OpI64TruncSatF64U, i64
	}
	panic("unreachable: unhandled trunc_sat sub-opcode")
}

func (c *compiler) decodeMemoryCopy(pos int) error {
	if !c.module.HasMemory() {
		return wasmdebug.New(wasmdebug.OutOfMemory, "memory.copy without a memory")
	}
	// Two memory-index bytes, both required to be 0 (single memory only).
	for i := 0; i < 2; i++ {
		idx, e := c.r.ReadByte()
		if e != nil {
			return wasmdebug.New(wasmdebug.UnexpectedToken, "memory.copy memory index")
		}
		if idx != 0 {
			return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-memory is not supported")
		}
	}
	if e := c.expect(i32); e != nil { // n
		return e
	}
	if e := c.expect(i32); e != nil { // src
		return e
	}
	if e := c.expect(i32); e != nil { // dst
		return e
	}
	c.emit(ir.Imc{Op: ir.OpMemoryCopy, BaseStackLevel: len(c.valueStack), SrcPos: pos})
	return nil
}

func (c *compiler) decodeMemoryFill(pos int) error {
	if !c.module.HasMemory() {
		return wasmdebug.New(wasmdebug.OutOfMemory, "memory.fill without a memory")
	}
	idx, e := c.r.ReadByte()
	if e != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "memory.fill memory index")
	}
	if idx != 0 {
		return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-memory is not supported")
	}
	if e := c.expect(i32); e != nil { // n
		return e
	}
	if e := c.expect(i32); e != nil { // val
		return e
	}
	if e := c.expect(i32); e != nil { // dst
		return e
	}
	c.emit(ir.Imc{Op: ir.OpMemoryFill, BaseStackLevel: len(c.valueStack), SrcPos: pos})
	return nil
}
