package interpreter

import (
	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/wasmmem"
)

// execLoad performs one load opcode's read at offset+addr, sign- or
// zero-extending narrow reads per the opcode's S/U suffix, and returns
// the result as a cell (ok=false on out-of-bounds).
func (e *Engine) execLoad(op ir.Op, mem *wasmmem.Memory, offset, addr uint32) (uint64, bool) {
	switch op {
	case ir.OpI32Load:
		v, ok := mem.ReadU32(offset, addr)
		return cellI32(int32(v)), ok
	case ir.OpI64Load:
		v, ok := mem.ReadU64(offset, addr)
		return v, ok
	case ir.OpF32Load:
		v, ok := mem.ReadU32(offset, addr)
		return uint64(v), ok
	case ir.OpF64Load:
		v, ok := mem.ReadU64(offset, addr)
		return v, ok
	case ir.OpI32Load8S:
		v, ok := mem.ReadByte(offset, addr)
		return cellI32(int32(int8(v))), ok
	case ir.OpI32Load8U:
		v, ok := mem.ReadByte(offset, addr)
		return cellI32(int32(v)), ok
	case ir.OpI32Load16S:
		v, ok := mem.ReadU16(offset, addr)
		return cellI32(int32(int16(v))), ok
	case ir.OpI32Load16U:
		v, ok := mem.ReadU16(offset, addr)
		return cellI32(int32(v)), ok
	case ir.OpI64Load8S:
		v, ok := mem.ReadByte(offset, addr)
		return cellI64(int64(int8(v))), ok
	case ir.OpI64Load8U:
		v, ok := mem.ReadByte(offset, addr)
		return cellI64(int64(v)), ok
	case ir.OpI64Load16S:
		v, ok := mem.ReadU16(offset, addr)
		return cellI64(int64(int16(v))), ok
	case ir.OpI64Load16U:
		v, ok := mem.ReadU16(offset, addr)
		return cellI64(int64(v)), ok
	case ir.OpI64Load32S:
		v, ok := mem.ReadU32(offset, addr)
		return cellI64(int64(int32(v))), ok
	case ir.OpI64Load32U:
		v, ok := mem.ReadU32(offset, addr)
		return cellI64(int64(v)), ok
	}
	panic("unreachable: unhandled load op")
}

// execStore performs one store opcode's write at offset+addr, truncating
// the value to the opcode's declared width.
func (e *Engine) execStore(op ir.Op, mem *wasmmem.Memory, offset, addr uint32, val uint64) bool {
	switch op {
	case ir.OpI32Store, ir.OpF32Store:
		return mem.WriteU32(offset, addr, uint32(val))
	case ir.OpI64Store, ir.OpF64Store:
		return mem.WriteU64(offset, addr, val)
	case ir.OpI32Store8, ir.OpI64Store8:
		return mem.WriteByte(offset, addr, byte(val))
	case ir.OpI32Store16, ir.OpI64Store16:
		return mem.WriteU16(offset, addr, uint16(val))
	case ir.OpI64Store32:
		return mem.WriteU32(offset, addr, uint32(val))
	}
	panic("unreachable: unhandled store op")
}
