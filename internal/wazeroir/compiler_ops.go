package wazeroir

import (
	"fmt"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/leb128"
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasmdebug"
)

const (
	i32 = wasm.ValueTypeI32
	i64 = wasm.ValueTypeI64
	f32 = wasm.ValueTypeF32
	f64 = wasm.ValueTypeF64
)

// run decodes the instruction stream one opcode at a time until the
// function-level block's `end` emits the terminal Return and stops, or
// an error occurs.
func (c *compiler) run() error {
	for {
		pos := c.pos()
		ob, err := c.r.ReadByte()
		if err != nil {
			return wasmdebug.New(wasmdebug.UnexpectedEOF, "reading opcode")
		}
		op := wasm.Opcode(ob)

		done, err := c.step(op, pos)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// step decodes and lowers one instruction. done is true once the
// function-level block has been closed.
func (c *compiler) step(op wasm.Opcode, pos int) (done bool, err error) {
	switch op {
	case wasm.OpcodeUnreachable:
		c.emit(ir.Imc{Op: ir.OpUnreachable, BaseStackLevel: len(c.valueStack), SrcPos: pos})
		c.unreachable = true
		return false, nil

	case wasm.OpcodeNop:
		return false, nil

	case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf:
		return false, c.decodeStructured(op)

	case wasm.OpcodeElse:
		return false, c.decodeElse()

	case wasm.OpcodeEnd:
		return c.decodeEnd()

	case wasm.OpcodeBr:
		return false, c.decodeBr(false)
	case wasm.OpcodeBrIf:
		return false, c.decodeBr(true)
	case wasm.OpcodeBrTable:
		return false, c.decodeBrTable()

	case wasm.OpcodeReturn:
		return false, c.decodeReturnStmt(pos)

	case wasm.OpcodeCall:
		return false, c.decodeCall(pos)
	case wasm.OpcodeCallIndirect:
		return false, c.decodeCallIndirect(pos)

	case wasm.OpcodeDrop:
		c.pop()
		c.emit(ir.Imc{Op: ir.OpDrop, BaseStackLevel: len(c.valueStack)})
		return false, nil

	case wasm.OpcodeSelect:
		return false, c.decodeSelect()

	case wasm.OpcodeLocalGet:
		return false, c.decodeLocalGet()
	case wasm.OpcodeLocalSet:
		return false, c.decodeLocalSet(false)
	case wasm.OpcodeLocalTee:
		return false, c.decodeLocalSet(true)
	case wasm.OpcodeGlobalGet:
		return false, c.decodeGlobalGet()
	case wasm.OpcodeGlobalSet:
		return false, c.decodeGlobalSet()

	case wasm.OpcodeI32Const:
		v, _, e := leb128.DecodeInt32(c.r)
		if e != nil {
			return false, wasmdebug.New(wasmdebug.UnexpectedToken, "i32.const")
		}
		c.emit(ir.Imc{Op: ir.OpI32Const, BaseStackLevel: c.baseLevelForProducer(), ImmI32: v})
		c.push(i32)
		return false, nil
	case wasm.OpcodeI64Const:
		v, _, e := leb128.DecodeInt64(c.r)
		if e != nil {
			return false, wasmdebug.New(wasmdebug.UnexpectedToken, "i64.const")
		}
		c.emit(ir.Imc{Op: ir.OpI64Const, BaseStackLevel: c.baseLevelForProducer(), ImmI64: v})
		c.push(i64)
		return false, nil
	case wasm.OpcodeF32Const:
		bits, e := c.readU32()
		if e != nil {
			return false, e
		}
		c.emit(ir.Imc{Op: ir.OpF32Const, BaseStackLevel: c.baseLevelForProducer(), ImmF32: leb128.F32Bits(bits)})
		c.push(f32)
		return false, nil
	case wasm.OpcodeF64Const:
		bits, e := c.readU64()
		if e != nil {
			return false, e
		}
		c.emit(ir.Imc{Op: ir.OpF64Const, BaseStackLevel: c.baseLevelForProducer(), ImmF64: leb128.F64Bits(bits)})
		c.push(f64)
		return false, nil

	case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
		wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
		wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U:
		return false, c.decodeLoad(op, pos)

	case wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
		wasm.OpcodeI32Store8, wasm.OpcodeI32Store16, wasm.OpcodeI64Store8, wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
		return false, c.decodeStore(op, pos)

	case wasm.OpcodeMemorySize:
		if _, e := c.r.ReadByte(); e != nil { // reserved byte, must be 0
			return false, wasmdebug.New(wasmdebug.UnexpectedToken, "memory.size")
		}
		if !c.module.HasMemory() {
			return false, wasmdebug.New(wasmdebug.OutOfMemory, "memory.size without a memory")
		}
		c.emit(ir.Imc{Op: ir.OpMemorySize, BaseStackLevel: c.baseLevelForProducer()})
		c.push(i32)
		return false, nil

	case wasm.OpcodeMemoryGrow:
		if _, e := c.r.ReadByte(); e != nil {
			return false, wasmdebug.New(wasmdebug.UnexpectedToken, "memory.grow")
		}
		if !c.module.HasMemory() {
			return false, wasmdebug.New(wasmdebug.OutOfMemory, "memory.grow without a memory")
		}
		if e := c.expect(i32); e != nil {
			return false, e
		}
		c.emit(ir.Imc{Op: ir.OpMemoryGrow, BaseStackLevel: len(c.valueStack)})
		c.push(i32)
		return false, nil

	case wasm.OpcodeMiscPrefix:
		return false, c.decodeMisc(pos)

	default:
		return c.decodeNumeric(op, pos)
	}
}

func (c *compiler) readU32() (uint32, error) {
	var b [4]byte
	for i := range b {
		v, e := c.r.ReadByte()
		if e != nil {
			return 0, wasmdebug.New(wasmdebug.UnexpectedEOF, "reading fixed-width value")
		}
		b[i] = v
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (c *compiler) readU64() (uint64, error) {
	lo, e := c.readU32()
	if e != nil {
		return 0, e
	}
	hi, e := c.readU32()
	if e != nil {
		return 0, e
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// --- structured control flow ---

func (c *compiler) decodeStructured(op wasm.Opcode) error {
	v, _, err := leb128.DecodeInt33AsInt64(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "reading blocktype")
	}
	hasResult := false
	var resultType wasm.ValueType
	switch v {
	case -64: // empty
	case -1:
		hasResult, resultType = true, i32
	case -2:
		hasResult, resultType = true, i64
	case -3:
		hasResult, resultType = true, f32
	case -4:
		hasResult, resultType = true, f64
	default:
		if v < 0 {
			return wasmdebug.New(wasmdebug.InvalidType, "invalid blocktype")
		}
		return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-value blocktype is not supported")
	}

	var kind blockKind
	switch op {
	case wasm.OpcodeBlock:
		kind = blockKindBlock
	case wasm.OpcodeLoop:
		kind = blockKindLoop
	case wasm.OpcodeIf:
		kind = blockKindIf
		if e := c.expect(i32); e != nil {
			return e
		}
	}

	b := c.pushBlock(kind, hasResult, resultType)
	marker := ir.OpMarkerBlock
	if kind == blockKindIf {
		marker = ir.OpMarkerIf
	}
	// Target doubles as an is-loop flag on this transient marker only;
	// compact.go reads it to tell a loop's backward-branch target apart
	// from a block's forward one, since both share OpMarkerBlock.
	isLoop := 0
	if kind == blockKindLoop {
		isLoop = 1
	}
	c.emit(ir.Imc{Op: marker, BlockID: b.blockID, BaseStackLevel: b.stackLevel, Target: isLoop})
	return nil
}

func (c *compiler) decodeElse() error {
	if len(c.blocks) == 0 || c.topBlock().kind != blockKindIf {
		return wasmdebug.New(wasmdebug.ElseWithoutIf, "else without matching if")
	}
	b := c.topBlock()
	if b.sawElse {
		return wasmdebug.New(wasmdebug.ElseWithoutIf, "duplicate else")
	}
	// Validate/unwind the if-branch's result the same way `end` would,
	// then reset to the block floor for the else-branch.
	if err := c.closeBranchResult(b); err != nil {
		return err
	}
	c.valueStack = c.valueStack[:b.stackLevel]
	c.unreachable = b.enteredUnreachable
	b.sawElse = true
	c.emit(ir.Imc{Op: ir.OpMarkerElse, BlockID: b.blockID, BaseStackLevel: b.stackLevel})
	return nil
}

// closeBranchResult validates that exactly one value of b's declared
// result type (if any) sits above b.stackLevel, tolerating a
// polymorphic (unreachable) branch.
func (c *compiler) closeBranchResult(b *blockCtx) error {
	if !b.hasResult {
		if !c.unreachable && len(c.valueStack) != b.stackLevel {
			return wasmdebug.New(wasmdebug.BlockMismatch, "value left on stack for void block")
		}
		return nil
	}
	if c.unreachable {
		return nil
	}
	if len(c.valueStack) != b.stackLevel+1 || c.valueStack[len(c.valueStack)-1] != b.resultType {
		return wasmdebug.New(wasmdebug.BlockMismatch, fmt.Sprintf("expected single %s result", b.resultType))
	}
	return nil
}

func (c *compiler) decodeEnd() (done bool, err error) {
	if len(c.blocks) == 0 {
		return false, wasmdebug.New(wasmdebug.BlockMismatch, "end without matching block")
	}
	b := c.blocks[len(c.blocks)-1]

	if b.kind == blockKindIf && !b.sawElse && b.hasResult {
		return false, wasmdebug.New(wasmdebug.BlockMismatch, "if without else cannot produce a result")
	}
	if err := c.closeBranchResult(b); err != nil {
		return false, err
	}
	c.blocks = c.blocks[:len(c.blocks)-1]
	c.valueStack = c.valueStack[:b.stackLevel]
	if b.hasResult {
		c.push(b.resultType)
	}
	c.unreachable = b.enteredUnreachable

	if len(c.blocks) == 0 {
		// Implicit function end. A Marker(End) precedes the Return* here
		// (unlike every other block) so that a br/br_if/br_table whose
		// depth names the outermost block — equivalent to `return` — has
		// a compacted position to relocate to: compact.go resolves it to
		// this Marker's endPos, which lands right on the Return*.
		c.emit(ir.Imc{Op: ir.OpMarkerEnd, BlockID: b.blockID, BaseStackLevel: len(c.valueStack)})
		if b.hasResult {
			if b.resultType.IsInt() {
				c.emit(ir.Imc{Op: ir.OpReturnInt, BaseStackLevel: b.stackLevel})
			} else {
				c.emit(ir.Imc{Op: ir.OpReturnFloat, BaseStackLevel: b.stackLevel})
			}
		} else {
			c.emit(ir.Imc{Op: ir.OpReturnNone, BaseStackLevel: b.stackLevel})
		}
		return true, nil
	}
	c.emit(ir.Imc{Op: ir.OpMarkerEnd, BlockID: b.blockID, BaseStackLevel: len(c.valueStack)})
	return false, nil
}

func (c *compiler) decodeBr(conditional bool) error {
	depth, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "br depth")
	}
	target, err := c.blockAtDepth(depth)
	if err != nil {
		return err
	}
	if conditional {
		if e := c.expect(i32); e != nil {
			return e
		}
	}
	unwind := target.hasResult && target.kind != blockKindLoop
	if unwind {
		t := c.peekTop()
		if t != target.resultType && !c.unreachable {
			return wasmdebug.New(wasmdebug.TypeMismatch, "branch value type mismatch")
		}
	}
	op := ir.OpBr
	if conditional {
		op = ir.OpBrIf
	}
	if unwind {
		if conditional {
			op = ir.OpBrIfUnwind
		} else {
			op = ir.OpBrUnwind
		}
	}
	c.emit(ir.Imc{Op: op, BlockID: target.blockID, BaseStackLevel: len(c.valueStack), UnwindLevel: target.stackLevel})
	if !conditional {
		c.unreachable = true
	}
	return nil
}

func (c *compiler) peekTop() wasm.ValueType {
	if len(c.valueStack) == 0 {
		return 0
	}
	return c.valueStack[len(c.valueStack)-1]
}

func (c *compiler) decodeBrTable() error {
	count, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "br_table count")
	}
	depths := make([]uint32, count+1)
	for i := range depths {
		d, _, e := leb128.DecodeUint32(c.r)
		if e != nil {
			return wasmdebug.New(wasmdebug.UnexpectedToken, "br_table target")
		}
		depths[i] = d
	}
	if err := c.expect(i32); err != nil {
		return err
	}

	blockIDs := make([]int, len(depths))
	anyTyped := false
	for i, d := range depths {
		b, err := c.blockAtDepth(d)
		if err != nil {
			return err
		}
		blockIDs[i] = b.blockID
		if b.hasResult {
			anyTyped = true
		}
	}
	if anyTyped {
		// Spec.md section 4.2: only empty-typed br_table targets are
		// supported at decode time; a typed target defers to a runtime
		// NotSupported trap rather than rejecting at decode time.
		c.emit(ir.Imc{Op: ir.OpNotSupported, BaseStackLevel: len(c.valueStack)})
		c.unreachable = true
		return nil
	}
	c.emit(ir.Imc{Op: ir.OpBrTable, Targets: blockIDs, BaseStackLevel: len(c.valueStack)})
	c.unreachable = true
	return nil
}

func (c *compiler) decodeReturnStmt(pos int) error {
	// `return` behaves like a `br` to the outermost (function) block.
	fn := c.blocks[0]
	if err := c.closeBranchResult(fn); err != nil {
		return err
	}
	if fn.hasResult {
		if fn.resultType.IsInt() {
			c.emit(ir.Imc{Op: ir.OpReturnInt, BaseStackLevel: len(c.valueStack) - 1, SrcPos: pos})
		} else {
			c.emit(ir.Imc{Op: ir.OpReturnFloat, BaseStackLevel: len(c.valueStack) - 1, SrcPos: pos})
		}
	} else {
		c.emit(ir.Imc{Op: ir.OpReturnNone, BaseStackLevel: len(c.valueStack), SrcPos: pos})
	}
	c.unreachable = true
	return nil
}

// --- calls ---

func (c *compiler) decodeCall(pos int) error {
	idx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "call index")
	}
	if int(idx) >= c.module.NumFunctions() {
		return wasmdebug.New(wasmdebug.InvalidType, "call index out of range")
	}
	sig := c.module.TypeOf(idx)
	base := c.baseLevelAfterPops(len(sig.Params))
	for i := len(sig.Params) - 1; i >= 0; i-- {
		if e := c.expect(sig.Params[i]); e != nil {
			return e
		}
	}
	c.isLeaf = false
	c.emit(ir.Imc{Op: ir.OpCall, CallIndex: idx, BaseStackLevel: base, SrcPos: pos})
	for _, r := range sig.Results {
		c.push(r)
	}
	return nil
}

func (c *compiler) decodeCallIndirect(pos int) error {
	typeIdx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "call_indirect type index")
	}
	tableIdx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "call_indirect table index")
	}
	if tableIdx != 0 {
		return wasmdebug.New(wasmdebug.UnsupportedOpCode, "multi-table is not supported")
	}
	if !c.module.HasTable() {
		return wasmdebug.New(wasmdebug.InvalidType, "call_indirect without a table")
	}
	sig := c.module.TypeByIndex(typeIdx)
	if e := c.expect(i32); e != nil { // table index operand
		return e
	}
	base := c.baseLevelAfterPops(len(sig.Params))
	for i := len(sig.Params) - 1; i >= 0; i-- {
		if e := c.expect(sig.Params[i]); e != nil {
			return e
		}
	}
	c.isLeaf = false
	c.emit(ir.Imc{Op: ir.OpCallIndirect, CallIndex: typeIdx, BaseStackLevel: base, SrcPos: pos})
	for _, r := range sig.Results {
		c.push(r)
	}
	return nil
}

// --- select ---

func (c *compiler) decodeSelect() error {
	if e := c.expect(i32); e != nil {
		return e
	}
	t2 := c.pop()
	t1 := c.pop()
	if t1 != t2 && !c.unreachable {
		return wasmdebug.New(wasmdebug.TypeMismatch, "select operand type mismatch")
	}
	resolved := t1
	if resolved == 0 {
		resolved = t2
	}
	op := ir.OpSelectFloat
	if resolved == 0 || resolved.IsInt() {
		op = ir.OpSelectInt
	}
	c.emit(ir.Imc{Op: op, BaseStackLevel: len(c.valueStack)})
	c.push(resolved)
	return nil
}

// --- locals/globals ---

func (c *compiler) decodeLocalGet() error {
	idx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "local.get index")
	}
	if int(idx) >= len(c.localTypes) {
		return wasmdebug.New(wasmdebug.InvalidLocal, "local index out of range")
	}
	t := c.localTypes[idx]
	op := ir.OpLocalGetFloat
	if t.IsInt() {
		op = ir.OpLocalGetInt
	}
	c.emit(ir.Imc{Op: op, VarIndex: idx, BaseStackLevel: c.baseLevelForProducer()})
	c.push(t)
	return nil
}

func (c *compiler) decodeLocalSet(tee bool) error {
	idx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "local.set/tee index")
	}
	if int(idx) >= len(c.localTypes) {
		return wasmdebug.New(wasmdebug.InvalidLocal, "local index out of range")
	}
	t := c.localTypes[idx]
	if e := c.expect(t); e != nil {
		return e
	}
	base := len(c.valueStack)
	var op ir.Op
	if tee {
		if t.IsInt() {
			op = ir.OpLocalTeeInt
		} else {
			op = ir.OpLocalTeeFloat
		}
	} else {
		if t.IsInt() {
			op = ir.OpLocalSetInt
		} else {
			op = ir.OpLocalSetFloat
		}
	}
	c.emit(ir.Imc{Op: op, VarIndex: idx, BaseStackLevel: base})
	if tee {
		c.push(t)
	}
	return nil
}

func (c *compiler) decodeGlobalGet() error {
	idx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "global.get index")
	}
	if int(idx) >= c.module.NumGlobals() {
		return wasmdebug.New(wasmdebug.InvalidGlobal, "global index out of range")
	}
	t, _ := c.module.GlobalType(idx)
	op := ir.OpGlobalGetFloat
	if t.IsInt() {
		op = ir.OpGlobalGetInt
	}
	c.emit(ir.Imc{Op: op, VarIndex: idx, BaseStackLevel: c.baseLevelForProducer()})
	c.push(t)
	return nil
}

func (c *compiler) decodeGlobalSet() error {
	idx, _, err := leb128.DecodeUint32(c.r)
	if err != nil {
		return wasmdebug.New(wasmdebug.UnexpectedToken, "global.set index")
	}
	if int(idx) >= c.module.NumGlobals() {
		return wasmdebug.New(wasmdebug.InvalidGlobal, "global index out of range")
	}
	t, mutable := c.module.GlobalType(idx)
	if !mutable {
		return wasmdebug.New(wasmdebug.InvalidGlobal, "global.set on immutable global")
	}
	if e := c.expect(t); e != nil {
		return e
	}
	op := ir.OpGlobalSetFloat
	if t.IsInt() {
		op = ir.OpGlobalSetInt
	}
	c.emit(ir.Imc{Op: op, VarIndex: idx, BaseStackLevel: len(c.valueStack)})
	return nil
}
