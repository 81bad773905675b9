// Package interpreter executes the compiled IR: a tree-walking,
// slot-addressed dispatch loop over the CodeBlock flat instruction
// stream package wazeroir produces. There is no bytecode-to-bytecode
// JIT here — every Imc is interpreted directly against a per-call frame
// carved out of a shared scratch-heap Arena.
package interpreter

import (
	"context"
	"math"

	"github.com/wami-rt/wami/internal/trap"
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasmmem"
)

// Engine ties one ModuleInstance to the scratch heap its calls share.
// A single Engine is not safe for concurrent use — concurrent callers
// need one Engine per goroutine over the same *wasm.ModuleInstance, the
// same way the teacher's moduleEngine is not shared across callEngines.
type Engine struct {
	Instance *wasm.ModuleInstance
	arena    *wasmmem.Arena
}

// NewEngine allocates an Engine with a modestly-sized initial scratch
// heap; it grows on demand for deep call chains.
func NewEngine(instance *wasm.ModuleInstance) *Engine {
	return &Engine{Instance: instance, arena: wasmmem.NewArena(4096)}
}

// Call invokes the function at funcIndex with already-decoded argument
// cells, in declared-parameter order, and returns its result (zero
// TypedValue if the function has no result).
func (e *Engine) Call(ctx context.Context, funcIndex uint32, args []wasm.Cell) (wasm.TypedValue, error) {
	fd := e.Instance.Module.FunctionSection[funcIndex]
	switch fd.BodyKind {
	case wasm.BodyHostFunction:
		return fd.Host(e.Instance, args)
	case wasm.BodyCodeBlock:
		return e.callCode(ctx, fd, args)
	default:
		return wasm.TypedValue{}, trap.New(trap.NotSupported).WithSite(int(funcIndex), fd.Name, 0, "call", 0)
	}
}

// frame is one function activation: its locals and its operand-stack
// cells, carved out of the Engine's Arena as a single contiguous slab so
// nested calls reclaim it LIFO on return.
type frame struct {
	cells     []uint64
	numLocals int
}

func (f *frame) local(i uint32) uint64     { return f.cells[i] }
func (f *frame) setLocal(i uint32, v uint64) { f.cells[i] = v }
func (f *frame) op(level int) uint64       { return f.cells[f.numLocals+level] }
func (f *frame) setOp(level int, v uint64) { f.cells[f.numLocals+level] = v }

func (e *Engine) callCode(ctx context.Context, fd *wasm.FunctionDescriptor, args []wasm.Cell) (result wasm.TypedValue, err error) {
	mark := e.arena.Mark()
	defer e.arena.Restore(mark)

	code := fd.Code
	numLocals := code.NumParamsAndLocals()
	cells := e.arena.AllocFrame(numLocals + code.MaxStack)
	fr := &frame{cells: cells, numLocals: numLocals}
	for i, a := range args {
		fr.setLocal(uint32(i), uint64(a))
	}

	return e.run(ctx, fd, fr)
}

func (e *Engine) trapAt(fd *wasm.FunctionDescriptor, pos int, kind trap.Kind, mnemonic string) error {
	return trap.New(kind).WithSite(int(fd.Index), fd.Name, pos, mnemonic, fd.Code.FileOffset+pos)
}

func boolCell(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func i32(v uint64) int32   { return int32(uint32(v)) }
func u32(v uint64) uint32  { return uint32(v) }
func i64v(v uint64) int64  { return int64(v) }
func f32v(v uint64) float32 { return math.Float32frombits(uint32(v)) }
func f64v(v uint64) float64 { return math.Float64frombits(v) }

func cellI32(v int32) uint64   { return uint64(uint32(v)) }
func cellU32(v uint32) uint64  { return uint64(v) }
func cellI64(v int64) uint64   { return uint64(v) }
func cellF32(v float32) uint64 { return uint64(math.Float32bits(v)) }
func cellF64(v float64) uint64 { return math.Float64bits(v) }
