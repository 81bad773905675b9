package wami

import (
	"context"
	"fmt"

	"github.com/wami-rt/wami/internal/interpreter"
	"github.com/wami-rt/wami/internal/wasm"
	"go.uber.org/zap"
)

// Instance is a live, instantiated module: its linear memory, table, and
// globals are allocated, element/data segments are applied, and its
// start function (if any) has already run.
type Instance struct {
	inst   *wasm.ModuleInstance
	engine *interpreter.Engine
	log    *zap.Logger
}

// Name returns the instance's name, set at Instantiate time.
func (i *Instance) Name() string { return i.inst.Name }

// Memory returns the instance's linear memory, or nil if the module
// declares none.
func (i *Instance) Memory() *Memory {
	if i.inst.Memory == nil {
		return nil
	}
	return &Memory{mem: i.inst.Memory}
}

// ExportedFunction looks up a function export by name, returning nil if
// no export of that name exists or it does not name a function.
func (i *Instance) ExportedFunction(name string) *Function {
	exp, ok := i.inst.Module.LookupExport(name)
	if !ok || exp.Kind != wasm.ExternKindFunc {
		return nil
	}
	return &Function{instance: i, index: exp.Index, sig: i.inst.Module.TypeOf(exp.Index)}
}

// Function is one exported function, callable with argument cells in
// declared parameter order.
type Function struct {
	instance *Instance
	index    uint32
	sig      *wasm.FunctionType
}

// ParamTypes and ResultTypes return the function's declared signature.
func (f *Function) ParamTypes() []ValueType  { return f.sig.Params }
func (f *Function) ResultTypes() []ValueType { return f.sig.Results }

// Call invokes the function. args and the returned slice carry raw Wasm
// cells in declared parameter/result order; use EncodeF32/DecodeF32 (or
// the F64 variants) to convert float parameters and results.
func (f *Function) Call(ctx context.Context, args ...uint64) ([]uint64, error) {
	if len(args) != len(f.sig.Params) {
		return nil, fmt.Errorf("wami: function declares %d params, %d args given", len(f.sig.Params), len(args))
	}
	cells := make([]wasm.Cell, len(args))
	for i, a := range args {
		cells[i] = wasm.Cell(a)
	}
	result, err := f.instance.engine.Call(ctx, f.index, cells)
	if err != nil {
		return nil, err
	}
	if len(f.sig.Results) == 0 {
		return nil, nil
	}
	return []uint64{result.Bits}, nil
}

// Memory wraps an instance's linear memory with little-endian accessors,
// the same surface shape as wazero's api.Memory.
type Memory struct {
	mem interface {
		Len() uint64
		ReadByte(offset, index uint32) (byte, bool)
		ReadU32(offset, index uint32) (uint32, bool)
		ReadU64(offset, index uint32) (uint64, bool)
		WriteByte(offset, index uint32, v byte) bool
		WriteU32(offset, index uint32, v uint32) bool
		WriteU64(offset, index uint32, v uint64) bool
		Slice() []byte
	}
}

// Size returns the memory's size in bytes.
func (m *Memory) Size() uint32 { return uint32(m.mem.Len()) }

func (m *Memory) ReadByte(offset uint32) (byte, bool) { return m.mem.ReadByte(0, offset) }

func (m *Memory) ReadUint32Le(offset uint32) (uint32, bool) { return m.mem.ReadU32(0, offset) }

func (m *Memory) ReadUint64Le(offset uint32) (uint64, bool) { return m.mem.ReadU64(0, offset) }

func (m *Memory) ReadFloat32Le(offset uint32) (float32, bool) {
	v, ok := m.mem.ReadU32(0, offset)
	return DecodeF32(uint64(v)), ok
}

func (m *Memory) ReadFloat64Le(offset uint32) (float64, bool) {
	v, ok := m.mem.ReadU64(0, offset)
	return DecodeF64(v), ok
}

func (m *Memory) WriteByte(offset uint32, v byte) bool { return m.mem.WriteByte(0, offset, v) }

func (m *Memory) WriteUint32Le(offset, v uint32) bool { return m.mem.WriteU32(0, offset, v) }

func (m *Memory) WriteUint64Le(offset uint32, v uint64) bool { return m.mem.WriteU64(0, offset, v) }

func (m *Memory) WriteFloat32Le(offset uint32, v float32) bool {
	return m.mem.WriteU32(0, offset, uint32(EncodeF32(v)))
}

func (m *Memory) WriteFloat64Le(offset uint32, v float64) bool {
	return m.mem.WriteU64(0, offset, EncodeF64(v))
}

// Read copies size bytes starting at offset out of the memory.
func (m *Memory) Read(offset, size uint32) ([]byte, bool) {
	full := m.mem.Slice()
	if uint64(offset)+uint64(size) > uint64(len(full)) {
		return nil, false
	}
	out := make([]byte, size)
	copy(out, full[offset:offset+size])
	return out, true
}
