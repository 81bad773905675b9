// Package wasmtest assembles small Wasm binaries for decoder, compiler,
// and interpreter tests: a thin section-framing layer over hand-written
// opcode byte literals, not a text-format assembler. Every instruction
// byte a fixture emits is a literal opcode; only the length-prefix and
// LEB128 immediate encoding is mechanical, grounded on the same
// leb128 package the decoder itself reads with.
package wasmtest

import (
	"github.com/wami-rt/wami/internal/leb128"
	"github.com/wami-rt/wami/internal/wasm"
)

var (
	Magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	Version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Module concatenates the header with every section's already-framed
// bytes, in the order given.
func Module(sections ...[]byte) []byte {
	out := append(append([]byte{}, Magic...), Version...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func vecLen(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

func wasmString(s string) []byte { return append(vecLen(len(s)), []byte(s)...) }

func section(id byte, payload []byte) []byte {
	out := append([]byte{id}, vecLen(len(payload))...)
	return append(out, payload...)
}

// VecLen, WasmString, and Section expose the same framing helpers to
// callers outside this package building one-off sections the typed
// builders below don't cover (e.g. an import-section entry or a raw
// custom/name section).
func VecLen(n int) []byte          { return vecLen(n) }
func WasmString(s string) []byte   { return wasmString(s) }
func Section(id byte, p []byte) []byte { return section(id, p) }

// FuncType is one type-section entry.
type FuncType struct {
	Params  []wasm.ValueType
	Results []wasm.ValueType
}

func valueTypeVec(vs []wasm.ValueType) []byte {
	out := vecLen(len(vs))
	for _, v := range vs {
		out = append(out, byte(v))
	}
	return out
}

func TypeSection(types ...FuncType) []byte {
	payload := vecLen(len(types))
	for _, t := range types {
		payload = append(payload, 0x60)
		payload = append(payload, valueTypeVec(t.Params)...)
		payload = append(payload, valueTypeVec(t.Results)...)
	}
	return section(1, payload)
}

// FunctionSection declares one internally-defined function per type
// index, in order.
func FunctionSection(typeIndices ...uint32) []byte {
	payload := vecLen(len(typeIndices))
	for _, idx := range typeIndices {
		payload = append(payload, leb128.EncodeUint32(idx)...)
	}
	return section(3, payload)
}

// TableSection declares a single funcref table; max < 0 means no
// declared maximum.
func TableSection(min uint32, max int64) []byte {
	payload := vecLen(1)
	payload = append(payload, 0x70) // funcref
	payload = append(payload, limitsBytes(min, max)...)
	return section(4, payload)
}

// MemorySection declares a single memory; max < 0 means no declared
// maximum.
func MemorySection(min uint32, max int64) []byte {
	payload := vecLen(1)
	payload = append(payload, limitsBytes(min, max)...)
	return section(5, payload)
}

func limitsBytes(min uint32, max int64) []byte {
	if max < 0 {
		return append([]byte{0x00}, leb128.EncodeUint32(min)...)
	}
	out := append([]byte{0x01}, leb128.EncodeUint32(min)...)
	return append(out, leb128.EncodeUint32(uint32(max))...)
}

// GlobalEntry is one global-section entry; Init is a single
// const-expr opcode sequence (e.g. I32Const(5)), not including `end`.
type GlobalEntry struct {
	Type    wasm.ValueType
	Mutable bool
	Init    []byte
}

func GlobalSection(globals ...GlobalEntry) []byte {
	payload := vecLen(len(globals))
	for _, g := range globals {
		payload = append(payload, byte(g.Type))
		if g.Mutable {
			payload = append(payload, 0x01)
		} else {
			payload = append(payload, 0x00)
		}
		payload = append(payload, g.Init...)
		payload = append(payload, End...)
	}
	return section(6, payload)
}

// ExportEntry is one export-section entry.
type ExportEntry struct {
	Name  string
	Kind  wasm.ExternKind
	Index uint32
}

func ExportSection(exports ...ExportEntry) []byte {
	payload := vecLen(len(exports))
	for _, e := range exports {
		payload = append(payload, wasmString(e.Name)...)
		payload = append(payload, byte(e.Kind))
		payload = append(payload, leb128.EncodeUint32(e.Index)...)
	}
	return section(7, payload)
}

// StartSection names the start function index.
func StartSection(index uint32) []byte {
	return section(8, leb128.EncodeUint32(index))
}

// ElementEntry is one element-segment: an i32.const offset (sans
// `end`, appended automatically) plus the function indices it fills.
type ElementEntry struct {
	Offset    []byte
	FuncIndex []uint32
}

func ElementSection(elems ...ElementEntry) []byte {
	payload := vecLen(len(elems))
	for _, e := range elems {
		payload = append(payload, leb128.EncodeUint32(0)...) // table index 0
		payload = append(payload, e.Offset...)
		payload = append(payload, End...)
		payload = append(payload, vecLen(len(e.FuncIndex))...)
		for _, idx := range e.FuncIndex {
			payload = append(payload, leb128.EncodeUint32(idx)...)
		}
	}
	return section(9, payload)
}

// CodeSection frames each already-assembled function body (locals
// declaration + opcode stream + `end`, as produced by Body/BodyLocals).
func CodeSection(bodies ...[]byte) []byte {
	payload := vecLen(len(bodies))
	for _, body := range bodies {
		payload = append(payload, vecLen(len(body))...)
		payload = append(payload, body...)
	}
	return section(10, payload)
}

// DataEntry is one data-segment: an i32.const offset (sans `end`) plus
// the raw bytes to copy in.
type DataEntry struct {
	Offset []byte
	Init   []byte
}

func DataSection(entries ...DataEntry) []byte {
	payload := vecLen(len(entries))
	for _, e := range entries {
		payload = append(payload, leb128.EncodeUint32(0)...) // memory index 0
		payload = append(payload, e.Offset...)
		payload = append(payload, End...)
		payload = append(payload, vecLen(len(e.Init))...)
		payload = append(payload, e.Init...)
	}
	return section(11, payload)
}

// Body assembles a function body with no declared locals beyond the
// signature's own parameters: a zero local-group count, the given
// opcode bytes, then `end`.
func Body(ops ...[]byte) []byte {
	out := []byte{0x00}
	for _, op := range ops {
		out = append(out, op...)
	}
	return append(out, End...)
}

// Cat concatenates opcode-byte fragments, a convenience for building Body
// arguments out of the instruction helpers below.
func Cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Instruction byte-literal helpers. Each returns the opcode plus any
// immediate, exactly as the binary format lays it out.

var (
	Unreachable = []byte{0x00}
	End         = []byte{0x0b}
	Return      = []byte{0x0f}
	Drop        = []byte{0x1a}
	Select      = []byte{0x1b}

	I32Eqz  = []byte{0x45}
	I32LtS  = []byte{0x48}
	I32Add  = []byte{0x6a}
	I32Sub  = []byte{0x6b}
	I32Mul  = []byte{0x6c}
	I32DivS = []byte{0x6d}

	F32ReinterpretI32 = []byte{0xbe}
)

func LocalGet(i uint32) []byte  { return append([]byte{0x20}, leb128.EncodeUint32(i)...) }
func LocalSet(i uint32) []byte  { return append([]byte{0x21}, leb128.EncodeUint32(i)...) }
func LocalTee(i uint32) []byte  { return append([]byte{0x22}, leb128.EncodeUint32(i)...) }
func GlobalGet(i uint32) []byte { return append([]byte{0x23}, leb128.EncodeUint32(i)...) }
func GlobalSet(i uint32) []byte { return append([]byte{0x24}, leb128.EncodeUint32(i)...) }

func I32Const(v int32) []byte { return append([]byte{0x41}, leb128.EncodeInt32(v)...) }
func I64Const(v int64) []byte { return append([]byte{0x42}, leb128.EncodeInt64(v)...) }

func Call(index uint32) []byte { return append([]byte{0x10}, leb128.EncodeUint32(index)...) }

func CallIndirect(typeIdx uint32) []byte {
	out := append([]byte{0x11}, leb128.EncodeUint32(typeIdx)...)
	return append(out, 0x00) // table index 0
}

// Block/Loop/If open a structured block. blocktype is 0x40 for empty,
// or the raw ValueType byte (0x7f/0x7e/0x7d/0x7c) for a single result —
// the signed-LEB128 encoding of -1/-2/-3/-4 happens to equal those same
// bytes, so the literal ValueType byte doubles as its own blocktype.
func Block(blocktype byte) []byte { return []byte{0x02, blocktype} }
func Loop(blocktype byte) []byte  { return []byte{0x03, blocktype} }
func If(blocktype byte) []byte    { return []byte{0x04, blocktype} }

var Else = []byte{0x05}

func Br(depth uint32) []byte   { return append([]byte{0x0c}, leb128.EncodeUint32(depth)...) }
func BrIf(depth uint32) []byte { return append([]byte{0x0d}, leb128.EncodeUint32(depth)...) }

// BrTable lays out count, targets[0:count], then the default target —
// the `count` LEB128 is len(targets)-1 since targets' last entry is the
// default, matching the decoder's `depths := make([]uint32, count+1)`.
func BrTable(targets ...uint32) []byte {
	out := append([]byte{0x0e}, vecLen(len(targets)-1)...)
	for _, t := range targets {
		out = append(out, leb128.EncodeUint32(t)...)
	}
	return out
}

func memarg(offset uint32) []byte {
	return append([]byte{0x00}, leb128.EncodeUint32(offset)...) // align 0
}

func I32Load(offset uint32) []byte  { return append([]byte{0x28}, memarg(offset)...) }
func I32Store(offset uint32) []byte { return append([]byte{0x36}, memarg(offset)...) }

// NoopResolver declines every import, for fixtures that import
// nothing; DecodeModule never calls it unless the import section is
// non-empty.
var NoopResolver = wasm.ResolverFunc(func(moduleName, importName string, sig *wasm.FunctionType) wasm.ImportResult {
	return wasm.ImportResult{Kind: wasm.ResolvedNoModule}
})
