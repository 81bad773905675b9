package wami

import (
	"math"

	"github.com/wami-rt/wami/internal/wasm"
)

// ValueType re-exports the internal numeric-type tag under a name
// importers outside this module can spell, the same re-export wazero's
// api package performs over its internal wasm.ValueType.
type ValueType = wasm.ValueType

const (
	ValueTypeI32 = wasm.ValueTypeI32
	ValueTypeI64 = wasm.ValueTypeI64
	ValueTypeF32 = wasm.ValueTypeF32
	ValueTypeF64 = wasm.ValueTypeF64
)

// EncodeF32/DecodeF32 and EncodeF64/DecodeF64 convert between a float and
// the raw uint64 cell representation Function.Call exchanges, mirroring
// api.EncodeF32/api.DecodeF32 in wazero.

func EncodeF32(v float32) uint64 { return uint64(math.Float32bits(v)) }
func DecodeF32(v uint64) float32 { return math.Float32frombits(uint32(v)) }
func EncodeF64(v float64) uint64 { return math.Float64bits(v) }
func DecodeF64(v uint64) float64 { return math.Float64frombits(v) }

func f32FromCell(c wasm.Cell) float32  { return DecodeF32(uint64(c)) }
func f64FromCell(c wasm.Cell) float64  { return DecodeF64(uint64(c)) }
func cellFromF32(v float32) wasm.Cell  { return wasm.Cell(EncodeF32(v)) }
func cellFromF64(v float64) wasm.Cell  { return wasm.Cell(EncodeF64(v)) }
