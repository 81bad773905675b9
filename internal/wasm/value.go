// Package wasm holds the in-memory module tables the decoder
// materializes (type, import, function, table, memory, global, export,
// element, data, and name records) plus the host-resolver contract the
// decoder consults for imports.
package wasm

import "fmt"

// ValueType is one of the four Wasm 1.0 numeric types. Every operand,
// local, global, and function parameter/result carries exactly one.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(v))
	}
}

// IsInt reports whether v belongs to the integer family (i32 or i64),
// as opposed to the float family — used to pick the Imc int/float tag.
func (v ValueType) IsInt() bool { return v == ValueTypeI32 || v == ValueTypeI64 }

// Cell is a 64-bit untyped word used inside the interpreter for operand
// slots, locals, and globals. Reading a cell requires external type
// knowledge provided by the verifier's static typing; the cell itself
// never encodes its type.
type Cell uint64

// TypedValue is a tagged (type, bits) pair used only at boundaries: host
// calls, global/element/data initializers, and result return.
type TypedValue struct {
	Type ValueType
	Bits uint64
}

// Cell reinterprets the typed value as a bare operand cell.
func (t TypedValue) Cell() Cell { return Cell(t.Bits) }

// ExternKind classifies imports and exports.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindTable
	ExternKindMemory
	ExternKindGlobal
)

func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindTable:
		return "table"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(k))
	}
}

// Limits is the (min, max) page-count or element-count pair shared by
// memory and table declarations. Max is -1 when absent.
type Limits struct {
	Min uint32
	Max int64 // -1 means unbounded
}

// HasMax reports whether the limits declare an upper bound.
func (l Limits) HasMax() bool { return l.Max >= 0 }
