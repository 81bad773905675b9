package wasm

import (
	"github.com/dolthub/swiss"

	"github.com/wami-rt/wami/internal/ir"
)

// FunctionType is the ordered param/result type signature shared by
// multiple functions. The current core assumes at most one result
// (multi-value is out of scope).
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Equal reports whether t and o describe the same signature, used by
// call_indirect to check the callee's declared type against the table
// entry's actual type.
func (t *FunctionType) Equal(o *FunctionType) bool {
	if len(t.Params) != len(o.Params) || len(t.Results) != len(o.Results) {
		return false
	}
	for i, p := range t.Params {
		if p != o.Params[i] {
			return false
		}
	}
	for i, r := range t.Results {
		if r != o.Results[i] {
			return false
		}
	}
	return true
}

// Import names a single imported function or memory: (module, name, kind).
type Import struct {
	Kind   ExternKind
	Module string
	Name   string
	// DescFunc is the type index, valid when Kind == ExternKindFunc.
	DescFunc uint32
	// DescMem is the declared limits, valid when Kind == ExternKindMemory.
	DescMem Limits
}

// FunctionOrigin distinguishes how a function descriptor's body should be
// invoked.
type FunctionOrigin int

const (
	OriginInternal FunctionOrigin = iota
	OriginImported
)

// FunctionBodyKind tags which of CodeBlock/HostFunction/Unresolved a
// FunctionDescriptor's Body holds.
type FunctionBodyKind int

const (
	BodyCodeBlock FunctionBodyKind = iota
	BodyHostFunction
	BodyUnresolved
)

// HostFunction is the bound callback shape the decoder consults for
// imports and the interpreter invokes for calls into host code. It
// receives cells in declared Wasm parameter order and must interpret
// each according to the declared type.
type HostFunction func(mod *ModuleInstance, params []Cell) (TypedValue, error)

// FunctionDescriptor is (index, type-index, origin, body). body is one
// of CodeBlock, HostFunction, or Unresolved.
type FunctionDescriptor struct {
	Index     uint32
	TypeIndex uint32
	Origin    FunctionOrigin
	BodyKind  FunctionBodyKind

	Code *ir.CodeBlock // set when BodyKind == BodyCodeBlock
	Host HostFunction  // set when BodyKind == BodyHostFunction

	// Name is the declared name from the name section, if any.
	Name string
}

// Global is (type, mutable?, initial value).
type Global struct {
	Type    ValueType
	Mutable bool
	Init    TypedValue
}

// Export names (name, kind, index).
type Export struct {
	Name  string
	Kind  ExternKind
	Index uint32
}

// ElementSegment is (table-index, offset, function-index list).
type ElementSegment struct {
	TableIndex uint32
	Offset     int32
	FuncIndex  []uint32
}

// DataSegment is (memory-index, offset, bytes).
type DataSegment struct {
	MemoryIndex uint32
	Offset      int32
	Init        []byte
}

// NameSection carries the optional module/function/global name
// subsections (0, 1, 7).
type NameSection struct {
	ModuleName    string
	FunctionNames *swiss.Map[uint32, string]
	GlobalNames   *swiss.Map[uint32, string]
}

func NewNameSection() *NameSection {
	return &NameSection{
		FunctionNames: swiss.NewMap[uint32, string](8),
		GlobalNames:   swiss.NewMap[uint32, string](8),
	}
}

// FuncName returns the declared name for funcIndex, or "" if unnamed.
func (n *NameSection) FuncName(funcIndex uint32) string {
	if n == nil || n.FunctionNames == nil {
		return ""
	}
	name, _ := n.FunctionNames.Get(funcIndex)
	return name
}

// Module is the aggregate of every section the decoder materializes. It
// is immutable after loading except where ModuleInstance documents
// otherwise.
type Module struct {
	TypeSection    []*FunctionType
	ImportSection  []*Import
	FunctionSection []*FunctionDescriptor // internal + imported, by absolute index
	TableLimits    *Limits
	MemoryLimits   *Limits
	GlobalSection  []*Global
	ExportSection  []*Export
	StartIndex     *uint32
	ElementSection []*ElementSegment
	DataSection    []*DataSegment
	DataCount      *uint32
	NameSection    *NameSection

	exportIndex *swiss.Map[string, *Export]
}

// BuildExportIndex populates the swiss-table export lookup used by
// ExportedFunction, grounded on the same indexed-lookup shape wazero
// builds at instantiation time, adapted here to a swiss.Map.
func (m *Module) BuildExportIndex() {
	idx := swiss.NewMap[string, *Export](uint32(len(m.ExportSection)))
	for _, e := range m.ExportSection {
		idx.Put(e.Name, e)
	}
	m.exportIndex = idx
}

// LookupExport finds an export by name in O(1) amortized time.
func (m *Module) LookupExport(name string) (*Export, bool) {
	if m.exportIndex == nil {
		m.BuildExportIndex()
	}
	return m.exportIndex.Get(name)
}

// TypeOf returns the signature of the function at the given absolute
// function index.
func (m *Module) TypeOf(funcIndex uint32) *FunctionType {
	fd := m.FunctionSection[funcIndex]
	return m.TypeSection[fd.TypeIndex]
}

// TypeByIndex returns the raw type-section entry, used for
// call_indirect's declared signature.
func (m *Module) TypeByIndex(typeIndex uint32) *FunctionType { return m.TypeSection[typeIndex] }

// NumFunctions returns the total (imported + internal) function count.
func (m *Module) NumFunctions() int { return len(m.FunctionSection) }

// HasMemory reports whether the module declares (or imports) a memory.
func (m *Module) HasMemory() bool { return m.MemoryLimits != nil }

// HasTable reports whether the module declares a function table.
func (m *Module) HasTable() bool { return m.TableLimits != nil }

// GlobalType returns the declared type and mutability of the global at
// index i.
func (m *Module) GlobalType(i uint32) (ValueType, bool) {
	g := m.GlobalSection[i]
	return g.Type, g.Mutable
}

// NumGlobals returns the global count.
func (m *Module) NumGlobals() int { return len(m.GlobalSection) }
