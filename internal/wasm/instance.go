package wasm

import "github.com/wami-rt/wami/internal/wasmmem"

// Table holds the function-reference table (function references only;
// reference types beyond funcref are out of scope). Entries are filled
// during element-segment initialization.
type Table struct {
	Limits  Limits
	Entries []int32 // function index, or -1 if unresolved
}

func NewTable(limits Limits) *Table {
	entries := make([]int32, limits.Min)
	for i := range entries {
		entries[i] = -1
	}
	return &Table{Limits: limits, Entries: entries}
}

// ModuleInstance is the runtime-mutable state of an instantiated
// Module: it is immutable after loading except for linear-memory
// contents/length, mutable global values, and the function table's
// resolved entries.
type ModuleInstance struct {
	Module *Module

	Memory  *wasmmem.Memory // nil if the module declares no memory
	Table   *Table          // nil if the module declares no table
	Globals []Cell          // parallel to Module.GlobalSection

	// Name is the instantiation name, used in error messages the same
	// way moduleEngine.name is in the teacher.
	Name string
}

// Global reads the current value of the global at index i.
func (mi *ModuleInstance) Global(i uint32) Cell { return mi.Globals[i] }

// SetGlobal writes v to the global at index i. Callers must have
// already verified the global is declared mutable.
func (mi *ModuleInstance) SetGlobal(i uint32, v Cell) { mi.Globals[i] = v }
