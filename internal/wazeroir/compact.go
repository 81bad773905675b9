package wazeroir

import (
	"fmt"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/wasmdebug"
)

// blockRecord remembers where block b's start/else/end land in the
// compacted instruction stream, so branch targets (still block ids at
// this point) can be relocated to absolute IR indices.
type blockRecord struct {
	kind    blockKind
	startPos int
	elsePos  int
	endPos   int
	sawElse  bool
}

// compact drops transient markers, turns Marker(If)/Marker(Else) into
// real instructions, and relocates every branch target from a block id
// to an absolute IR index: a loop's target is its own start (the
// backward-edge case), a block or if's target is its end — except an
// If's own Target, which goes to its else position when an else branch
// exists. The terminal Unreachable sentinel is appended last so the
// interpreter's position counter can never walk off the end of IR.
func compact(in []ir.Imc, maxStack int) ([]ir.Imc, int, error) {
	out := make([]ir.Imc, 0, len(in))
	records := make(map[int]*blockRecord)

	for _, inst := range in {
		switch inst.Op {
		case ir.OpMarkerNop:
			continue
		case ir.OpMarkerBlock:
			kind := blockKindBlock
			if inst.Target == 1 {
				kind = blockKindLoop
			}
			records[inst.BlockID] = &blockRecord{kind: kind, startPos: len(out)}
		case ir.OpMarkerIf:
			records[inst.BlockID] = &blockRecord{kind: blockKindIf, startPos: len(out)}
			out = append(out, ir.Imc{Op: ir.OpIf, BaseStackLevel: inst.BaseStackLevel, BlockID: inst.BlockID, SrcPos: inst.SrcPos})
		case ir.OpMarkerElse:
			rec, ok := records[inst.BlockID]
			if !ok {
				return nil, 0, wasmdebug.New(wasmdebug.BlockMismatch, "else for unknown block")
			}
			rec.sawElse = true
			out = append(out, ir.Imc{Op: ir.OpBr, BaseStackLevel: inst.BaseStackLevel, BlockID: inst.BlockID, SrcPos: inst.SrcPos})
			rec.elsePos = len(out)
		case ir.OpMarkerEnd:
			rec, ok := records[inst.BlockID]
			if !ok {
				// The implicit function-level block never gets a
				// Marker(Block): it is pushed directly in Compile(), not
				// via decodeStructured. Synthesize its record here so a
				// br/br_if/br_table targeting it (equivalent to return)
				// still has somewhere to relocate to.
				rec = &blockRecord{kind: blockKindBlock, startPos: len(out)}
				records[inst.BlockID] = rec
			}
			// Loop blocks were given startPos already; block/if's loop
			// field is irrelevant here since only loops use startPos as
			// their branch target.
			rec.endPos = len(out)
		default:
			out = append(out, inst)
		}
	}

	for i := range out {
		if err := relocate(&out[i], records); err != nil {
			return nil, 0, err
		}
	}

	// Every loop's own start must double as its branch target, and every
	// block/if's end position is whatever followed it, which is exactly
	// len(out) at the time its Marker(End) was processed — already set
	// above via rec.endPos.

	out = append(out, ir.Imc{Op: ir.OpUnreachable, BaseStackLevel: 0, SrcPos: -1})
	return out, maxStack, nil
}

func relocate(inst *ir.Imc, records map[int]*blockRecord) error {
	switch inst.Op {
	case ir.OpIf:
		rec, ok := records[inst.BlockID]
		if !ok {
			return wasmdebug.New(wasmdebug.BlockMismatch, "if target unknown")
		}
		if rec.sawElse {
			inst.Target = rec.elsePos
		} else {
			inst.Target = rec.endPos
		}
	case ir.OpBr, ir.OpBrIf, ir.OpBrUnwind, ir.OpBrIfUnwind,
		ir.OpFusedI32BrZ, ir.OpFusedI32BrEq, ir.OpFusedI32BrNe,
		ir.OpFusedI32BrLtS, ir.OpFusedI32BrLtU, ir.OpFusedI32BrGtS, ir.OpFusedI32BrGtU,
		ir.OpFusedI32BrLeS, ir.OpFusedI32BrLeU, ir.OpFusedI32BrGeS, ir.OpFusedI32BrGeU,
		ir.OpFusedI64BrZ, ir.OpFusedI64BrEq, ir.OpFusedI64BrNe:
		rec, ok := records[inst.BlockID]
		if !ok {
			return wasmdebug.New(wasmdebug.BlockMismatch, "branch target unknown")
		}
		if rec.kind == blockKindLoop {
			inst.Target = rec.startPos
		} else {
			inst.Target = rec.endPos
		}
	case ir.OpBrTable:
		resolved := make([]int, len(inst.Targets))
		for i, id := range inst.Targets {
			rec, ok := records[id]
			if !ok {
				return wasmdebug.New(wasmdebug.BlockMismatch, fmt.Sprintf("br_table target %d unknown", id))
			}
			if rec.kind == blockKindLoop {
				resolved[i] = rec.startPos
			} else {
				resolved[i] = rec.endPos
			}
		}
		inst.Targets = resolved
	}
	return nil
}
