// Package ir defines the flat, stack-annotated intermediate
// representation the function compiler (package wazeroir) emits and the
// interpreter (package interpreter) executes. It has no dependency on
// either of those packages so both can depend on it without a cycle.
package ir

// Op tags the variant of an Imc instruction. Dispatch in the
// interpreter is a switch on this tag; the transient Marker* tags never
// survive compaction (see wazeroir's compactor).
type Op int

const (
	// Control.
	OpUnreachable Op = iota
	OpIf
	OpBr
	OpBrIf
	OpBrTable
	OpBrUnwind
	OpBrIfUnwind
	OpReturnNone
	OpReturnInt
	OpReturnFloat
	OpCall
	OpCallIndirect
	OpSelectInt
	OpSelectFloat

	// Variable access.
	OpLocalGetInt
	OpLocalGetFloat
	OpLocalSetInt
	OpLocalSetFloat
	OpLocalTeeInt
	OpLocalTeeFloat
	OpGlobalGetInt
	OpGlobalGetFloat
	OpGlobalSetInt
	OpGlobalSetFloat

	// Memory.
	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Load8S
	OpI32Load8U
	OpI32Load16S
	OpI32Load16U
	OpI64Load8S
	OpI64Load8U
	OpI64Load16S
	OpI64Load16U
	OpI64Load32S
	OpI64Load32U
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpI32Store8
	OpI32Store16
	OpI64Store8
	OpI64Store16
	OpI64Store32
	OpMemorySize
	OpMemoryGrow
	OpMemoryCopy
	OpMemoryFill

	// Constants.
	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const

	// Numeric: Wasm 1.0 + sign-extension + saturating truncation + reinterpret.
	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU
	OpI64Eqz
	OpI64Eq
	OpI64Ne
	OpI64LtS
	OpI64LtU
	OpI64GtS
	OpI64GtU
	OpI64LeS
	OpI64LeU
	OpI64GeS
	OpI64GeU
	OpF32Eq
	OpF32Ne
	OpF32Lt
	OpF32Gt
	OpF32Le
	OpF32Ge
	OpF64Eq
	OpF64Ne
	OpF64Lt
	OpF64Gt
	OpF64Le
	OpF64Ge
	OpI32Clz
	OpI32Ctz
	OpI32Popcnt
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr
	OpI64Clz
	OpI64Ctz
	OpI64Popcnt
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr
	OpF32Abs
	OpF32Neg
	OpF32Ceil
	OpF32Floor
	OpF32Trunc
	OpF32Nearest
	OpF32Sqrt
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign
	OpF64Abs
	OpF64Neg
	OpF64Ceil
	OpF64Floor
	OpF64Trunc
	OpF64Nearest
	OpF64Sqrt
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign
	OpI32WrapI64
	OpI32TruncF32S
	OpI32TruncF32U
	OpI32TruncF64S
	OpI32TruncF64U
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpI64TruncF32S
	OpI64TruncF32U
	OpI64TruncF64S
	OpI64TruncF64U
	OpF32ConvertI32S
	OpF32ConvertI32U
	OpF32ConvertI64S
	OpF32ConvertI64U
	OpF32DemoteF64
	OpF64ConvertI32S
	OpF64ConvertI32U
	OpF64ConvertI64S
	OpF64ConvertI64U
	OpF64PromoteF32
	OpI32ReinterpretF32
	OpI64ReinterpretF64
	OpF32ReinterpretI32
	OpF64ReinterpretI64
	OpI32Extend8S
	OpI32Extend16S
	OpI64Extend8S
	OpI64Extend16S
	OpI64Extend32S
	OpI32TruncSatF32S
	OpI32TruncSatF32U
	OpI32TruncSatF64S
	OpI32TruncSatF64U
	OpI64TruncSatF32S
	OpI64TruncSatF32U
	OpI64TruncSatF64S
	OpI64TruncSatF64U
	OpDrop

	// Fused peephole pairs.
	OpFusedI32SetConst
	OpFusedI32AddI
	OpFusedI32SubI
	OpFusedI32AndI
	OpFusedI32OrI
	OpFusedI32XorI
	OpFusedI32ShlI
	OpFusedI32ShrSI
	OpFusedI32ShrUI
	OpFusedI64SetConst
	OpFusedI64AddI
	OpFusedI64SubI
	OpFusedI64AndI
	OpFusedI64OrI
	OpFusedI64XorI
	OpFusedI64ShlI
	OpFusedI64ShrSI
	OpFusedI64ShrUI
	OpFusedI32BrZ
	OpFusedI32BrEq
	OpFusedI32BrNe
	OpFusedI32BrLtS
	OpFusedI32BrLtU
	OpFusedI32BrGtS
	OpFusedI32BrGtU
	OpFusedI32BrLeS
	OpFusedI32BrLeU
	OpFusedI32BrGeS
	OpFusedI32BrGeU
	OpFusedI64BrZ
	OpFusedI64BrEq
	OpFusedI64BrNe

	// Transient markers, used only during compilation; none survive
	// compaction.
	OpMarkerNop
	OpMarkerBlock
	OpMarkerIf
	OpMarkerElse
	OpMarkerEnd

	OpNotSupported
)

// Imc is one IR instruction: (opcode, base_stack_level) plus whatever
// payload the opcode needs. BaseStackLevel equals the operand-stack
// depth immediately before the instruction executes for every non-
// marker instruction; its operands therefore live at
// [BaseStackLevel, BaseStackLevel+arity) and its result, if any, lands
// at BaseStackLevel.
type Imc struct {
	Op             Op
	BaseStackLevel int

	// Target is the branch target: an IR index after compaction, a block
	// id before it.
	Target int
	// Targets holds br_table's target list (block ids, then IR indices).
	Targets []int
	// UnwindLevel is the operand-stack level BrUnwind/BrIfUnwind copies
	// the top operand down to before jumping.
	UnwindLevel int

	// Local/global index for variable-access opcodes.
	VarIndex uint32

	// Immediate payload for constants and fused-immediate ops.
	ImmI32 int32
	ImmI64 int64
	ImmF32 float32
	ImmF64 float64

	// Memory ops: the memarg offset.
	MemOffset uint32

	// Call: absolute function index (OpCall) or type index (OpCallIndirect).
	CallIndex uint32

	// SrcPos is the byte offset within the function body, used for trap
	// diagnostics.
	SrcPos int

	// BlockID identifies the owning block for marker instructions and,
	// before compaction, for If/Br*/BrTable targets.
	BlockID int
}

// CodeBlock is the compiled output of one function body: a verified,
// stack-annotated, peephole-fused, compacted IR stream.
type CodeBlock struct {
	FuncIndex int
	FileOffset int

	// ParamAndLocalTypes is (param_types, local_types) concatenated.
	ParamAndLocalTypes []byte // each byte is a wasm.ValueType

	MaxStack int
	IsLeaf   bool

	// IR is terminated by a trap sentinel (OpUnreachable) so the
	// interpreter's position counter cannot fall off the end.
	IR []Imc
}

// NumParamsAndLocals returns len(ParamAndLocalTypes).
func (c *CodeBlock) NumParamsAndLocals() int { return len(c.ParamAndLocalTypes) }
