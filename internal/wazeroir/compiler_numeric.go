package wazeroir

import (
	"fmt"

	"github.com/wami-rt/wami/internal/ir"
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasmdebug"
)

// numericOp describes one opcode in the comparison/arithmetic/conversion
// space: its operand arity and types, its result type, and the IR op it
// lowers to. Binary ops take two operands of the same Operand type;
// conversions/unary ops take one.
type numericOp struct {
	irOp    ir.Op
	operand wasm.ValueType
	arity   int
	result  wasm.ValueType
}

var numericTable = map[wasm.Opcode]numericOp{
	wasm.OpcodeI32Eqz: {ir.OpI32Eqz, i32, 1, i32},
	wasm.OpcodeI32Eq:  {ir.OpI32Eq, i32, 2, i32},
	wasm.OpcodeI32Ne:  {ir.OpI32Ne, i32, 2, i32},
	wasm.OpcodeI32LtS: {ir.OpI32LtS, i32, 2, i32},
	wasm.OpcodeI32LtU: {ir.OpI32LtU, i32, 2, i32},
	wasm.OpcodeI32GtS: {ir.OpI32GtS, i32, 2, i32},
	wasm.OpcodeI32GtU: {ir.OpI32GtU, i32, 2, i32},
	wasm.OpcodeI32LeS: {ir.OpI32LeS, i32, 2, i32},
	wasm.OpcodeI32LeU: {ir.OpI32LeU, i32, 2, i32},
	wasm.OpcodeI32GeS: {ir.OpI32GeS, i32, 2, i32},
	wasm.OpcodeI32GeU: {ir.OpI32GeU, i32, 2, i32},

	wasm.OpcodeI64Eqz: {ir.OpI64Eqz, i64, 1, i32},
	wasm.OpcodeI64Eq:  {ir.OpI64Eq, i64, 2, i32},
	wasm.OpcodeI64Ne:  {ir.OpI64Ne, i64, 2, i32},
	wasm.OpcodeI64LtS: {ir.OpI64LtS, i64, 2, i32},
	wasm.OpcodeI64LtU: {ir.OpI64LtU, i64, 2, i32},
	wasm.OpcodeI64GtS: {ir.OpI64GtS, i64, 2, i32},
	wasm.OpcodeI64GtU: {ir.OpI64GtU, i64, 2, i32},
	wasm.OpcodeI64LeS: {ir.OpI64LeS, i64, 2, i32},
	wasm.OpcodeI64LeU: {ir.OpI64LeU, i64, 2, i32},
	wasm.OpcodeI64GeS: {ir.OpI64GeS, i64, 2, i32},
	wasm.OpcodeI64GeU: {ir.OpI64GeU, i64, 2, i32},

	wasm.OpcodeF32Eq: {ir.OpF32Eq, f32, 2, i32},
	wasm.OpcodeF32Ne: {ir.OpF32Ne, f32, 2, i32},
	wasm.OpcodeF32Lt: {ir.OpF32Lt, f32, 2, i32},
	wasm.OpcodeF32Gt: {ir.OpF32Gt, f32, 2, i32},
	wasm.OpcodeF32Le: {ir.OpF32Le, f32, 2, i32},
	wasm.OpcodeF32Ge: {ir.OpF32Ge, f32, 2, i32},
	wasm.OpcodeF64Eq: {ir.OpF64Eq, f64, 2, i32},
	wasm.OpcodeF64Ne: {ir.OpF64Ne, f64, 2, i32},
	wasm.OpcodeF64Lt: {ir.OpF64Lt, f64, 2, i32},
	wasm.OpcodeF64Gt: {ir.OpF64Gt, f64, 2, i32},
	wasm.OpcodeF64Le: {ir.OpF64Le, f64, 2, i32},
	wasm.OpcodeF64Ge: {ir.OpF64Ge, f64, 2, i32},

	wasm.OpcodeI32Clz:    {ir.OpI32Clz, i32, 1, i32},
	wasm.OpcodeI32Ctz:    {ir.OpI32Ctz, i32, 1, i32},
	wasm.OpcodeI32Popcnt: {ir.OpI32Popcnt, i32, 1, i32},
	wasm.OpcodeI32Add:    {ir.OpI32Add, i32, 2, i32},
	wasm.OpcodeI32Sub:    {ir.OpI32Sub, i32, 2, i32},
	wasm.OpcodeI32Mul:    {ir.OpI32Mul, i32, 2, i32},
	wasm.OpcodeI32DivS:   {ir.OpI32DivS, i32, 2, i32},
	wasm.OpcodeI32DivU:   {ir.OpI32DivU, i32, 2, i32},
	wasm.OpcodeI32RemS:   {ir.OpI32RemS, i32, 2, i32},
	wasm.OpcodeI32RemU:   {ir.OpI32RemU, i32, 2, i32},
	wasm.OpcodeI32And:    {ir.OpI32And, i32, 2, i32},
	wasm.OpcodeI32Or:     {ir.OpI32Or, i32, 2, i32},
	wasm.OpcodeI32Xor:    {ir.OpI32Xor, i32, 2, i32},
	wasm.OpcodeI32Shl:    {ir.OpI32Shl, i32, 2, i32},
	wasm.OpcodeI32ShrS:   {ir.OpI32ShrS, i32, 2, i32},
	wasm.OpcodeI32ShrU:   {ir.OpI32ShrU, i32, 2, i32},
	wasm.OpcodeI32Rotl:   {ir.OpI32Rotl, i32, 2, i32},
	wasm.OpcodeI32Rotr:   {ir.OpI32Rotr, i32, 2, i32},

	wasm.OpcodeI64Clz:    {ir.OpI64Clz, i64, 1, i64},
	wasm.OpcodeI64Ctz:    {ir.OpI64Ctz, i64, 1, i64},
	wasm.OpcodeI64Popcnt: {ir.OpI64Popcnt, i64, 1, i64},
	wasm.OpcodeI64Add:    {ir.OpI64Add, i64, 2, i64},
	wasm.OpcodeI64Sub:    {ir.OpI64Sub, i64, 2, i64},
	wasm.OpcodeI64Mul:    {ir.OpI64Mul, i64, 2, i64},
	wasm.OpcodeI64DivS:   {ir.OpI64DivS, i64, 2, i64},
	wasm.OpcodeI64DivU:   {ir.OpI64DivU, i64, 2, i64},
	wasm.OpcodeI64RemS:   {ir.OpI64RemS, i64, 2, i64},
	wasm.OpcodeI64RemU:   {ir.OpI64RemU, i64, 2, i64},
	wasm.OpcodeI64And:    {ir.OpI64And, i64, 2, i64},
	wasm.OpcodeI64Or:     {ir.OpI64Or, i64, 2, i64},
	wasm.OpcodeI64Xor:    {ir.OpI64Xor, i64, 2, i64},
	wasm.OpcodeI64Shl:    {ir.OpI64Shl, i64, 2, i64},
	wasm.OpcodeI64ShrS:   {ir.OpI64ShrS, i64, 2, i64},
	wasm.OpcodeI64ShrU:   {ir.OpI64ShrU, i64, 2, i64},
	wasm.OpcodeI64Rotl:   {ir.OpI64Rotl, i64, 2, i64},
	wasm.OpcodeI64Rotr:   {ir.OpI64Rotr, i64, 2, i64},

	wasm.OpcodeF32Abs:      {ir.OpF32Abs, f32, 1, f32},
	wasm.OpcodeF32Neg:      {ir.OpF32Neg, f32, 1, f32},
	wasm.OpcodeF32Ceil:     {ir.OpF32Ceil, f32, 1, f32},
	wasm.OpcodeF32Floor:    {ir.OpF32Floor, f32, 1, f32},
	wasm.OpcodeF32Trunc:    {ir.OpF32Trunc, f32, 1, f32},
	wasm.OpcodeF32Nearest:  {ir.OpF32Nearest, f32, 1, f32},
	wasm.OpcodeF32Sqrt:     {ir.OpF32Sqrt, f32, 1, f32},
	wasm.OpcodeF32Add:      {ir.OpF32Add, f32, 2, f32},
	wasm.OpcodeF32Sub:      {ir.OpF32Sub, f32, 2, f32},
	wasm.OpcodeF32Mul:      {ir.OpF32Mul, f32, 2, f32},
	wasm.OpcodeF32Div:      {ir.OpF32Div, f32, 2, f32},
	wasm.OpcodeF32Min:      {ir.OpF32Min, f32, 2, f32},
	wasm.OpcodeF32Max:      {ir.OpF32Max, f32, 2, f32},
	wasm.OpcodeF32Copysign: {ir.OpF32Copysign, f32, 2, f32},

	wasm.OpcodeF64Abs:      {ir.OpF64Abs, f64, 1, f64},
	wasm.OpcodeF64Neg:      {ir.OpF64Neg, f64, 1, f64},
	wasm.OpcodeF64Ceil:     {ir.OpF64Ceil, f64, 1, f64},
	wasm.OpcodeF64Floor:    {ir.OpF64Floor, f64, 1, f64},
	wasm.OpcodeF64Trunc:    {ir.OpF64Trunc, f64, 1, f64},
	wasm.OpcodeF64Nearest:  {ir.OpF64Nearest, f64, 1, f64},
	wasm.OpcodeF64Sqrt:     {ir.OpF64Sqrt, f64, 1, f64},
	wasm.OpcodeF64Add:      {ir.OpF64Add, f64, 2, f64},
	wasm.OpcodeF64Sub:      {ir.OpF64Sub, f64, 2, f64},
	wasm.OpcodeF64Mul:      {ir.OpF64Mul, f64, 2, f64},
	wasm.OpcodeF64Div:      {ir.OpF64Div, f64, 2, f64},
	wasm.OpcodeF64Min:      {ir.OpF64Min, f64, 2, f64},
	wasm.OpcodeF64Max:      {ir.OpF64Max, f64, 2, f64},
	wasm.OpcodeF64Copysign: {ir.OpF64Copysign, f64, 2, f64},

	wasm.OpcodeI32WrapI64:     {ir.OpI32WrapI64, i64, 1, i32},
	wasm.OpcodeI32TruncF32S:   {ir.OpI32TruncF32S, f32, 1, i32},
	wasm.OpcodeI32TruncF32U:   {ir.OpI32TruncF32U, f32, 1, i32},
	wasm.OpcodeI32TruncF64S:   {ir.OpI32TruncF64S, f64, 1, i32},
	wasm.OpcodeI32TruncF64U:   {ir.OpI32TruncF64U, f64, 1, i32},
	wasm.OpcodeI64ExtendI32S:  {ir.OpI64ExtendI32S, i32, 1, i64},
	wasm.OpcodeI64ExtendI32U:  {ir.OpI64ExtendI32U, i32, 1, i64},
	wasm.OpcodeI64TruncF32S:   {ir.OpI64TruncF32S, f32, 1, i64},
	wasm.OpcodeI64TruncF32U:   {ir.OpI64TruncF32U, f32, 1, i64},
	wasm.OpcodeI64TruncF64S:   {ir.OpI64TruncF64S, f64, 1, i64},
	wasm.OpcodeI64TruncF64U:   {ir.OpI64TruncF64U, f64, 1, i64},
	wasm.OpcodeF32ConvertI32S: {ir.OpF32ConvertI32S, i32, 1, f32},
	wasm.OpcodeF32ConvertI32U: {ir.OpF32ConvertI32U, i32, 1, f32},
	wasm.OpcodeF32ConvertI64S: {ir.OpF32ConvertI64S, i64, 1, f32},
	wasm.OpcodeF32ConvertI64U: {ir.OpF32ConvertI64U, i64, 1, f32},
	wasm.OpcodeF32DemoteF64:   {ir.OpF32DemoteF64, f64, 1, f32},
	wasm.OpcodeF64ConvertI32S: {ir.OpF64ConvertI32S, i32, 1, f64},
	wasm.OpcodeF64ConvertI32U: {ir.OpF64ConvertI32U, i32, 1, f64},
	wasm.OpcodeF64ConvertI64S: {ir.OpF64ConvertI64S, i64, 1, f64},
	wasm.OpcodeF64ConvertI64U: {ir.OpF64ConvertI64U, i64, 1, f64},
	wasm.OpcodeF64PromoteF32:  {ir.OpF64PromoteF32, f32, 1, f64},

	wasm.OpcodeI32ReinterpretF32: {ir.OpI32ReinterpretF32, f32, 1, i32},
	wasm.OpcodeI64ReinterpretF64: {ir.OpI64ReinterpretF64, f64, 1, i64},
	wasm.OpcodeF32ReinterpretI32: {ir.OpF32ReinterpretI32, i32, 1, f32},
	wasm.OpcodeF64ReinterpretI64: {ir.OpF64ReinterpretI64, i64, 1, f64},

	wasm.OpcodeI32Extend8S:  {ir.OpI32Extend8S, i32, 1, i32},
	wasm.OpcodeI32Extend16S: {ir.OpI32Extend16S, i32, 1, i32},
	wasm.OpcodeI64Extend8S:  {ir.OpI64Extend8S, i64, 1, i64},
	wasm.OpcodeI64Extend16S: {ir.OpI64Extend16S, i64, 1, i64},
	wasm.OpcodeI64Extend32S: {ir.OpI64Extend32S, i64, 1, i64},
}

// decodeNumeric looks op up in numericTable: pops its declared arity of
// operand-typed values, emits the IR op at the resulting base level, and
// pushes the result type. This single table drives every comparison,
// arithmetic, conversion, sign-extension, and reinterpret opcode so each
// one doesn't need its own decode* function.
func (c *compiler) decodeNumeric(op wasm.Opcode, pos int) (bool, error) {
	info, ok := numericTable[op]
	if !ok {
		return false, wasmdebug.New(wasmdebug.InvalidBytecode, fmt.Sprintf("unknown opcode %#x", byte(op)))
	}
	for i := 0; i < info.arity; i++ {
		if e := c.expect(info.operand); e != nil {
			return false, e
		}
	}
	base := len(c.valueStack)
	c.emit(ir.Imc{Op: info.irOp, BaseStackLevel: base, SrcPos: pos})
	c.push(info.result)
	return false, nil
}
