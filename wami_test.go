package wami

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wami-rt/wami/internal/trap"
	"github.com/wami-rt/wami/internal/wasm"
	. "github.com/wami-rt/wami/internal/wasmtest"
)

func mustInstantiate(t *testing.T, b []byte) *Instance {
	t.Helper()
	ctx := context.Background()
	rt := NewRuntime(ctx)
	cm, err := rt.CompileModule(ctx, b)
	require.NoError(t, err)
	inst, err := rt.Instantiate(ctx, cm)
	require.NoError(t, err)
	return inst
}

func TestConstReturn(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		TypeSection(FuncType{Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		ExportSection(ExportEntry{Name: "main", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(Body(I32Const(0x12345678))),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("main")
	require.NotNil(t, fn)
	result, err := fn.Call(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uint64{0x12345678}, result)
}

func TestDivTrapAtPosition5(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		TypeSection(FuncType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		ExportSection(ExportEntry{Name: "divide", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(Body(LocalGet(0), LocalGet(1), I32DivS)),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("divide")
	require.NotNil(t, fn)

	_, err := fn.Call(context.Background(), 10, 0)
	require.Error(t, err)
	var tr *trap.Trap
	require.ErrorAs(t, err, &tr)
	require.Equal(t, trap.DivideByZero, tr.Kind)
	require.Equal(t, 5, tr.Position)
}

func TestBrTable(t *testing.T) {
	i32 := wasm.ValueTypeI32
	body := Body(
		Block(0x40),
		Block(0x40),
		Block(0x40),
		LocalGet(0),
		BrTable(0, 1, 2),
		End,
		I32Const(123),
		Return,
		End,
		I32Const(456),
		Return,
		End,
		I32Const(789),
		Return,
	)
	b := Module(
		TypeSection(FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		ExportSection(ExportEntry{Name: "pick", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(body),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("pick")
	require.NotNil(t, fn)

	for selector, want := range map[uint64]uint64{0: 123, 1: 456, 2: 789, 9: 789} {
		result, err := fn.Call(context.Background(), selector)
		require.NoError(t, err)
		require.Equal(t, []uint64{want}, result, "selector %d", selector)
	}
}

func TestFactorialRecursive(t *testing.T) {
	i32 := wasm.ValueTypeI32
	body := Body(
		LocalGet(0),
		I32Eqz,
		If(byte(i32)),
		I32Const(1),
		Else,
		LocalGet(0),
		LocalGet(0),
		I32Const(1),
		I32Sub,
		Call(0),
		I32Mul,
		End,
	)
	b := Module(
		TypeSection(FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		ExportSection(ExportEntry{Name: "factorial", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(body),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("factorial")
	require.NotNil(t, fn)

	result, err := fn.Call(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []uint64{5040}, result)

	result, err = fn.Call(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{3628800}, result)
}

func TestFibonacciRecursive(t *testing.T) {
	i32 := wasm.ValueTypeI32
	body := Body(
		LocalGet(0),
		I32Const(2),
		I32LtS,
		If(byte(i32)),
		LocalGet(0),
		Else,
		LocalGet(0),
		I32Const(1),
		I32Sub,
		Call(0),
		LocalGet(0),
		I32Const(2),
		I32Sub,
		Call(0),
		I32Add,
		End,
	)
	b := Module(
		TypeSection(FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		ExportSection(ExportEntry{Name: "fib", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(body),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("fib")
	require.NotNil(t, fn)

	result, err := fn.Call(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{55}, result)

	result, err = fn.Call(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, []uint64{6765}, result)
}

func TestF32ReinterpretI32(t *testing.T) {
	f32 := wasm.ValueTypeF32
	b := Module(
		TypeSection(FuncType{Results: []wasm.ValueType{f32}}),
		FunctionSection(0),
		ExportSection(ExportEntry{Name: "pi", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(Body(I32Const(int32(0x40490fdb)), F32ReinterpretI32)),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("pi")
	require.NotNil(t, fn)

	result, err := fn.Call(context.Background())
	require.NoError(t, err)
	require.Equal(t, float32(3.1415927), DecodeF32(result[0]))
}

func TestMemoryLoadStoreRoundTrip(t *testing.T) {
	i32 := wasm.ValueTypeI32
	body := Body(
		I32Const(100),
		I32Const(-0x21524111), // 0xdeadbeef as i32
		I32Store(0),
		I32Const(100),
		I32Load(0),
	)
	b := Module(
		TypeSection(FuncType{Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		MemorySection(1, -1),
		ExportSection(ExportEntry{Name: "roundtrip", Kind: wasm.ExternKindFunc, Index: 0}),
		CodeSection(body),
	)
	inst := mustInstantiate(t, b)
	require.NotNil(t, inst.Memory())

	fn := inst.ExportedFunction("roundtrip")
	require.NotNil(t, fn)
	result, err := fn.Call(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(0xdeadbeef), result[0])

	v, ok := inst.Memory().ReadUint32Le(100)
	require.True(t, ok)
	require.Equal(t, uint32(0xdeadbeef), v)
}

func TestCallIndirect(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		TypeSection(
			FuncType{Results: []wasm.ValueType{i32}},               // type 0, shared by table entries
			FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}, // type 1, the driver
		),
		FunctionSection(0, 0, 1),
		TableSection(2, 2),
		ExportSection(ExportEntry{Name: "dispatch", Kind: wasm.ExternKindFunc, Index: 2}),
		ElementSection(ElementEntry{Offset: I32Const(0), FuncIndex: []uint32{0, 1}}),
		CodeSection(
			Body(I32Const(11)),
			Body(I32Const(22)),
			Body(LocalGet(0), CallIndirect(0)),
		),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("dispatch")
	require.NotNil(t, fn)

	result, err := fn.Call(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{11}, result)

	result, err = fn.Call(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{22}, result)
}

func TestCallIndirectOutOfBoundsTraps(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		TypeSection(
			FuncType{Results: []wasm.ValueType{i32}},
			FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}},
		),
		FunctionSection(0, 1),
		TableSection(1, 1),
		ExportSection(ExportEntry{Name: "dispatch", Kind: wasm.ExternKindFunc, Index: 1}),
		ElementSection(ElementEntry{Offset: I32Const(0), FuncIndex: []uint32{0}}),
		CodeSection(
			Body(I32Const(1)),
			Body(LocalGet(0), CallIndirect(0)),
		),
	)
	inst := mustInstantiate(t, b)
	fn := inst.ExportedFunction("dispatch")
	require.NotNil(t, fn)

	_, err := fn.Call(context.Background(), 5)
	require.Error(t, err)
	var tr *trap.Trap
	require.ErrorAs(t, err, &tr)
	require.Equal(t, trap.OutOfBounds, tr.Kind)
}
