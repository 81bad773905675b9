package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wami-rt/wami/internal/wasm"
	. "github.com/wami-rt/wami/internal/wasmtest"
)

func TestDecodeModule_BadHeader(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x61, 0x73}, NoopResolver)
	require.Error(t, err)

	bad := append(append([]byte{}, Magic...), 0x02, 0x00, 0x00, 0x00)
	_, err = DecodeModule(bad, NoopResolver)
	require.Error(t, err)
}

func TestDecodeModule_EmptyModule(t *testing.T) {
	m, err := DecodeModule(Module(), NoopResolver)
	require.NoError(t, err)
	require.Empty(t, m.TypeSection)
	require.Empty(t, m.FunctionSection)
}

func TestDecodeModule_SectionsOutOfOrderRejected(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		ExportSection(ExportEntry{Name: "x", Kind: wasm.ExternKindFunc, Index: 0}),
		TypeSection(FuncType{Results: []wasm.ValueType{i32}}),
	)
	_, err := DecodeModule(b, NoopResolver)
	require.Error(t, err)
}

func TestDecodeModule_TypeAndFunctionSections(t *testing.T) {
	i32, f32 := wasm.ValueTypeI32, wasm.ValueTypeF32
	b := Module(
		TypeSection(
			FuncType{},
			FuncType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}},
			FuncType{Params: []wasm.ValueType{f32}, Results: []wasm.ValueType{f32}},
		),
		FunctionSection(1, 2),
		CodeSection(
			Body(LocalGet(0), LocalGet(1), I32Add, Return),
			Body(LocalGet(0), Return),
		),
	)
	m, err := DecodeModule(b, NoopResolver)
	require.NoError(t, err)
	require.Len(t, m.TypeSection, 3)
	require.Len(t, m.FunctionSection, 2)
	require.Equal(t, wasm.BodyCodeBlock, m.FunctionSection[0].BodyKind)
	require.Equal(t, wasm.BodyCodeBlock, m.FunctionSection[1].BodyKind)
	require.NotNil(t, m.FunctionSection[0].Code)
}

func TestDecodeModule_MultiResultTypeRejected(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(TypeSection(FuncType{Results: []wasm.ValueType{i32, i32}}))
	_, err := DecodeModule(b, NoopResolver)
	require.Error(t, err)
}

func TestDecodeModule_CodeSectionCountMismatch(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		TypeSection(FuncType{Results: []wasm.ValueType{i32}}),
		FunctionSection(0, 0),
		CodeSection(Body(I32Const(1), Return)),
	)
	_, err := DecodeModule(b, NoopResolver)
	require.Error(t, err)
}

func TestDecodeModule_ImportFunc(t *testing.T) {
	i32 := wasm.ValueTypeI32
	called := false
	resolver := wasm.ResolverFunc(func(moduleName, importName string, sig *wasm.FunctionType) wasm.ImportResult {
		called = true
		require.Equal(t, "env", moduleName)
		require.Equal(t, "double", importName)
		return wasm.ImportResult{
			Kind: wasm.ResolvedOK,
			Fn: func(mod *wasm.ModuleInstance, params []wasm.Cell) (wasm.TypedValue, error) {
				return wasm.TypedValue{Type: i32, Bits: uint64(params[0]) * 2}, nil
			},
		}
	})

	payload := VecLen(1)
	payload = append(payload, WasmString("env")...)
	payload = append(payload, WasmString("double")...)
	payload = append(payload, byte(wasm.ExternKindFunc))
	payload = append(payload, 0x00) // type index 0

	b := Module(
		TypeSection(FuncType{Params: []wasm.ValueType{i32}, Results: []wasm.ValueType{i32}}),
		Section(2, payload),
	)
	m, err := DecodeModule(b, resolver)
	require.NoError(t, err)
	require.True(t, called)
	require.Len(t, m.FunctionSection, 1)
	require.Equal(t, wasm.OriginImported, m.FunctionSection[0].Origin)
	require.Equal(t, wasm.BodyHostFunction, m.FunctionSection[0].BodyKind)
	result, err := m.FunctionSection[0].Host(nil, []wasm.Cell{21})
	require.NoError(t, err)
	require.Equal(t, uint64(42), result.Bits)
}

func TestDecodeModule_ImportFuncRejectedByResolver(t *testing.T) {
	i32 := wasm.ValueTypeI32
	resolver := wasm.ResolverFunc(func(string, string, *wasm.FunctionType) wasm.ImportResult {
		return wasm.ImportResult{Kind: wasm.ResolvedNoModule}
	})
	payload := VecLen(1)
	payload = append(payload, WasmString("env")...)
	payload = append(payload, WasmString("missing")...)
	payload = append(payload, byte(wasm.ExternKindFunc))
	payload = append(payload, 0x00)

	b := Module(
		TypeSection(FuncType{Results: []wasm.ValueType{i32}}),
		Section(2, payload),
	)
	_, err := DecodeModule(b, resolver)
	require.Error(t, err)
	var impErr *wasm.ImportError
	require.ErrorAs(t, err, &impErr)
	require.Equal(t, wasm.ResolvedNoModule, impErr.Kind)
}

func TestDecodeModule_ImportedGlobalRejected(t *testing.T) {
	payload := VecLen(1)
	payload = append(payload, WasmString("env")...)
	payload = append(payload, WasmString("g")...)
	payload = append(payload, byte(wasm.ExternKindGlobal))
	payload = append(payload, byte(wasm.ValueTypeI32), 0x00)

	b := Module(Section(2, payload))
	_, err := DecodeModule(b, NoopResolver)
	require.Error(t, err)
}

func TestDecodeModule_TableMemoryGlobalExportStart(t *testing.T) {
	i32 := wasm.ValueTypeI32
	b := Module(
		TypeSection(FuncType{Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		TableSection(2, 2),
		MemorySection(1, -1),
		GlobalSection(GlobalEntry{Type: i32, Mutable: true, Init: I32Const(7)}),
		ExportSection(
			ExportEntry{Name: "main", Kind: wasm.ExternKindFunc, Index: 0},
			ExportEntry{Name: "mem", Kind: wasm.ExternKindMemory, Index: 0},
		),
		StartSection(0),
		ElementSection(ElementEntry{Offset: I32Const(0), FuncIndex: []uint32{0}}),
		CodeSection(Body(I32Const(99), Return)),
	)
	m, err := DecodeModule(b, NoopResolver)
	require.NoError(t, err)
	require.True(t, m.HasTable())
	require.True(t, m.HasMemory())
	require.Equal(t, int64(2), m.TableLimits.Max)
	require.False(t, m.MemoryLimits.HasMax())
	require.Len(t, m.GlobalSection, 1)
	require.Equal(t, uint64(7), m.GlobalSection[0].Init.Bits)
	require.True(t, m.GlobalSection[0].Mutable)
	exp, ok := m.LookupExport("main")
	require.True(t, ok)
	require.Equal(t, wasm.ExternKindFunc, exp.Kind)
	require.NotNil(t, m.StartIndex)
	require.Equal(t, uint32(0), *m.StartIndex)
	require.Len(t, m.ElementSection, 1)
	require.Equal(t, []uint32{0}, m.ElementSection[0].FuncIndex)
}

func TestDecodeModule_DataSection(t *testing.T) {
	b := Module(
		MemorySection(1, -1),
		DataSection(DataEntry{Offset: I32Const(4), Init: []byte{0xde, 0xad, 0xbe, 0xef}}),
	)
	m, err := DecodeModule(b, NoopResolver)
	require.NoError(t, err)
	require.Len(t, m.DataSection, 1)
	require.Equal(t, int32(4), m.DataSection[0].Offset)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, m.DataSection[0].Init)
}

func TestDecodeModule_NameSection(t *testing.T) {
	i32 := wasm.ValueTypeI32

	namePayload := WasmString("name")
	sub := WasmString("tester")
	namePayload = append(namePayload, 0x00, byte(len(sub)))
	namePayload = append(namePayload, sub...)

	funcNames := VecLen(1)
	funcNames = append(funcNames, 0x00)
	funcNames = append(funcNames, WasmString("add")...)
	namePayload = append(namePayload, 0x01, byte(len(funcNames)))
	namePayload = append(namePayload, funcNames...)

	b := Module(
		Section(0, namePayload),
		TypeSection(FuncType{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}}),
		FunctionSection(0),
		CodeSection(Body(LocalGet(0), LocalGet(1), I32Add, Return)),
	)
	m, err := DecodeModule(b, NoopResolver)
	require.NoError(t, err)
	require.NotNil(t, m.NameSection)
	require.Equal(t, "tester", m.NameSection.ModuleName)
	require.Equal(t, "add", m.NameSection.FuncName(0))
	require.Equal(t, "add", m.FunctionSection[0].Name)
}

func TestDecodeModule_UnknownCustomSectionIgnored(t *testing.T) {
	b := Module(Section(0, append(WasmString("producers"), 0xde, 0xad)))
	m, err := DecodeModule(b, NoopResolver)
	require.NoError(t, err)
	require.Nil(t, m.NameSection)
}

func TestDecodeModule_MultiTableRejected(t *testing.T) {
	b := Module(TableSection(1, -1), Section(4, append(VecLen(1), 0x70, 0x00, 0x01)))
	_, err := DecodeModule(b, NoopResolver)
	require.Error(t, err)
}

func TestDecodeModule_MultiMemoryRejected(t *testing.T) {
	b := Module(MemorySection(1, -1), Section(5, append(VecLen(1), 0x00, 0x01)))
	_, err := DecodeModule(b, NoopResolver)
	require.Error(t, err)
}
