package wami

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wami-rt/wami/internal/wasm"
)

// buildHostFunction exercises HostModuleBuilder/HostFunctionBuilder
// directly, bypassing Instantiate, to isolate the reflect-based
// marshaling from the rest of the runtime.
func buildHostFunction(t *testing.T, goFunc interface{}) wasm.HostFunction {
	t.Helper()
	r := &Runtime{hosts: newHostRegistry()}
	b := r.NewHostModuleBuilder("env")
	b.NewFunctionBuilder().WithFunc(goFunc).Export("f")
	require.NoError(t, b.Instantiate(context.Background()))
	fn, ok := r.hosts.fns.Get(hostKey{"env", "f"})
	require.True(t, ok)
	return fn
}

func TestHostFunction_Int32ParamDistinctFromUint32(t *testing.T) {
	// int32 and uint32 both map to ValueTypeI32 but are distinct reflect
	// Kinds; a naive uint32-only marshaler panics calling this.
	var captured int32
	fn := buildHostFunction(t, func(v int32) int32 {
		captured = v
		return v * -1
	})

	neg5 := int32(-5)
	result, err := fn(nil, []wasm.Cell{wasm.Cell(uint32(neg5))})
	require.NoError(t, err)
	require.Equal(t, int32(-5), captured)
	require.Equal(t, uint64(uint32(5)), result.Bits)
}

func TestHostFunction_Uint64Param(t *testing.T) {
	fn := buildHostFunction(t, func(v uint64) uint64 { return v + 1 })
	result, err := fn(nil, []wasm.Cell{wasm.Cell(41)})
	require.NoError(t, err)
	require.Equal(t, uint64(42), result.Bits)
}

func TestHostFunction_Float64Param(t *testing.T) {
	fn := buildHostFunction(t, func(v float64) float64 { return v * 2 })
	result, err := fn(nil, []wasm.Cell{wasm.Cell(EncodeF64(1.5))})
	require.NoError(t, err)
	require.Equal(t, 3.0, DecodeF64(result.Bits))
}

func TestHostFunction_LeadingContext(t *testing.T) {
	fn := buildHostFunction(t, func(ctx context.Context, v uint32) uint32 { return v + 1 })
	result, err := fn(nil, []wasm.Cell{wasm.Cell(1)})
	require.NoError(t, err)
	require.Equal(t, uint64(2), result.Bits)
}

func TestHostFunction_NoResult(t *testing.T) {
	called := false
	fn := buildHostFunction(t, func(v uint32) { called = true })
	result, err := fn(nil, []wasm.Cell{wasm.Cell(1)})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, wasm.TypedValue{}, result)
}
