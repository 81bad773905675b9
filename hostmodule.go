package wami

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dolthub/swiss"

	"github.com/wami-rt/wami/internal/wasm"
)

// hostKey identifies one registered host function by its import coordinates.
type hostKey struct {
	module string
	name   string
}

// hostRegistry accumulates host functions registered via
// NewHostModuleBuilder and implements wasm.Resolver against them, the
// way wazero's moduleBuilder-backed Store resolves guest imports against
// the host modules instantiated into it beforehand.
type hostRegistry struct {
	fns *swiss.Map[hostKey, wasm.HostFunction]
}

func newHostRegistry() *hostRegistry {
	return &hostRegistry{fns: swiss.NewMap[hostKey, wasm.HostFunction](16)}
}

func (h *hostRegistry) ResolveFunc(moduleName, importName string, sig *wasm.FunctionType) wasm.ImportResult {
	fn, ok := h.fns.Get(hostKey{moduleName, importName})
	if !ok {
		return wasm.ImportResult{Kind: wasm.ResolvedNoMethod}
	}
	return wasm.ImportResult{Kind: wasm.ResolvedOK, Fn: fn}
}

// HostModuleBuilder accumulates Go functions to export under one module
// name; call Instantiate to register them on the Runtime's resolver.
type HostModuleBuilder struct {
	r          *Runtime
	moduleName string
	fns        map[string]wasm.HostFunction
}

// NewHostModuleBuilder starts building a host module importable under
// moduleName. Register it (Instantiate) before compiling any guest that
// imports from it, since imports resolve at CompileModule time.
func (r *Runtime) NewHostModuleBuilder(moduleName string) *HostModuleBuilder {
	return &HostModuleBuilder{r: r, moduleName: moduleName, fns: map[string]wasm.HostFunction{}}
}

// NewFunctionBuilder starts defining one exported function.
func (b *HostModuleBuilder) NewFunctionBuilder() *HostFunctionBuilder {
	return &HostFunctionBuilder{module: b}
}

// Instantiate registers every function the builder accumulated on the
// owning Runtime's host registry.
func (b *HostModuleBuilder) Instantiate(ctx context.Context) error {
	for name, fn := range b.fns {
		b.r.hosts.fns.Put(hostKey{b.moduleName, name}, fn)
	}
	return nil
}

// HostFunctionBuilder defines one host function via reflection over a Go
// func value, mirroring wazero's WithFunc: parameter/result Go types map
// onto Wasm ValueTypes one-for-one (uint32/int32 -> i32, uint64/int64 ->
// i64, float32 -> f32, float64 -> f64), with an optional leading
// context.Context parameter threaded through from the call site. The
// exact Go reflect.Type of every parameter/result is kept (not just its
// ValueType) so a result declared int32 round-trips through reflect as
// int32, not uint32 — reflect.Value.Call panics on a kind mismatch.
type HostFunctionBuilder struct {
	module     *HostModuleBuilder
	fn         reflect.Value
	paramTypes []reflect.Type
	params     []wasm.ValueType
	resultType reflect.Type
	result     wasm.ValueType
	hasRes     bool
	withCtx    bool
}

// WithFunc maps goFunc's signature to a Wasm FunctionType via reflection.
// goFunc must be a func, optionally taking a leading context.Context,
// with every remaining parameter and the (at most one) result one of
// uint32, int32, uint64, int64, float32, float64.
func (b *HostFunctionBuilder) WithFunc(goFunc interface{}) *HostFunctionBuilder {
	v := reflect.ValueOf(goFunc)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic("wami: WithFunc requires a func value")
	}

	b.fn = v
	start := 0
	var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	if t.NumIn() > 0 && t.In(0).Implements(ctxType) {
		b.withCtx = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		pt := t.In(i)
		b.paramTypes = append(b.paramTypes, pt)
		b.params = append(b.params, goTypeToValueType(pt))
	}
	switch t.NumOut() {
	case 0:
	case 1:
		b.hasRes = true
		b.resultType = t.Out(0)
		b.result = goTypeToValueType(b.resultType)
	default:
		panic("wami: host functions may return at most one value")
	}
	return b
}

func goTypeToValueType(t reflect.Type) wasm.ValueType {
	switch t.Kind() {
	case reflect.Uint32, reflect.Int32:
		return wasm.ValueTypeI32
	case reflect.Uint64, reflect.Int64, reflect.Uint, reflect.Int:
		return wasm.ValueTypeI64
	case reflect.Float32:
		return wasm.ValueTypeF32
	case reflect.Float64:
		return wasm.ValueTypeF64
	default:
		panic(fmt.Sprintf("wami: unsupported host function type %s", t))
	}
}

// Export binds the function under name and returns to the owning
// HostModuleBuilder.
func (b *HostFunctionBuilder) Export(name string) *HostModuleBuilder {
	paramVTs := append([]wasm.ValueType(nil), b.params...)
	paramTypes := append([]reflect.Type(nil), b.paramTypes...)
	hasRes, resultVT, resultType := b.hasRes, b.result, b.resultType
	fn := b.fn
	withCtx := b.withCtx

	b.module.fns[name] = func(mod *wasm.ModuleInstance, args []wasm.Cell) (wasm.TypedValue, error) {
		in := make([]reflect.Value, 0, len(paramVTs)+1)
		if withCtx {
			in = append(in, reflect.ValueOf(context.Background()))
		}
		for i, vt := range paramVTs {
			in = append(in, cellToReflect(args[i], vt, paramTypes[i]))
		}
		out := fn.Call(in)
		if !hasRes {
			return wasm.TypedValue{}, nil
		}
		return reflectToTypedValue(out[0], resultVT, resultType), nil
	}
	return b.module
}

// cellToReflect decodes a cell according to vt, then converts it to the
// exact Go type the host function declared (int32 vs uint32 and so on
// share a ValueType but are distinct reflect kinds).
func cellToReflect(c wasm.Cell, vt wasm.ValueType, goType reflect.Type) reflect.Value {
	var raw reflect.Value
	switch vt {
	case wasm.ValueTypeI32:
		raw = reflect.ValueOf(uint32(c))
	case wasm.ValueTypeI64:
		raw = reflect.ValueOf(uint64(c))
	case wasm.ValueTypeF32:
		raw = reflect.ValueOf(f32FromCell(c))
	default: // ValueTypeF64
		raw = reflect.ValueOf(f64FromCell(c))
	}
	return raw.Convert(goType)
}

func reflectToTypedValue(v reflect.Value, vt wasm.ValueType, goType reflect.Type) wasm.TypedValue {
	switch vt {
	case wasm.ValueTypeI32:
		return wasm.TypedValue{Type: vt, Bits: uint64(v.Convert(reflect.TypeOf(uint32(0))).Interface().(uint32))}
	case wasm.ValueTypeI64:
		return wasm.TypedValue{Type: vt, Bits: v.Convert(reflect.TypeOf(uint64(0))).Interface().(uint64)}
	case wasm.ValueTypeF32:
		return wasm.TypedValue{Type: vt, Bits: uint64(cellFromF32(v.Convert(reflect.TypeOf(float32(0))).Interface().(float32)))}
	default: // ValueTypeF64
		return wasm.TypedValue{Type: vt, Bits: uint64(cellFromF64(v.Convert(reflect.TypeOf(float64(0))).Interface().(float64)))}
	}
}
