package wasm

import "fmt"

// ImportResultKind tags what a Resolver decided for one function import.
type ImportResultKind int

const (
	ResolvedOK ImportResultKind = iota
	ResolvedNoModule
	ResolvedNoMethod
	// ResolvedDefer asks the decoder to retry later; the current core
	// treats this the same as an error (spec.md section 4.1).
	ResolvedDefer
)

// ImportResult is what a Resolver.ResolveFunc returns for one import.
type ImportResult struct {
	Kind Kind
	Fn   HostFunction
}

// Kind re-exports ImportResultKind under the name the spec's resolver
// contract uses ("one of Ok, NoModule, NoMethod, Defer").
type Kind = ImportResultKind

// Resolver is the callback shape the decoder consults for every function
// import: (module_name, import_name, signature) -> one of a bound host
// callback, "no such module", "no such method", or "defer".
type Resolver interface {
	ResolveFunc(moduleName, importName string, sig *FunctionType) ImportResult
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(moduleName, importName string, sig *FunctionType) ImportResult

func (f ResolverFunc) ResolveFunc(moduleName, importName string, sig *FunctionType) ImportResult {
	return f(moduleName, importName, sig)
}

// ImportError is returned by the decoder when a Resolver declines an
// import outright (NoModule, NoMethod) or defers it (currently treated
// as an error per spec.md section 4.1).
type ImportError struct {
	Kind       ImportResultKind
	ModuleName string
	ImportName string
}

func (e *ImportError) Error() string {
	switch e.Kind {
	case ResolvedNoModule:
		return fmt.Sprintf("wasm: no such module %q", e.ModuleName)
	case ResolvedNoMethod:
		return fmt.Sprintf("wasm: no such method %q in module %q", e.ImportName, e.ModuleName)
	case ResolvedDefer:
		return fmt.Sprintf("wasm: deferred import %q.%q is not supported", e.ModuleName, e.ImportName)
	default:
		return "wasm: import error"
	}
}
