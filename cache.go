package wami

import (
	"crypto/sha256"

	"github.com/dolthub/swiss"
)

// moduleCache memoizes CompileModule by content hash, the in-memory half
// of what the teacher's Cache type provides (a persistent on-disk cache
// is out of scope here) — backed by a swiss.Map rather than a built-in
// map, the same table implementation wasm.Module's export index uses.
type moduleCache struct {
	byHash *swiss.Map[[32]byte, *CompiledModule]
}

func newModuleCache() *moduleCache {
	return &moduleCache{byHash: swiss.NewMap[[32]byte, *CompiledModule](8)}
}

func (c *moduleCache) get(wasmBytes []byte) (*CompiledModule, bool) {
	return c.byHash.Get(sha256.Sum256(wasmBytes))
}

func (c *moduleCache) put(wasmBytes []byte, cm *CompiledModule) {
	c.byHash.Put(sha256.Sum256(wasmBytes), cm)
}
