// Package wami is the embedding API for the runtime: compile a Wasm
// binary once with Runtime.CompileModule, instantiate it as many times
// as needed with Runtime.Instantiate, and call its exports through the
// returned Instance.
package wami

import (
	"context"
	"fmt"

	"github.com/wami-rt/wami/internal/interpreter"
	"github.com/wami-rt/wami/internal/trap"
	"github.com/wami-rt/wami/internal/wasm"
	"github.com/wami-rt/wami/internal/wasm/binary"
	"github.com/wami-rt/wami/internal/wasmmem"
	"github.com/wami-rt/wami/internal/wlog"
	"go.uber.org/zap"
)

// Runtime owns the host-function registry every CompileModule call
// resolves guest imports against, plus the compiled-module cache and the
// logger every Instance inherits.
type Runtime struct {
	cfg   *RuntimeConfig
	log   *zap.Logger
	hosts *hostRegistry
	cache *moduleCache
}

// NewRuntime constructs a Runtime. Register host modules with
// NewHostModuleBuilder before compiling any guest module that imports
// from them — imports resolve at compile time, not at instantiation.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) *Runtime {
	cfg := NewRuntimeConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger
	if log == nil {
		log = wlog.NewProduction()
	}
	return &Runtime{cfg: cfg, log: log, hosts: newHostRegistry(), cache: newModuleCache()}
}

// CompiledModule is a decoded, function-compiled module ready to
// instantiate; decoding and per-function verification happen once here,
// not once per Instantiate call.
type CompiledModule struct {
	module *wasm.Module
	name   string
}

// Name returns the module's declared name-section name, or "" if absent.
func (c *CompiledModule) Name() string { return c.name }

// CompileModule decodes wasmBytes and compiles every function body,
// resolving imports against the host functions registered on r so far.
// Compiling the same bytes twice returns the cached result rather than
// re-verifying.
func (r *Runtime) CompileModule(ctx context.Context, wasmBytes []byte) (*CompiledModule, error) {
	if cached, ok := r.cache.get(wasmBytes); ok {
		return cached, nil
	}
	m, err := binary.DecodeModule(wasmBytes, r.hosts)
	if err != nil {
		return nil, fmt.Errorf("wami: compile module: %w", err)
	}
	name := ""
	if m.NameSection != nil {
		name = m.NameSection.ModuleName
	}
	cm := &CompiledModule{module: m, name: name}
	r.cache.put(wasmBytes, cm)
	return cm, nil
}

// Instantiate allocates a fresh linear memory and table, initializes
// globals and element/data segments, runs the start function if one is
// declared, and returns the live Instance.
func (r *Runtime) Instantiate(ctx context.Context, cm *CompiledModule, opts ...ModuleOption) (*Instance, error) {
	override := newModuleConfig()
	for _, opt := range opts {
		opt(override)
	}
	modCfg, err := mergeModuleConfig(newModuleConfig(), override)
	if err != nil {
		return nil, fmt.Errorf("wami: merging module config: %w", err)
	}

	m := cm.module
	name := modCfg.Name
	if name == "" {
		name = cm.name
	}
	inst := &wasm.ModuleInstance{Module: m, Name: name}

	if m.HasMemory() {
		maxPages := int64(-1)
		if m.MemoryLimits.HasMax() {
			maxPages = m.MemoryLimits.Max
		}
		if r.cfg.memoryMaxPages > 0 && (maxPages < 0 || uint32(maxPages) > r.cfg.memoryMaxPages) {
			maxPages = int64(r.cfg.memoryMaxPages)
		}
		mem, err := wasmmem.NewMemory(m.MemoryLimits.Min, maxPages)
		if err != nil {
			return nil, fmt.Errorf("wami: allocating memory: %w", err)
		}
		inst.Memory = mem
	}
	if m.HasTable() {
		inst.Table = wasm.NewTable(*m.TableLimits)
	}

	inst.Globals = make([]wasm.Cell, m.NumGlobals())
	for i, g := range m.GlobalSection {
		inst.Globals[i] = g.Init.Cell()
	}

	for _, seg := range m.ElementSection {
		if inst.Table == nil {
			return nil, fmt.Errorf("wami: element segment present but module declares no table")
		}
		for j, fnIdx := range seg.FuncIndex {
			idx := int(seg.Offset) + j
			if idx < 0 || idx >= len(inst.Table.Entries) {
				return nil, fmt.Errorf("wami: element segment at offset %d overruns table", seg.Offset)
			}
			inst.Table.Entries[idx] = int32(fnIdx)
		}
	}

	for _, seg := range m.DataSection {
		if inst.Memory == nil {
			return nil, fmt.Errorf("wami: data segment present but module declares no memory")
		}
		if !inst.Memory.InitData(uint32(seg.Offset), seg.Init) {
			return nil, fmt.Errorf("wami: data segment at offset %d overruns memory", seg.Offset)
		}
	}

	engine := interpreter.NewEngine(inst)
	instance := &Instance{inst: inst, engine: engine, log: r.log}

	if m.StartIndex != nil {
		if _, err := engine.Call(ctx, *m.StartIndex, nil); err != nil {
			if code, ok := trap.IsGracefulExit(err); ok {
				r.log.Info("start function exited", zap.Int("code", code), zap.String("module", name))
			} else {
				return nil, fmt.Errorf("wami: start function: %w", err)
			}
		}
	}

	return instance, nil
}
