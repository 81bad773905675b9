package wami

import (
	"dario.cat/mergo"
	"go.uber.org/zap"
)

// defaultMemoryMaxPages is the Wasm 1.0 linear-memory ceiling: 65536
// pages of 64 KiB each, 4 GiB total.
const defaultMemoryMaxPages = 65536

// RuntimeConfig controls behavior shared by every module a Runtime
// compiles and instantiates.
type RuntimeConfig struct {
	memoryMaxPages uint32
	logger         *zap.Logger
}

// NewRuntimeConfig returns the library defaults: the full Wasm 1.0
// memory ceiling and no logger (Runtime falls back to wlog.NewProduction).
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{memoryMaxPages: defaultMemoryMaxPages}
}

// RuntimeOption configures a RuntimeConfig; pass zero or more to NewRuntime.
type RuntimeOption func(*RuntimeConfig)

// WithMemoryMaxPages caps every instantiated module's linear memory at
// pages, overriding a module's own declared (or absent) maximum whenever
// it would exceed this ceiling.
func WithMemoryMaxPages(pages uint32) RuntimeOption {
	return func(c *RuntimeConfig) { c.memoryMaxPages = pages }
}

// WithLogger sets the zap.Logger the Runtime, and every Instance it
// creates, holds; the Runtime logs a start function's graceful exit
// through it. Traps are returned to the caller as errors, not logged.
func WithLogger(l *zap.Logger) RuntimeOption {
	return func(c *RuntimeConfig) { c.logger = l }
}

// ModuleConfig controls one Instantiate call.
type ModuleConfig struct {
	// Name overrides the instance name used in diagnostics; defaults to
	// the module's declared name-section name, if any.
	Name string
}

func newModuleConfig() *ModuleConfig { return &ModuleConfig{} }

// ModuleOption configures a ModuleConfig; pass zero or more to Instantiate.
type ModuleOption func(*ModuleConfig)

// WithName sets the instance name.
func WithName(name string) ModuleOption {
	return func(c *ModuleConfig) { c.Name = name }
}

// mergeModuleConfig overlays override's non-zero fields onto base,
// the way moby/moby uses mergo to merge partial container configs onto
// defaults; mergo.WithOverride lets
// a set override field replace base's (otherwise-zero) default without
// a hand-rolled field-by-field copy.
func mergeModuleConfig(base, override *ModuleConfig) (*ModuleConfig, error) {
	merged := *base
	if err := mergo.Merge(&merged, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return &merged, nil
}
