package wami

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeModuleConfig_OverrideReplacesDefault(t *testing.T) {
	base := newModuleConfig()
	override := newModuleConfig()
	WithName("guest")(override)

	merged, err := mergeModuleConfig(base, override)
	require.NoError(t, err)
	require.Equal(t, "guest", merged.Name)
}

func TestMergeModuleConfig_ZeroOverrideKeepsBase(t *testing.T) {
	base := newModuleConfig()
	WithName("from-name-section")(base)
	override := newModuleConfig()

	merged, err := mergeModuleConfig(base, override)
	require.NoError(t, err)
	require.Equal(t, "from-name-section", merged.Name)
}

func TestRuntimeConfig_Defaults(t *testing.T) {
	cfg := NewRuntimeConfig()
	require.Equal(t, uint32(defaultMemoryMaxPages), cfg.memoryMaxPages)
	require.Nil(t, cfg.logger)
}

func TestRuntimeConfig_WithMemoryMaxPages(t *testing.T) {
	cfg := NewRuntimeConfig()
	WithMemoryMaxPages(10)(cfg)
	require.Equal(t, uint32(10), cfg.memoryMaxPages)
}
