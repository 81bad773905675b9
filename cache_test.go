package wami

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModuleCache_HitAndMiss(t *testing.T) {
	c := newModuleCache()
	bytes1 := []byte{0x00, 0x61, 0x73, 0x6d}
	bytes2 := []byte{0x00, 0x61, 0x73, 0x6e}

	_, ok := c.get(bytes1)
	require.False(t, ok)

	cm := &CompiledModule{name: "m"}
	c.put(bytes1, cm)

	got, ok := c.get(bytes1)
	require.True(t, ok)
	require.Same(t, cm, got)

	_, ok = c.get(bytes2)
	require.False(t, ok)
}
