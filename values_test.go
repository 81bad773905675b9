package wami

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeF32RoundTrip(t *testing.T) {
	require.Equal(t, float32(3.5), DecodeF32(EncodeF32(3.5)))
}

func TestEncodeDecodeF64RoundTrip(t *testing.T) {
	require.Equal(t, 2.718281828, DecodeF64(EncodeF64(2.718281828)))
}
