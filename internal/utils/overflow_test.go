package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	require.NoError(t, CheckMultiplyOverflow(0, math.MaxUint64))
	require.NoError(t, CheckMultiplyOverflow(100, 100))
	require.Error(t, CheckMultiplyOverflow(math.MaxUint64, 2))
}

func TestSafeMultiply(t *testing.T) {
	v, err := SafeMultiply(4, 128)
	require.NoError(t, err)
	require.Equal(t, uint64(512), v)

	_, err = SafeMultiply(math.MaxUint64, 2)
	require.Error(t, err)
}

func TestValidateBufferSize(t *testing.T) {
	require.NoError(t, ValidateBufferSize(512, 4096, "block"))
	require.Error(t, ValidateBufferSize(0, 4096, "block"))
	require.Error(t, ValidateBufferSize(8192, 4096, "block"))
}
