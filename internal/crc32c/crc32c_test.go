package crc32c

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumIsDeterministicAndSensitiveToInput(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("hello"))
	c := Sum([]byte("hellp"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestExtendPacksComplementIntoHighBits(t *testing.T) {
	crc := Sum([]byte("key"))
	ext := Extend(crc)
	require.Equal(t, crc, uint32(ext))
	require.Equal(t, ^crc, uint32(ext>>32))
}

func TestSumOfEmptyIsStable(t *testing.T) {
	require.Equal(t, Sum(nil), Sum([]byte{}))
}
