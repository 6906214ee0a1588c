package diskxfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum32Empty(t *testing.T) {
	require.Equal(t, uint32(0), checksum32(nil))
	require.Equal(t, uint32(0), checksum32([]byte{}))
}

func TestChecksum32KnownVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"a", []byte("a"), 0xE8B7BE43},
		{"123456789", []byte("123456789"), 0xCBF43926},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, checksum32(tc.in))
		})
	}
}

func TestChecksum32Deterministic(t *testing.T) {
	buf := make([]byte, SectorSize)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.Equal(t, checksum32(buf), checksum32(buf))
}
