package drm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUintIsDecimal(t *testing.T) {
	cases := map[string]uint64{
		"10":   10,
		"010":  10,
		"0":    0,
		"0x1f": 31,
		"0X10": 16,
	}
	for in, want := range cases {
		got, err := ParseUint(in, 32)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "0x", "-1", "+1", "08a", "0b1", "4294967296"} {
		_, err := ParseUint(in, 32)
		assert.Error(t, err, in)
	}
}

func TestParseIntIsDecimal(t *testing.T) {
	v, err := ParseInt("-010", 32)
	require.NoError(t, err)
	assert.EqualValues(t, -10, v)

	v, err = ParseInt("-0x10", 32)
	require.NoError(t, err)
	assert.EqualValues(t, -16, v)

	v, err = ParseInt("+7", 32)
	require.NoError(t, err)
	assert.EqualValues(t, 7, v)
}
