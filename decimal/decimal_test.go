package decimal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAndStringRoundTrip(t *testing.T) {
	testCases := []string{
		"0",
		"1",
		"-1",
		"100",
		"1.5",
		"-1.5",
		"0.001",
		"123456789.987654321",
		"1E+3",
		"1E-7",
	}
	for _, tc := range testCases {
		t.Run(tc, func(t *testing.T) {
			d, err := ParseDecimal128(tc)
			require.NoError(t, err)
			require.Equal(t, tc, d.String())
		})
	}
}

func TestParseSpecials(t *testing.T) {
	d, err := ParseDecimal128("NaN")
	require.NoError(t, err)
	require.True(t, d.IsNaN())
	require.Equal(t, "NaN", d.String())

	d, err = ParseDecimal128("Infinity")
	require.NoError(t, err)
	require.Equal(t, 1, d.IsInf())
	require.Equal(t, "Infinity", d.String())

	d, err = ParseDecimal128("-Infinity")
	require.NoError(t, err)
	require.Equal(t, -1, d.IsInf())
	require.Equal(t, "-Infinity", d.String())
}

func TestParseErrors(t *testing.T) {
	testCases := []string{
		"",
		"abc",
		"1.2.3",
		"1E",
		"--5",
	}
	for _, tc := range testCases {
		t.Run(tc, func(t *testing.T) {
			_, err := ParseDecimal128(tc)
			require.Error(t, err)
		})
	}
}

func TestParseExponentLimits(t *testing.T) {
	// Clamping multiplies the significand by ten per step; it runs out of
	// significand bits long before reaching this exponent.
	_, err := ParseDecimal128("1E+6200")
	require.Error(t, err)

	// A subnormal that cannot be represented without losing digits.
	_, err = ParseDecimal128("1.5E-6200")
	require.Error(t, err)

	// A small positive overflow clamps instead of failing.
	d, err := ParseDecimal128("1E+6112")
	require.NoError(t, err)
	require.Equal(t, "1.0E+6112", d.String())
}

func TestGetBytes(t *testing.T) {
	d := NewDecimal128(0x3040000000000000, 0x000000000000002A)
	h, l := d.GetBytes()
	require.Equal(t, uint64(0x3040000000000000), h)
	require.Equal(t, uint64(0x000000000000002A), l)
	require.Equal(t, "42", d.String())
}

func TestIsNaNFalseForNumbers(t *testing.T) {
	d, err := ParseDecimal128("12.5")
	require.NoError(t, err)
	require.False(t, d.IsNaN())
	require.Equal(t, 0, d.IsInf())
}
