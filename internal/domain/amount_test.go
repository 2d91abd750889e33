package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"0", 0},
		{"1", AmountScale},
		{"12.5", 12*AmountScale + AmountScale/2},
		{"0.00000001", 1},
		{"-0.00000001", -1},
		{"+3", 3 * AmountScale},
		{"  100  ", 100 * AmountScale},
		{"0.10000000", AmountScale / 10},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, "ParseAmount(%q)", tt.in)
		assert.Equal(t, tt.want, got, "ParseAmount(%q)", tt.in)
	}
}

func TestParseAmountRejects(t *testing.T) {
	bad := []string{
		"",
		".",
		"-",
		"abc",
		"1.2.3",
		"0.000000001", // ninth fractional digit
		"1e5",
		"99999999999999999999",
	}
	for _, in := range bad {
		_, err := ParseAmount(in)
		assert.Error(t, err, "ParseAmount(%q)", in)
	}
}

func TestAmountString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.50000000", "12.5"},
		{"3", "3"},
		{"-0.00000001", "-0.00000001"},
		{"0", "0"},
		{"0.075", "0.075"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustParseAmount(tt.in).String())
	}
}

func TestAmountMulFloat(t *testing.T) {
	a := MustParseAmount("100")
	// 50 bps slippage haircut.
	assert.Equal(t, MustParseAmount("99.5"), a.MulFloat(1-0.005))
	// 5% stop-loss bound.
	assert.Equal(t, MustParseAmount("95"), a.MulFloat(0.95))
	assert.Equal(t, Amount(0), Amount(0).MulFloat(2))
}

func TestAmountPctOf(t *testing.T) {
	assert.InDelta(t, 0.07, MustParseAmount("0.07").PctOf(MustParseAmount("100")), 1e-9)
	assert.InDelta(t, 50.0, MustParseAmount("1").PctOf(MustParseAmount("2")), 1e-9)
	// Zero base must not produce NaN.
	assert.Zero(t, MustParseAmount("1").PctOf(0))
}

func TestAmountJSONRoundTrip(t *testing.T) {
	a := MustParseAmount("-12.345")
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"-12.345"`, string(data))

	var back Amount
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestAmountFromFloatRounding(t *testing.T) {
	assert.Equal(t, Amount(1), AmountFromFloat(0.000000005))
	assert.Equal(t, Amount(-1), AmountFromFloat(-0.000000005))
	assert.Equal(t, MustParseAmount("2.5"), AmountFromFloat(2.5))
}
