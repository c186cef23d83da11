package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want uint64
	}{
		{"integer", "10", 10_000_000_000},
		{"fraction", "0.5", 500_000_000},
		{"one base unit", "0.000000001", 1},
		{"zero", "0", 0},
		{"whitespace", " 1.5 ", 1_500_000_000},
		{"truncates sub-unit fraction", "0.0000000019", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.in, BaseUnitScale)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToBaseUnits_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"letters", "abc"},
		{"trailing garbage", "1.5x"},
		{"negative", "-1"},
		{"nan", "NaN"},
		{"inf", "Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToBaseUnits(tt.in, BaseUnitScale)
			assert.ErrorIs(t, err, ErrMalformedAmount)
		})
	}
}

func TestToBaseUnits_ZeroScale(t *testing.T) {
	_, err := ToBaseUnits("1", 0)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestToBaseUnits_TooLarge(t *testing.T) {
	_, err := ToBaseUnits("99999999999999999999", BaseUnitScale)
	assert.ErrorIs(t, err, ErrAmountTooLarge)
}

func TestFromBaseUnits(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want string
	}{
		{"whole", 10_000_000_000, "10"},
		{"fraction", 1_500_000_000, "1.5"},
		{"single base unit", 1, "0.000000001"},
		{"zero", 0, "0"},
		{"trims trailing zeros", 2_100_000_000, "2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromBaseUnits(tt.in, BaseUnitScale))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 999_999_999, 1_000_000_000, 2_500_000_000} {
		s := FromBaseUnits(v, BaseUnitScale)
		back, err := ToBaseUnits(s, BaseUnitScale)
		require.NoError(t, err)
		assert.Equal(t, v, back, "value %d formatted as %q", v, s)
	}
}
