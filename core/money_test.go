package core

import (
	"math"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		floor  int64
		ceil   int64
	}{
		{"whole", decimal.NewFromFloat(12.34), 1234, 1234},
		{"fraction of a cent", decimal.RequireFromString("12.345"), 1234, 1235},
		{"negative", decimal.RequireFromString("-0.015"), -2, -1},
		{"largest exact", decimal.NewFromInt(maxCents).Shift(-2), maxCents, maxCents},
		{"above int64 cents", decimal.NewFromFloat(1e17), maxCents, maxCents},
		{"far above int64 cents", decimal.NewFromFloat(math.MaxFloat64), maxCents, maxCents},
		{"far below int64 cents", decimal.NewFromFloat(-1e300), -maxCents, -maxCents},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.floor, toCents(tt.amount))
			check.Equal(t, tt.ceil, toCentsCeil(tt.amount))
		})
	}
}

func TestRequireFinite(t *testing.T) {
	check.Nil(t, requireFinite("x", 0))
	check.Nil(t, requireFinite("x", -math.MaxFloat64))
	check.Error(t, requireFinite("x", math.NaN()))
	check.Error(t, requireFinite("x", math.Inf(1)))
	check.Error(t, requireFinite("x", math.Inf(-1)))

	check.Error(t, requireNonNegative("x", math.Inf(1)))
	check.Error(t, requireNonNegative("x", math.NaN()))
	check.Error(t, requireFraction("x", math.NaN()))
	check.Nil(t, requireFraction("x", 1))
}
