package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	monetaryPrecision int32 = 2 // cents
	marginPrecision   int32 = 2
	roiPrecision      int32 = 4 // fractional ROI, 0.0001 = one basis point

	// maxCents bounds every whole-cent bid. Larger amounts saturate, and doubling
	// a bound never overflows int64.
	maxCents int64 = math.MaxInt64 / 4
)

var (
	decimalHundred  = decimal.NewFromInt(100)
	decimalOne      = decimal.NewFromInt(1)
	halfUnit        = decimal.New(5, -1)
	decimalMaxCents = decimal.NewFromInt(maxCents)
	decimalMinCents = decimal.NewFromInt(-maxCents)
)

// roundHalfUp rounds to places decimals, ties toward positive infinity.
func roundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(halfUnit).Floor().Shift(-places)
}

func roundCents(d decimal.Decimal) decimal.Decimal {
	return roundHalfUp(d, monetaryPrecision)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// toCents converts a money amount to whole cents, rounding down.
func toCents(d decimal.Decimal) int64 {
	return saturateCents(d.Shift(monetaryPrecision).Floor())
}

// toCentsCeil converts a money amount to whole cents, rounding up.
func toCentsCeil(d decimal.Decimal) int64 {
	return saturateCents(d.Shift(monetaryPrecision).Ceil())
}

func saturateCents(cents decimal.Decimal) int64 {
	switch {
	case cents.GreaterThan(decimalMaxCents):
		return maxCents
	case cents.LessThan(decimalMinCents):
		return -maxCents
	default:
		return cents.IntPart()
	}
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -monetaryPrecision)
}

// requireFinite rejects NaN and infinities, which decimal cannot represent.
func requireFinite(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidInput, name, value)
	}
	return nil
}

func requireNonNegative(name string, value float64) error {
	if err := requireFinite(name, value); err != nil {
		return err
	}
	if value < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %.2f", ErrInvalidInput, name, value)
	}
	return nil
}

func requireFraction(name string, value float64) error {
	if err := requireFinite(name, value); err != nil {
		return err
	}
	if value < 0 || value > 1 {
		return fmt.Errorf("%w: %s must be a fraction in [0,1], got %.4f", ErrInvalidInput, name, value)
	}
	return nil
}
