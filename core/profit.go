package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Profit returns netProceeds - acquisitionCost, rounded to cents. May be negative.
// Non-finite inputs fall back to float arithmetic.
func Profit(netProceeds, acquisitionCost float64) float64 {
	if requireFinite("net proceeds", netProceeds) != nil || requireFinite("acquisition cost", acquisitionCost) != nil {
		return netProceeds - acquisitionCost
	}
	return toFloat(roundCents(decimal.NewFromFloat(netProceeds).Sub(decimal.NewFromFloat(acquisitionCost))))
}

// MarginPercent returns profit / acquisitionCost * 100, rounded to two decimals.
// The denominator is the invested capital (acquisition cost), never the sale price.
func MarginPercent(profit, acquisitionCost float64) (float64, error) {
	if err := requireFinite("profit", profit); err != nil {
		return 0, err
	}
	if err := requireFinite("acquisition cost", acquisitionCost); err != nil {
		return 0, err
	}
	margin, err := marginPercent(decimal.NewFromFloat(profit), decimal.NewFromFloat(acquisitionCost))
	if err != nil {
		return 0, err
	}
	return toFloat(margin), nil
}

func marginPercent(profit, acquisitionCost decimal.Decimal) (decimal.Decimal, error) {
	if !acquisitionCost.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: acquisition cost must be positive, got %s",
			ErrInvalidInput, acquisitionCost.StringFixed(monetaryPrecision))
	}
	return roundHalfUp(profit.Div(acquisitionCost).Mul(decimalHundred), marginPrecision), nil
}

// AnalyzeDeal composes AcquisitionCost, NetProceeds, Profit and MarginPercent.
func AnalyzeDeal(acquisition AcquisitionInput, proceeds ProceedsInput) (*DealAnalysis, error) {
	if err := acquisition.validate(); err != nil {
		return nil, err
	}
	if err := proceeds.validate(); err != nil {
		return nil, err
	}

	cost := acquisitionCost(acquisition)
	net := netProceeds(proceeds)
	profit := roundCents(net.Sub(cost))
	margin, err := marginPercent(profit, cost)
	if err != nil {
		return nil, err
	}

	return &DealAnalysis{
		AcquisitionCost: toFloat(cost),
		NetProceeds:     toFloat(net),
		Profit:          toFloat(profit),
		MarginPercent:   toFloat(margin),
	}, nil
}

// EvaluateBid runs the full forward pass of a scenario at one bid: all-in cost,
// net proceeds from the expected sale, profit and return.
func EvaluateBid(schedule FeeSchedule, assumptions Assumptions, bid, expectedSalePrice float64) (*BidEvaluation, error) {
	if err := requireNonNegative("bid", bid); err != nil {
		return nil, err
	}
	if err := requireNonNegative("expected sale price", expectedSalePrice); err != nil {
		return nil, err
	}
	if err := assumptions.Validate(); err != nil {
		return nil, err
	}

	parts, err := allInCost(decimal.NewFromFloat(bid), schedule, assumptions)
	if err != nil {
		return nil, err
	}
	net := dispositionProceeds(decimal.NewFromFloat(expectedSalePrice), assumptions.Disposition)
	profit := roundCents(net.Sub(parts.allIn))

	evaluation := &BidEvaluation{
		Cost:        parts.breakdown(),
		NetProceeds: toFloat(net),
		Profit:      toFloat(profit),
	}
	if parts.allIn.IsPositive() {
		evaluation.ROIPct = toFloat(roiFraction(profit, parts.allIn))
		margin, err := marginPercent(profit, parts.allIn)
		if err != nil {
			return nil, err
		}
		evaluation.MarginPercent = toFloat(margin)
	}
	return evaluation, nil
}

// roiFraction is profit / cost as a fraction rounded to basis points. cost must be positive.
func roiFraction(profit, cost decimal.Decimal) decimal.Decimal {
	return roundHalfUp(profit.Div(cost), roiPrecision)
}
