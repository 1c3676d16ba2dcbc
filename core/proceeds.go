package core

import (
	"github.com/shopspring/decimal"
)

// NetProceeds returns salePrice - listingFees - paymentProcessing, rounded to cents.
// A negative result is a legitimate loss and is not rejected.
func NetProceeds(input ProceedsInput) (float64, error) {
	if err := input.validate(); err != nil {
		return 0, err
	}
	return toFloat(netProceeds(input)), nil
}

func netProceeds(input ProceedsInput) decimal.Decimal {
	return roundCents(decimal.NewFromFloat(input.SalePrice).
		Sub(decimal.NewFromFloat(input.ListingFees)).
		Sub(decimal.NewFromFloat(input.PaymentProcessing)))
}

func (input ProceedsInput) validate() error {
	if err := requireNonNegative("sale price", input.SalePrice); err != nil {
		return err
	}
	if err := requireNonNegative("listing fees", input.ListingFees); err != nil {
		return err
	}
	return requireNonNegative("payment processing", input.PaymentProcessing)
}

// ListingFee returns salePrice * feePct, rounded to cents. feePct is a fraction.
func ListingFee(salePrice, feePct float64) (float64, error) {
	if err := requireNonNegative("sale price", salePrice); err != nil {
		return 0, err
	}
	if err := requireNonNegative("listing fee percent", feePct); err != nil {
		return 0, err
	}
	return toFloat(roundCents(decimal.NewFromFloat(salePrice).Mul(decimal.NewFromFloat(feePct)))), nil
}

// ProcessingFee returns salePrice * pct + fixedFee, rounded to cents. pct is a fraction.
func ProcessingFee(salePrice, pct, fixedFee float64) (float64, error) {
	if err := requireNonNegative("sale price", salePrice); err != nil {
		return 0, err
	}
	if err := requireNonNegative("processing percent", pct); err != nil {
		return 0, err
	}
	if err := requireNonNegative("fixed processing fee", fixedFee); err != nil {
		return 0, err
	}
	return toFloat(processingFee(decimal.NewFromFloat(salePrice), decimal.NewFromFloat(pct), decimal.NewFromFloat(fixedFee))), nil
}

func processingFee(salePrice, pct, fixedFee decimal.Decimal) decimal.Decimal {
	return roundCents(salePrice.Mul(pct).Add(fixedFee))
}

// DispositionProceeds returns the net cash from selling at salePrice under the disposition assumptions.
func DispositionProceeds(salePrice float64, disposition DispositionCosts) (float64, error) {
	if err := requireNonNegative("sale price", salePrice); err != nil {
		return 0, err
	}
	if err := disposition.validate(); err != nil {
		return 0, err
	}
	return toFloat(dispositionProceeds(decimal.NewFromFloat(salePrice), disposition)), nil
}

func dispositionProceeds(salePrice decimal.Decimal, disposition DispositionCosts) decimal.Decimal {
	payment := processingFee(salePrice, decimal.NewFromFloat(disposition.PaymentFeesPct), decimal.Zero)
	return roundCents(salePrice.Sub(decimal.NewFromFloat(disposition.ListingFees)).Sub(payment))
}
