package core

import (
	"github.com/shopspring/decimal"
)

// AcquisitionCost returns bid + buyerPremium + transport + immediateRepairs, rounded to cents.
// This is the denominator of every margin calculation; sale price never substitutes for it.
func AcquisitionCost(input AcquisitionInput) (float64, error) {
	if err := input.validate(); err != nil {
		return 0, err
	}
	return toFloat(acquisitionCost(input)), nil
}

func acquisitionCost(input AcquisitionInput) decimal.Decimal {
	return roundCents(decimal.NewFromFloat(input.Bid).
		Add(decimal.NewFromFloat(input.BuyerPremium)).
		Add(decimal.NewFromFloat(input.Transport)).
		Add(decimal.NewFromFloat(input.ImmediateRepairs)))
}

func (input AcquisitionInput) validate() error {
	if err := requireNonNegative("bid", input.Bid); err != nil {
		return err
	}
	if err := requireNonNegative("buyer premium", input.BuyerPremium); err != nil {
		return err
	}
	if err := requireNonNegative("transport", input.Transport); err != nil {
		return err
	}
	return requireNonNegative("immediate repairs", input.ImmediateRepairs)
}

// AllInCost returns the itemized total cash outlay of winning a lot at bid:
// premium from the schedule, sales tax, flat auction fees, non-auction costs and contingency.
func AllInCost(bid float64, schedule FeeSchedule, assumptions Assumptions) (*CostBreakdown, error) {
	if err := requireNonNegative("bid", bid); err != nil {
		return nil, err
	}
	if err := assumptions.Validate(); err != nil {
		return nil, err
	}

	parts, err := allInCost(decimal.NewFromFloat(bid), schedule, assumptions)
	if err != nil {
		return nil, err
	}
	breakdown := parts.breakdown()
	return &breakdown, nil
}

type costParts struct {
	bid         decimal.Decimal
	premium     decimal.Decimal
	tax         decimal.Decimal
	flatFees    decimal.Decimal
	nonAuction  decimal.Decimal
	contingency decimal.Decimal
	allIn       decimal.Decimal
}

func allInCost(bid decimal.Decimal, schedule FeeSchedule, a Assumptions) (costParts, error) {
	premium, err := resolvePremium(bid, schedule)
	if err != nil {
		return costParts{}, err
	}

	taxableBase := bid
	if a.Auction.TaxAppliesToPremium {
		taxableBase = bid.Add(premium)
	}
	tax := roundCents(taxableBase.Mul(decimal.NewFromFloat(a.Auction.SalesTaxPct)))
	flatFees := decimal.NewFromFloat(a.Auction.FlatFees)
	nonAuction := nonAuctionCosts(a)

	contingencyBase := nonAuction
	if a.Acquisition.ContingencyBasis == ContingencyBasisTotal {
		contingencyBase = bid.Add(premium).Add(tax).Add(flatFees).Add(nonAuction)
	}
	contingency := roundCents(contingencyBase.Mul(decimal.NewFromFloat(a.Acquisition.ContingencyPct)))

	return costParts{
		bid:         bid,
		premium:     premium,
		tax:         tax,
		flatFees:    flatFees,
		nonAuction:  nonAuction,
		contingency: contingency,
		allIn:       roundCents(bid.Add(premium).Add(tax).Add(flatFees).Add(nonAuction).Add(contingency)),
	}, nil
}

// nonAuctionCosts is transport + storage for the hold period + repairs + detailing.
func nonAuctionCosts(a Assumptions) decimal.Decimal {
	storage := decimal.NewFromFloat(a.Acquisition.StoragePerDay).Mul(decimal.NewFromInt(int64(a.Acquisition.ExpectedHoldDays)))
	return roundCents(decimal.NewFromFloat(a.Acquisition.TransportCost).
		Add(storage).
		Add(decimal.NewFromFloat(a.Reconditioning.EstimatedRepairs)).
		Add(decimal.NewFromFloat(a.Reconditioning.Detailing)))
}

func (p costParts) breakdown() CostBreakdown {
	return CostBreakdown{
		Bid:             toFloat(p.bid),
		BuyerPremium:    toFloat(p.premium),
		SalesTax:        toFloat(p.tax),
		FlatFees:        toFloat(p.flatFees),
		NonAuctionCosts: toFloat(p.nonAuction),
		Contingency:     toFloat(p.contingency),
		AllIn:           toFloat(p.allIn),
	}
}
