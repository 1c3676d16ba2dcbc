package core

import (
	"fmt"
	"strings"
)

// DefaultAssumptions returns a fresh base scenario. Callers own the returned value.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		Auction: AuctionCosts{
			BuyerPremiumPct:     0.10,
			SalesTaxPct:         0.0825,
			FlatFees:            50,
			TaxAppliesToPremium: true,
		},
		Acquisition: AcquisitionCosts{
			TransportCost:    150,
			StoragePerDay:    5,
			ExpectedHoldDays: 14,
			ContingencyPct:   0.10,
			ContingencyBasis: ContingencyBasisNonAuction,
		},
		Reconditioning: ReconditioningCosts{
			EstimatedRepairs: 0,
			Detailing:        75,
		},
		Disposition: DispositionCosts{
			ListingFees:    0,
			PaymentFeesPct: 0.03,
		},
		BidStrategy: BidStrategy{
			TargetROIPct: 0.20,
		},
	}
}

// Validate checks that monetary fields are non-negative, percentages are fractions
// and the target return is above -100%.
func (a Assumptions) Validate() error {
	checks := []error{
		requireFraction("buyer premium pct", a.Auction.BuyerPremiumPct),
		requireFraction("sales tax pct", a.Auction.SalesTaxPct),
		requireNonNegative("flat fees", a.Auction.FlatFees),
		requireNonNegative("transport cost", a.Acquisition.TransportCost),
		requireNonNegative("storage per day", a.Acquisition.StoragePerDay),
		requireNonNegative("expected hold days", float64(a.Acquisition.ExpectedHoldDays)),
		requireFraction("contingency pct", a.Acquisition.ContingencyPct),
		requireNonNegative("estimated repairs", a.Reconditioning.EstimatedRepairs),
		requireNonNegative("detailing", a.Reconditioning.Detailing),
		a.Disposition.validate(),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	switch a.Acquisition.ContingencyBasis {
	case "", ContingencyBasisNonAuction, ContingencyBasisTotal:
	default:
		return fmt.Errorf("%w: unknown contingency basis %q", ErrInvalidInput, a.Acquisition.ContingencyBasis)
	}

	return a.BidStrategy.validate()
}

func (d DispositionCosts) validate() error {
	if err := requireNonNegative("listing fees", d.ListingFees); err != nil {
		return err
	}
	return requireFraction("payment fees pct", d.PaymentFeesPct)
}

func (b BidStrategy) validate() error {
	if err := requireFinite("target ROI", b.TargetROIPct); err != nil {
		return err
	}
	if b.TargetROIPct <= -1 {
		return fmt.Errorf("%w: target ROI must be above -100%%, got %.4f", ErrInvalidInput, b.TargetROIPct)
	}
	if b.AbsoluteMaxBid != nil {
		if err := requireNonNegative("absolute max bid", *b.AbsoluteMaxBid); err != nil {
			return err
		}
	}
	if b.MinProfitDollars != nil {
		if err := requireNonNegative("min profit dollars", *b.MinProfitDollars); err != nil {
			return err
		}
	}
	return nil
}

// AssumptionsProfile is a named partial override. Nil fields keep the base value.
type AssumptionsProfile struct {
	Auction        *AuctionOverlay        `json:"auction,omitempty"`
	Acquisition    *AcquisitionOverlay    `json:"acquisition,omitempty"`
	Reconditioning *ReconditioningOverlay `json:"reconditioning,omitempty"`
	Disposition    *DispositionOverlay    `json:"disposition,omitempty"`
	BidStrategy    *BidStrategyOverlay    `json:"bid_strategy,omitempty"`
}

type AuctionOverlay struct {
	BuyerPremiumPct     *float64 `json:"buyer_premium_pct,omitempty"`
	SalesTaxPct         *float64 `json:"sales_tax_pct,omitempty"`
	FlatFees            *float64 `json:"flat_fees,omitempty"`
	TaxAppliesToPremium *bool    `json:"tax_applies_to_premium,omitempty"`
}

type AcquisitionOverlay struct {
	TransportCost    *float64          `json:"transport_cost,omitempty"`
	StoragePerDay    *float64          `json:"storage_per_day,omitempty"`
	ExpectedHoldDays *int              `json:"expected_hold_days,omitempty"`
	ContingencyPct   *float64          `json:"contingency_pct,omitempty"`
	ContingencyBasis *ContingencyBasis `json:"contingency_basis,omitempty"`
}

type ReconditioningOverlay struct {
	EstimatedRepairs *float64 `json:"estimated_repairs,omitempty"`
	Detailing        *float64 `json:"detailing,omitempty"`
}

type DispositionOverlay struct {
	ListingFees    *float64 `json:"listing_fees,omitempty"`
	PaymentFeesPct *float64 `json:"payment_fees_pct,omitempty"`
}

type BidStrategyOverlay struct {
	TargetROIPct     *float64 `json:"target_roi_pct,omitempty"`
	AbsoluteMaxBid   *float64 `json:"absolute_max_bid,omitempty"`
	MinProfitDollars *float64 `json:"min_profit_dollars,omitempty"`
}

// BuiltinProfiles returns the stock profiles keyed by lower-case name.
func BuiltinProfiles() map[string]AssumptionsProfile {
	return map[string]AssumptionsProfile{
		"premium": {
			Acquisition:    &AcquisitionOverlay{ContingencyPct: ptr(0.15)},
			Reconditioning: &ReconditioningOverlay{Detailing: ptr(250.0)},
			BidStrategy:    &BidStrategyOverlay{TargetROIPct: ptr(0.35)},
		},
		"velocity": {
			Acquisition: &AcquisitionOverlay{ExpectedHoldDays: ptr(7)},
			BidStrategy: &BidStrategyOverlay{TargetROIPct: ptr(0.15)},
		},
	}
}

// ApplyProfile overlays a built-in profile onto base. An unknown name returns base unchanged.
func ApplyProfile(base Assumptions, profileName string) Assumptions {
	return ApplyProfileFrom(base, BuiltinProfiles(), profileName)
}

// ApplyProfileFrom overlays profiles[profileName] onto base; names match case-insensitively.
// An unknown name returns base unchanged.
func ApplyProfileFrom(base Assumptions, profiles map[string]AssumptionsProfile, profileName string) Assumptions {
	key := strings.ToLower(strings.TrimSpace(profileName))
	if profile, ok := profiles[key]; ok {
		return MergeProfile(base, profile)
	}
	for name, profile := range profiles {
		if strings.ToLower(name) == key {
			return MergeProfile(base, profile)
		}
	}
	return base.clone()
}

// MergeProfile shallow-merges each sub-record of profile onto base independently.
func MergeProfile(base Assumptions, profile AssumptionsProfile) Assumptions {
	merged := base.clone()

	if o := profile.Auction; o != nil {
		setIf(&merged.Auction.BuyerPremiumPct, o.BuyerPremiumPct)
		setIf(&merged.Auction.SalesTaxPct, o.SalesTaxPct)
		setIf(&merged.Auction.FlatFees, o.FlatFees)
		setIf(&merged.Auction.TaxAppliesToPremium, o.TaxAppliesToPremium)
	}
	if o := profile.Acquisition; o != nil {
		setIf(&merged.Acquisition.TransportCost, o.TransportCost)
		setIf(&merged.Acquisition.StoragePerDay, o.StoragePerDay)
		setIf(&merged.Acquisition.ExpectedHoldDays, o.ExpectedHoldDays)
		setIf(&merged.Acquisition.ContingencyPct, o.ContingencyPct)
		setIf(&merged.Acquisition.ContingencyBasis, o.ContingencyBasis)
	}
	if o := profile.Reconditioning; o != nil {
		setIf(&merged.Reconditioning.EstimatedRepairs, o.EstimatedRepairs)
		setIf(&merged.Reconditioning.Detailing, o.Detailing)
	}
	if o := profile.Disposition; o != nil {
		setIf(&merged.Disposition.ListingFees, o.ListingFees)
		setIf(&merged.Disposition.PaymentFeesPct, o.PaymentFeesPct)
	}
	if o := profile.BidStrategy; o != nil {
		setIf(&merged.BidStrategy.TargetROIPct, o.TargetROIPct)
		if o.AbsoluteMaxBid != nil {
			merged.BidStrategy.AbsoluteMaxBid = clonePtr(o.AbsoluteMaxBid)
		}
		if o.MinProfitDollars != nil {
			merged.BidStrategy.MinProfitDollars = clonePtr(o.MinProfitDollars)
		}
	}
	return merged
}

// clone copies the pointer-valued fields so the result never aliases the receiver.
func (a Assumptions) clone() Assumptions {
	out := a
	out.BidStrategy.AbsoluteMaxBid = clonePtr(a.BidStrategy.AbsoluteMaxBid)
	out.BidStrategy.MinProfitDollars = clonePtr(a.BidStrategy.MinProfitDollars)
	return out
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func ptr[T any](v T) *T {
	return &v
}
