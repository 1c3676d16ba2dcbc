package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// tierSeamTolerance is the widest gap between consecutive tiers that is read as a
	// whole-unit authoring seam (0-2500 followed by 2501-...) instead of missing coverage.
	tierSeamTolerance = 1.0

	// OpenRangeMaxBid is the upper bound used for schedules without a natural ceiling.
	OpenRangeMaxBid = 1_000_000_000.0
)

// ResolveBuyerPremium returns the buyer premium owed on bid under schedule, rounded to cents.
//
// The first tier (in declared order) whose inclusive [MinBid, MaxBid] range contains the bid
// wins. Percent amounts above 1 are whole-number percents, anything else is already a fraction.
// A tier cap clamps the fee before rounding.
func ResolveBuyerPremium(bid float64, schedule FeeSchedule) (float64, error) {
	if err := requireNonNegative("bid", bid); err != nil {
		return 0, err
	}

	fee, err := resolvePremium(decimal.NewFromFloat(bid), schedule)
	if err != nil {
		return 0, err
	}
	return toFloat(fee), nil
}

func resolvePremium(bid decimal.Decimal, schedule FeeSchedule) (decimal.Decimal, error) {
	for i, tier := range schedule.Tiers {
		if err := tier.requireFinite(); err != nil {
			return decimal.Zero, fmt.Errorf("schedule %q tier %d: %w", schedule.Source, i, err)
		}
	}
	tier, ok := schedule.tierFor(bid)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: bid %s in schedule %q", ErrNoTierMatch, bid.StringFixed(monetaryPrecision), schedule.Source)
	}
	return tier.fee(bid)
}

func (fs FeeSchedule) tierFor(bid decimal.Decimal) (FeeScheduleTier, bool) {
	for _, tier := range fs.Tiers {
		if tier.covers(bid) {
			return tier, true
		}
	}
	return FeeScheduleTier{}, false
}

func (t FeeScheduleTier) requireFinite() error {
	checks := []error{
		requireFinite("min bid", t.MinBid),
		requireFinite("max bid", t.MaxBid),
		requireFinite("amount", t.Amount),
	}
	if t.Cap != nil {
		checks = append(checks, requireFinite("cap", *t.Cap))
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

func (t FeeScheduleTier) covers(bid decimal.Decimal) bool {
	return bid.GreaterThanOrEqual(decimal.NewFromFloat(t.MinBid)) &&
		bid.LessThanOrEqual(decimal.NewFromFloat(t.MaxBid))
}

func (t FeeScheduleTier) fee(bid decimal.Decimal) (decimal.Decimal, error) {
	var fee decimal.Decimal
	switch t.FeeType {
	case FeeTypeFlat:
		fee = decimal.NewFromFloat(t.Amount)
	case FeeTypePercent:
		fee = bid.Mul(normalizePercent(t.Amount))
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown fee type %q", ErrInvalidInput, t.FeeType)
	}

	if t.Cap != nil {
		capAmount := decimal.NewFromFloat(*t.Cap)
		if fee.GreaterThan(capAmount) {
			fee = capAmount
		}
	}
	return roundCents(fee), nil
}

// normalizePercent maps a tier amount of 3 and of 0.03 to the same 3% rate.
func normalizePercent(amount float64) decimal.Decimal {
	rate := decimal.NewFromFloat(amount)
	if rate.GreaterThan(decimalOne) {
		return rate.Div(decimalHundred)
	}
	return rate
}

// ValidateFeeSchedule checks that tiers are well formed, ascending and non-overlapping.
// Gaps wider than a whole-unit seam are coverage defects and report ErrNoTierMatch.
func ValidateFeeSchedule(schedule FeeSchedule) error {
	if len(schedule.Tiers) == 0 {
		return fmt.Errorf("%w: schedule %q has no tiers", ErrInvalidInput, schedule.Source)
	}

	seam := decimal.NewFromFloat(tierSeamTolerance)
	for i, tier := range schedule.Tiers {
		if err := tier.requireFinite(); err != nil {
			return fmt.Errorf("schedule %q tier %d: %w", schedule.Source, i, err)
		}
		if tier.MinBid < 0 || tier.MaxBid < tier.MinBid {
			return fmt.Errorf("%w: schedule %q tier %d has invalid range [%.2f, %.2f]",
				ErrInvalidInput, schedule.Source, i, tier.MinBid, tier.MaxBid)
		}
		if tier.FeeType != FeeTypeFlat && tier.FeeType != FeeTypePercent {
			return fmt.Errorf("%w: schedule %q tier %d has unknown fee type %q",
				ErrInvalidInput, schedule.Source, i, tier.FeeType)
		}
		if tier.Amount < 0 {
			return fmt.Errorf("%w: schedule %q tier %d has negative amount", ErrInvalidInput, schedule.Source, i)
		}
		if tier.Cap != nil && *tier.Cap < 0 {
			return fmt.Errorf("%w: schedule %q tier %d has negative cap", ErrInvalidInput, schedule.Source, i)
		}
		if i == 0 {
			continue
		}

		prev := schedule.Tiers[i-1]
		if tier.MinBid <= prev.MaxBid {
			return fmt.Errorf("%w: schedule %q tier %d overlaps or precedes tier %d",
				ErrInvalidInput, schedule.Source, i, i-1)
		}
		gap := decimal.NewFromFloat(tier.MinBid).Sub(decimal.NewFromFloat(prev.MaxBid))
		if gap.GreaterThan(seam) {
			return fmt.Errorf("%w: schedule %q has no coverage between %.2f and %.2f",
				ErrNoTierMatch, schedule.Source, prev.MaxBid, tier.MinBid)
		}
	}
	return nil
}

// PercentFeeSchedule builds a single open-range percent schedule, for callers that only
// know a flat buyer premium rate.
func PercentFeeSchedule(source string, pct float64) FeeSchedule {
	return FeeSchedule{
		Source: source,
		Tiers: []FeeScheduleTier{
			{MinBid: 0, MaxBid: OpenRangeMaxBid, FeeType: FeeTypePercent, Amount: pct},
		},
	}
}

// coverageCents returns the biddable range of a validated schedule in whole cents.
func (fs FeeSchedule) coverageCents() (low, high int64) {
	first := fs.Tiers[0]
	last := fs.Tiers[len(fs.Tiers)-1]
	return toCentsCeil(decimal.NewFromFloat(first.MinBid)), toCents(decimal.NewFromFloat(last.MaxBid))
}

// seamAround reports the tiers bordering a bid that falls between two consecutive tiers.
// prevMax is the last biddable amount below the seam, nextMin the first one above it.
func (fs FeeSchedule) seamAround(bid decimal.Decimal) (prevMax, nextMin decimal.Decimal, ok bool) {
	for i := 1; i < len(fs.Tiers); i++ {
		lower := decimal.NewFromFloat(fs.Tiers[i-1].MaxBid)
		upper := decimal.NewFromFloat(fs.Tiers[i].MinBid)
		if bid.GreaterThan(lower) && bid.LessThan(upper) {
			return lower, upper, true
		}
	}
	return decimal.Zero, decimal.Zero, false
}
