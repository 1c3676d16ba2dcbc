package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	maxSolverIterations = 60 // bisection steps; enough for cent precision over any schedule range
	maxBracketDoublings = 64
)

// SolveMaxBid returns the highest bid, in whole cents, whose all-in cost still returns
// BidStrategy.TargetROIPct on the net proceeds of expectedSalePrice.
//
// Processing flow:
//  1. Fix net proceeds from the expected sale price and disposition costs
//  2. Bracket the target-ROI root by doubling from the net proceeds, then bisect over cents
//  3. Clamp to AbsoluteMaxBid when it is lower
//  4. Lower further when profit at that bid is below MinProfitDollars
//
// A scenario no bid can satisfy is returned as ConstrainedByUnsatisfiable, not as an error.
func SolveMaxBid(schedule FeeSchedule, assumptions Assumptions, expectedSalePrice float64) (*BidSolution, error) {
	if err := requireFinite("expected sale price", expectedSalePrice); err != nil {
		return nil, err
	}
	if expectedSalePrice <= 0 {
		return nil, fmt.Errorf("%w: expected sale price must be positive, got %.2f", ErrInvalidInput, expectedSalePrice)
	}
	if err := assumptions.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateFeeSchedule(schedule); err != nil {
		return nil, err
	}

	s := newBidSearch(schedule, assumptions, expectedSalePrice)
	strategy := assumptions.BidStrategy
	target := decimal.NewFromFloat(strategy.TargetROIPct)
	meetsTarget := func(p costParts) bool {
		return meetsROI(s.netProceeds, p.allIn, target)
	}

	low := s.lowCents
	_, ok, err := s.probe(low, meetsTarget)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.unsatisfiable(low, 0)
	}

	final, err := s.searchMaxBid(low, meetsTarget)
	if err != nil {
		return nil, err
	}
	constraint := ConstrainedByTargetROI

	if strategy.AbsoluteMaxBid != nil {
		ceiling, biddable := s.biddableAtOrBelow(toCents(decimal.NewFromFloat(*strategy.AbsoluteMaxBid)))
		if !biddable {
			return s.unsatisfiable(low, 0)
		}
		if ceiling < final {
			final = ceiling
			constraint = ConstrainedByAbsoluteMaxBid
		}
	}

	if strategy.MinProfitDollars != nil {
		minProfit := decimal.NewFromFloat(*strategy.MinProfitDollars)
		meetsFloor := func(p costParts) bool {
			return s.netProceeds.Sub(p.allIn).GreaterThanOrEqual(minProfit)
		}

		_, ok, err := s.probe(final, meetsFloor)
		if err != nil {
			return nil, err
		}
		if !ok {
			_, reachable, err := s.probe(low, meetsFloor)
			if err != nil {
				return nil, err
			}
			if !reachable {
				if constraint == ConstrainedByAbsoluteMaxBid {
					return s.unsatisfiable(final, final)
				}
				return s.unsatisfiable(low, 0)
			}

			floorBid, err := s.searchMaxBid(low, meetsFloor)
			if err != nil {
				return nil, err
			}
			final = min(final, floorBid)
			constraint = ConstrainedByMinProfit
		}
	}

	return s.solutionAt(final, constraint)
}

// meetsROI reports (netProceeds - cost) / cost >= target without dividing.
// A zero cost meets any target as long as the sale returns something.
func meetsROI(netProceeds, cost, target decimal.Decimal) bool {
	if !cost.IsPositive() {
		return netProceeds.IsPositive()
	}
	return netProceeds.GreaterThanOrEqual(decimalOne.Add(target).Mul(cost))
}

// bidSearch holds one solver run. Bids are whole cents within the schedule coverage.
type bidSearch struct {
	schedule    FeeSchedule
	assumptions Assumptions
	netProceeds decimal.Decimal
	lowCents    int64
	highCents   int64
}

func newBidSearch(schedule FeeSchedule, assumptions Assumptions, expectedSalePrice float64) *bidSearch {
	low, high := schedule.coverageCents()
	return &bidSearch{
		schedule:    schedule,
		assumptions: assumptions,
		netProceeds: dispositionProceeds(decimal.NewFromFloat(expectedSalePrice), assumptions.Disposition),
		lowCents:    low,
		highCents:   high,
	}
}

// probe evaluates pred at cents. A bid inside a tier seam is not biddable and takes the
// outcome of the first biddable bid above it, which keeps the predicate monotone.
// The returned cents is the bid actually evaluated.
func (s *bidSearch) probe(cents int64, pred func(costParts) bool) (int64, bool, error) {
	bid := fromCents(cents)
	if _, next, inSeam := s.schedule.seamAround(bid); inSeam {
		cents = toCentsCeil(next)
		bid = fromCents(cents)
	}

	parts, err := allInCost(bid, s.schedule, s.assumptions)
	if err != nil {
		return cents, false, err
	}
	return cents, pred(parts), nil
}

// searchMaxBid returns the highest biddable cents for which pred holds. pred must hold at low.
func (s *bidSearch) searchMaxBid(low int64, pred func(costParts) bool) (int64, error) {
	lo := low
	if lo >= s.highCents {
		return lo, nil
	}
	hi := min(max(toCents(s.netProceeds), lo+1), s.highCents)

	// Grow the bracket until pred fails or the schedule runs out.
	for doublings := 0; ; doublings++ {
		biddable, ok, err := s.probe(hi, pred)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		lo = biddable
		if lo >= s.highCents || doublings >= maxBracketDoublings {
			return lo, nil
		}
		hi = min(max(hi*2, lo+1), s.highCents)
	}

	// Invariant: pred holds at lo and fails at hi.
	for i := 0; i < maxSolverIterations && hi-lo > 1; i++ {
		mid := lo + (hi-lo)/2
		biddable, ok, err := s.probe(mid, pred)
		if err != nil {
			return 0, err
		}
		if ok && biddable < hi {
			lo = biddable
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// biddableAtOrBelow snaps cents down into the schedule coverage.
func (s *bidSearch) biddableAtOrBelow(cents int64) (int64, bool) {
	if cents < s.lowCents {
		return 0, false
	}
	if cents >= s.highCents {
		return s.highCents, true
	}
	if prev, _, inSeam := s.schedule.seamAround(fromCents(cents)); inSeam {
		return toCents(prev), true
	}
	return cents, true
}

func (s *bidSearch) solutionAt(cents int64, constraint Constraint) (*BidSolution, error) {
	parts, err := allInCost(fromCents(cents), s.schedule, s.assumptions)
	if err != nil {
		return nil, err
	}

	profit := roundCents(s.netProceeds.Sub(parts.allIn))
	roi := decimal.Zero
	if parts.allIn.IsPositive() {
		roi = roiFraction(profit, parts.allIn)
	}

	return &BidSolution{
		MaxBid:         toFloat(fromCents(cents)),
		AchievedROIPct: toFloat(roi),
		ProfitDollars:  toFloat(profit),
		ConstrainedBy:  constraint,
		AllInCost:      toFloat(parts.allIn),
		NetProceeds:    toFloat(s.netProceeds),
	}, nil
}

// unsatisfiable reports the figures at reportCents with maxBidCents as the bid.
func (s *bidSearch) unsatisfiable(reportCents, maxBidCents int64) (*BidSolution, error) {
	solution, err := s.solutionAt(reportCents, ConstrainedByUnsatisfiable)
	if err != nil {
		return nil, err
	}
	solution.MaxBid = toFloat(fromCents(maxBidCents))
	return solution, nil
}
