package core

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeFeeScheduleHash computes the hash binding a decision to the fee schedule it used.
// This is used by the signer (to record hashes) and the verifier (to check them).
//
// Formula: SHA256(nonce + "|" + source + "|" + tier_1 + "|" + ... + tier_n)
// where tier = "min:max:fee_type:amount:cap" and cap is "-" when absent.
//
// Amounts are formatted to exactly 6 decimal places so the hash does not depend on float representation.
func ComputeFeeScheduleHash(schedule FeeSchedule, nonce string) string {
	var b strings.Builder
	b.WriteString(nonce)
	b.WriteString("|")
	b.WriteString(schedule.Source)

	for _, tier := range schedule.Tiers {
		capText := "-"
		if tier.Cap != nil {
			capText = fmt.Sprintf("%.6f", *tier.Cap)
		}
		fmt.Fprintf(&b, "|%.6f:%.6f:%s:%.6f:%s", tier.MinBid, tier.MaxBid, tier.FeeType, tier.Amount, capText)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash)
}

// ComputeAssumptionsHash computes the hash binding a decision to its assumptions.
//
// Formula: SHA256(nonce + "|" + auction + "|" + acquisition + "|" + reconditioning + "|" + disposition + "|" + bid_strategy)
// with every field in declared order, floats at 6 decimal places and absent limits as "-".
func ComputeAssumptionsHash(a Assumptions, nonce string) string {
	optional := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.6f", *v)
	}

	basis := a.Acquisition.ContingencyBasis
	if basis == "" {
		basis = ContingencyBasisNonAuction
	}

	data := fmt.Sprintf("%s|%.6f:%.6f:%.6f:%t|%.6f:%.6f:%d:%.6f:%s|%.6f:%.6f|%.6f:%.6f|%.6f:%s:%s",
		nonce,
		a.Auction.BuyerPremiumPct, a.Auction.SalesTaxPct, a.Auction.FlatFees, a.Auction.TaxAppliesToPremium,
		a.Acquisition.TransportCost, a.Acquisition.StoragePerDay, a.Acquisition.ExpectedHoldDays,
		a.Acquisition.ContingencyPct, basis,
		a.Reconditioning.EstimatedRepairs, a.Reconditioning.Detailing,
		a.Disposition.ListingFees, a.Disposition.PaymentFeesPct,
		a.BidStrategy.TargetROIPct, optional(a.BidStrategy.AbsoluteMaxBid), optional(a.BidStrategy.MinProfitDollars),
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
