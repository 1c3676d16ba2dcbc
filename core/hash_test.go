package core

import (
	"crypto/sha256"
	"fmt"
	"testing"
)

func isHexSHA256(hash string) bool {
	if len(hash) != 64 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func TestComputeFeeScheduleHash(t *testing.T) {
	nonce := "test-nonce"
	schedule := sierraSchedule()

	hash := ComputeFeeScheduleHash(schedule, nonce)

	if !isHexSHA256(hash) {
		t.Errorf("ComputeFeeScheduleHash() = %q, want 64 hex characters", hash)
	}

	// Test determinism
	hash2 := ComputeFeeScheduleHash(schedule, nonce)
	if hash != hash2 {
		t.Errorf("ComputeFeeScheduleHash() not deterministic")
	}

	// Verify exact hash calculation
	expectedData := "test-nonce|sierra" +
		"|0.000000:2500.000000:flat:75.000000:-" +
		"|2501.000000:100000.000000:percent:3.000000:-"
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash != expectedHash {
		t.Errorf("ComputeFeeScheduleHash() = %v, want %v", hash, expectedHash)
	}

	// Different nonces should produce different hashes
	if hash == ComputeFeeScheduleHash(schedule, "different-nonce") {
		t.Errorf("Different nonces should produce different hashes")
	}

	// A changed tier amount should produce a different hash
	changed := sierraSchedule()
	changed.Tiers[1].Amount = 3.5
	if hash == ComputeFeeScheduleHash(changed, nonce) {
		t.Errorf("Different tier amounts should produce different hashes")
	}

	// A cap should produce a different hash
	capped := sierraSchedule()
	capped.Tiers[1].Cap = ptr(500.0)
	if hash == ComputeFeeScheduleHash(capped, nonce) {
		t.Errorf("A tier cap should change the hash")
	}
}

func TestComputeFeeScheduleHash_CapFormatting(t *testing.T) {
	nonce := "n"
	schedule := cappedSchedule(0.05)

	hash := ComputeFeeScheduleHash(schedule, nonce)
	expectedData := "n|capped|0.000000:50000.000000:percent:0.050000:250.000000"
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash != expectedHash {
		t.Errorf("ComputeFeeScheduleHash() = %v, want %v", hash, expectedHash)
	}
}

func TestComputeFeeScheduleHash_TierOrder(t *testing.T) {
	schedule := sierraSchedule()
	reversed := FeeSchedule{
		Source: schedule.Source,
		Tiers:  []FeeScheduleTier{schedule.Tiers[1], schedule.Tiers[0]},
	}

	// Tier order is significant for first-match resolution, so it is part of the hash
	if ComputeFeeScheduleHash(schedule, "n") == ComputeFeeScheduleHash(reversed, "n") {
		t.Errorf("Reordered tiers should produce different hashes")
	}
}

func TestComputeAssumptionsHash(t *testing.T) {
	nonce := "test-nonce"
	assumptions := DefaultAssumptions()

	hash := ComputeAssumptionsHash(assumptions, nonce)

	if !isHexSHA256(hash) {
		t.Errorf("ComputeAssumptionsHash() = %q, want 64 hex characters", hash)
	}

	if hash != ComputeAssumptionsHash(assumptions, nonce) {
		t.Errorf("ComputeAssumptionsHash() not deterministic")
	}

	// Verify exact hash calculation
	expectedData := "test-nonce" +
		"|0.100000:0.082500:50.000000:true" +
		"|150.000000:5.000000:14:0.100000:nonAuction" +
		"|0.000000:75.000000" +
		"|0.000000:0.030000" +
		"|0.200000:-:-"
	expectedHash := fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData)))
	if hash != expectedHash {
		t.Errorf("ComputeAssumptionsHash() = %v, want %v", hash, expectedHash)
	}

	if hash == ComputeAssumptionsHash(assumptions, "different-nonce") {
		t.Errorf("Different nonces should produce different hashes")
	}

	withCeiling := DefaultAssumptions()
	withCeiling.BidStrategy.AbsoluteMaxBid = ptr(5000.0)
	if hash == ComputeAssumptionsHash(withCeiling, nonce) {
		t.Errorf("An absolute max bid should change the hash")
	}

	withTarget := DefaultAssumptions()
	withTarget.BidStrategy.TargetROIPct = 0.25
	if hash == ComputeAssumptionsHash(withTarget, nonce) {
		t.Errorf("Different targets should produce different hashes")
	}
}

func TestComputeAssumptionsHash_DefaultBasis(t *testing.T) {
	explicit := DefaultAssumptions()
	implicit := DefaultAssumptions()
	implicit.Acquisition.ContingencyBasis = ""

	// An unset basis behaves as nonAuction, so it must hash the same
	if ComputeAssumptionsHash(explicit, "n") != ComputeAssumptionsHash(implicit, "n") {
		t.Errorf("Unset contingency basis should hash as nonAuction")
	}

	total := DefaultAssumptions()
	total.Acquisition.ContingencyBasis = ContingencyBasisTotal
	if ComputeAssumptionsHash(explicit, "n") == ComputeAssumptionsHash(total, "n") {
		t.Errorf("Different contingency bases should produce different hashes")
	}
}
