package audit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/cloudx-io/lotbid/core"
)

// DecisionRecord is the signed payload of one bid decision. It carries the full
// inputs so a verifier can re-run the solver, plus nonce-salted hashes of them.
type DecisionRecord struct {
	ID                string           `cbor:"id"`
	RequestID         string           `cbor:"request_id,omitempty"`
	CreatedAt         int64            `cbor:"created_at"` // unix milliseconds
	Source            string           `cbor:"source"`
	HashNonce         string           `cbor:"hash_nonce"`
	FeeScheduleHash   string           `cbor:"fee_schedule_hash"`
	AssumptionsHash   string           `cbor:"assumptions_hash"`
	ExpectedSalePrice float64          `cbor:"expected_sale_price"`
	FeeSchedule       core.FeeSchedule `cbor:"fee_schedule"`
	Assumptions       core.Assumptions `cbor:"assumptions"`
	Solution          core.BidSolution `cbor:"solution"`
}

// NewDecisionRecord binds a solution to the schedule and assumptions that produced it.
func NewDecisionRecord(requestID string, schedule core.FeeSchedule, assumptions core.Assumptions,
	expectedSalePrice float64, solution core.BidSolution) (*DecisionRecord, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate hash nonce: %w", err)
	}

	return &DecisionRecord{
		ID:                uuid.NewString(),
		RequestID:         requestID,
		CreatedAt:         time.Now().UnixMilli(),
		Source:            schedule.Source,
		HashNonce:         nonce,
		FeeScheduleHash:   core.ComputeFeeScheduleHash(schedule, nonce),
		AssumptionsHash:   core.ComputeAssumptionsHash(assumptions, nonce),
		ExpectedSalePrice: expectedSalePrice,
		FeeSchedule:       schedule,
		Assumptions:       assumptions,
		Solution:          solution,
	}, nil
}

// Timestamp returns CreatedAt as a time.
func (r *DecisionRecord) Timestamp() time.Time {
	return time.UnixMilli(r.CreatedAt).UTC()
}

func (r *DecisionRecord) marshal() ([]byte, error) {
	data, err := cbor.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal decision record: %w", err)
	}
	return data, nil
}

func unmarshalRecord(data []byte) (*DecisionRecord, error) {
	var record DecisionRecord
	if err := cbor.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal decision record: %w", err)
	}
	return &record, nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
