package audit

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/lotbid/core"
	"github.com/cloudx-io/lotbid/dealapi"
)

// DecisionValidationResult contains the outcome of each verification step.
type DecisionValidationResult struct {
	SignatureValid    bool
	InputsHashValid   bool
	SolutionValid     bool
	ValidationDetails []string
	Record            *DecisionRecord
}

// IsValid returns true if all decision validation checks passed
func (r *DecisionValidationResult) IsValid() bool {
	return r.SignatureValid && r.InputsHashValid && r.SolutionValid
}

// ParseDecision returns the record inside a signed decision without checking the signature.
func ParseDecision(signed dealapi.SignedDecision) (*DecisionRecord, error) {
	msg, err := parseSign1(signed)
	if err != nil {
		return nil, err
	}
	return unmarshalRecord(msg.Payload)
}

// VerifyDecision validates a signed decision against publicKey.
//
// Validation steps:
//  1. Verify the COSE_Sign1 ES256 signature
//  2. Recompute the fee schedule and assumptions hashes with the recorded nonce
//  3. Re-run the solver on the recorded inputs and compare with the recorded solution
//
// Returns:
//   - DecisionValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed message or payload)
func VerifyDecision(signed dealapi.SignedDecision, publicKey *ecdsa.PublicKey) (*DecisionValidationResult, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("public key is nil")
	}

	msg, err := parseSign1(signed)
	if err != nil {
		return nil, err
	}
	record, err := unmarshalRecord(msg.Payload)
	if err != nil {
		return nil, err
	}

	result := &DecisionValidationResult{Record: record}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("COSE signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature valid")
	}

	scheduleHash := core.ComputeFeeScheduleHash(record.FeeSchedule, record.HashNonce)
	assumptionsHash := core.ComputeAssumptionsHash(record.Assumptions, record.HashNonce)
	switch {
	case scheduleHash != record.FeeScheduleHash:
		result.ValidationDetails = append(result.ValidationDetails, "Fee schedule hash mismatch")
	case assumptionsHash != record.AssumptionsHash:
		result.ValidationDetails = append(result.ValidationDetails, "Assumptions hash mismatch")
	default:
		result.InputsHashValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Input hashes match recorded inputs")
	}

	solution, err := core.SolveMaxBid(record.FeeSchedule, record.Assumptions, record.ExpectedSalePrice)
	switch {
	case err != nil:
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Recorded inputs do not solve: %v", err))
	case *solution != record.Solution:
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Solution mismatch: recorded max bid %.2f (%s), recomputed %.2f (%s)",
				record.Solution.MaxBid, record.Solution.ConstrainedBy, solution.MaxBid, solution.ConstrainedBy))
	default:
		result.SolutionValid = true
		result.ValidationDetails = append(result.ValidationDetails,
			fmt.Sprintf("Solution reproduced: max bid %.2f (%s)", solution.MaxBid, solution.ConstrainedBy))
	}

	return result, nil
}

func parseSign1(signed dealapi.SignedDecision) (*cose.Sign1Message, error) {
	if len(signed) == 0 {
		return nil, fmt.Errorf("signed decision is empty")
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}
	return &msg, nil
}
