package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cloudx-io/lotbid/audit"
	"github.com/cloudx-io/lotbid/core"
	"github.com/cloudx-io/lotbid/dealapi"
)

const (
	maxBatchLots = 1000

	// flatRateSource names the schedule built from BuyerPremiumPct when none is given.
	flatRateSource = "flat-rate"
	customSource   = "custom"
)

// resolveScenario picks the fee schedule and assumptions a request runs under:
// explicit schedule, then the library schedule for Source, then a flat-rate schedule
// from the buyer premium; explicit assumptions or the library defaults, then the profile.
func (s *DealServer) resolveScenario(sc dealapi.Scenario) (core.FeeSchedule, core.Assumptions, error) {
	if sc.Profile != "" && !s.hasProfile(sc.Profile) {
		s.logger.Warn("unknown profile, using base assumptions", zap.String("profile", sc.Profile))
	}
	assumptions := s.library.Assumptions(sc.Assumptions, sc.Profile)

	switch {
	case sc.FeeSchedule != nil:
		schedule := *sc.FeeSchedule
		if schedule.Source == "" {
			schedule.Source = customSource
			if sc.Source != "" {
				schedule.Source = sc.Source
			}
		}
		return schedule, assumptions, nil

	case sc.Source != "":
		schedule, ok := s.library.Schedule(sc.Source)
		if !ok {
			return core.FeeSchedule{}, core.Assumptions{}, fmt.Errorf("%w: unknown fee schedule source %q", core.ErrInvalidInput, sc.Source)
		}
		return schedule, assumptions, nil

	default:
		return core.PercentFeeSchedule(flatRateSource, assumptions.Auction.BuyerPremiumPct), assumptions, nil
	}
}

func (s *DealServer) hasProfile(name string) bool {
	name = strings.TrimSpace(name)
	for profile := range s.library.Profiles {
		if strings.EqualFold(profile, name) {
			return true
		}
	}
	return false
}

// ProcessDeal runs the simple deal calculation.
func (s *DealServer) ProcessDeal(req dealapi.DealRequest) dealapi.DealResponse {
	startTime := time.Now()

	analysis, err := core.AnalyzeDeal(req.Acquisition, req.Proceeds)
	if err != nil {
		s.logger.Info("deal request rejected", zap.Error(err))
		return dealapi.DealResponse{
			Type:           dealapi.TypeDealResponse,
			Message:        err.Error(),
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	return dealapi.DealResponse{
		Type:           dealapi.TypeDealResponse,
		Success:        true,
		Analysis:       analysis,
		ProcessingTime: time.Since(startTime).Milliseconds(),
	}
}

// ProcessAnalyze evaluates a scenario at a fixed bid.
func (s *DealServer) ProcessAnalyze(req dealapi.AnalyzeRequest) dealapi.AnalyzeResponse {
	startTime := time.Now()
	response := dealapi.AnalyzeResponse{Type: dealapi.TypeAnalyzeResponse}

	schedule, assumptions, err := s.resolveScenario(req.Scenario)
	if err == nil {
		response.Source = schedule.Source
		response.Evaluation, err = core.EvaluateBid(schedule, assumptions, req.Bid, req.ExpectedSalePrice)
	}
	if err != nil {
		s.logger.Info("analyze request rejected", zap.Error(err))
		response.Message = err.Error()
		response.Evaluation = nil
	} else {
		response.Success = true
	}

	response.ProcessingTime = time.Since(startTime).Milliseconds()
	return response
}

// ProcessSolve solves the maximum bid of one lot and signs the decision when a signer is set.
func (s *DealServer) ProcessSolve(req dealapi.SolveRequest) dealapi.SolveResponse {
	startTime := time.Now()
	response := dealapi.SolveResponse{
		Type:      dealapi.TypeSolveResponse,
		RequestID: req.RequestID,
	}
	fail := func(err error) dealapi.SolveResponse {
		s.logger.Info("solve request rejected", zap.String("request_id", req.RequestID), zap.Error(err))
		response.Message = err.Error()
		response.Solution = nil
		response.ProcessingTime = time.Since(startTime).Milliseconds()
		return response
	}

	schedule, assumptions, err := s.resolveScenario(req.Scenario)
	if err != nil {
		return fail(err)
	}
	response.Source = schedule.Source

	solution, err := core.SolveMaxBid(schedule, assumptions, req.ExpectedSalePrice)
	if err != nil {
		return fail(err)
	}
	response.Solution = solution

	if s.signer != nil {
		record, err := audit.NewDecisionRecord(req.RequestID, schedule, assumptions, req.ExpectedSalePrice, *solution)
		if err != nil {
			return fail(fmt.Errorf("failed to build decision record: %w", err))
		}
		signed, err := s.signer.SignDecision(record)
		if err != nil {
			s.logger.Error("failed to sign decision", zap.String("decision_id", record.ID), zap.Error(err))
			return fail(fmt.Errorf("failed to sign decision: %w", err))
		}
		response.DecisionID = record.ID
		response.SignedDecision = signed.EncodeBase64()
	}

	response.Success = true
	response.ProcessingTime = time.Since(startTime).Milliseconds()

	s.logger.Info("solve complete",
		zap.String("request_id", req.RequestID),
		zap.String("source", schedule.Source),
		zap.Float64("expected_sale_price", req.ExpectedSalePrice),
		zap.Float64("max_bid", solution.MaxBid),
		zap.String("constrained_by", string(solution.ConstrainedBy)),
		zap.Int64("processing_ms", response.ProcessingTime),
	)
	return response
}

// ProcessBatch solves every lot with at most BatchConcurrency solves in flight.
// A failing lot is reported in its own result and does not fail the batch.
func (s *DealServer) ProcessBatch(ctx context.Context, req dealapi.BatchSolveRequest) dealapi.BatchSolveResponse {
	startTime := time.Now()
	response := dealapi.BatchSolveResponse{Type: dealapi.TypeBatchResponse}

	if len(req.Lots) > maxBatchLots {
		response.Message = fmt.Sprintf("batch of %d lots exceeds the limit of %d", len(req.Lots), maxBatchLots)
		response.ProcessingTime = time.Since(startTime).Milliseconds()
		return response
	}

	results := make([]dealapi.SolveResponse, len(req.Lots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)

	for i, lot := range req.Lots {
		i, lot := i, lot
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.ProcessSolve(lot)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("batch solve interrupted", zap.Int("lots", len(req.Lots)), zap.Error(err))
		response.Message = fmt.Sprintf("batch interrupted: %v", err)
		response.ProcessingTime = time.Since(startTime).Milliseconds()
		return response
	}

	for _, result := range results {
		switch {
		case !result.Success:
			response.Failed++
		case !result.Solution.Satisfiable():
			response.Unsatisfiable++
		}
	}

	response.Success = true
	response.Results = results
	response.ProcessingTime = time.Since(startTime).Milliseconds()

	s.logger.Info("batch solve complete",
		zap.Int("lots", len(req.Lots)),
		zap.Int("unsatisfiable", response.Unsatisfiable),
		zap.Int("failed", response.Failed),
		zap.Int64("processing_ms", response.ProcessingTime),
	)
	return response
}

// PublicKey returns the key that verifies signed decisions.
func (s *DealServer) PublicKey() dealapi.PublicKeyResponse {
	response := dealapi.PublicKeyResponse{Type: dealapi.TypePublicKey}
	if s.signer == nil {
		response.Message = "decision signing is disabled"
		return response
	}

	publicKeyPEM, err := s.signer.PublicKeyPEM()
	if err != nil {
		s.logger.Error("failed to export public key", zap.Error(err))
		response.Message = err.Error()
		return response
	}

	response.Success = true
	response.Algorithm = audit.SignatureAlgorithm
	response.PublicKey = publicKeyPEM
	return response
}
