package dealapi

import (
	"github.com/cloudx-io/lotbid/core"
)

// Message types carried in the "type" field of every request and response.
const (
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
	TypeDealRequest      = "deal_request"
	TypeDealResponse     = "deal_response"
	TypeAnalyzeRequest   = "analyze_request"
	TypeAnalyzeResponse  = "analyze_response"
	TypeSolveRequest     = "solve_request"
	TypeSolveResponse    = "solve_response"
	TypeBatchRequest     = "batch_solve_request"
	TypeBatchResponse    = "batch_solve_response"
	TypePublicKeyRequest = "public_key_request"
	TypePublicKey        = "public_key_response"
)

// Envelope is decoded first to route a raw request to its handler.
type Envelope struct {
	Type string `json:"type"`
}

// Scenario names the fee schedule, assumptions and profile a request is evaluated under.
// An explicit FeeSchedule wins over Source; explicit Assumptions win over the server defaults.
type Scenario struct {
	Source      string            `json:"source,omitempty"`
	FeeSchedule *core.FeeSchedule `json:"fee_schedule,omitempty"`
	Assumptions *core.Assumptions `json:"assumptions,omitempty"`
	Profile     string            `json:"profile,omitempty"`
}

// DealRequest asks for the simple deal calculation when the premium is already known.
type DealRequest struct {
	Type        string                `json:"type"`
	Acquisition core.AcquisitionInput `json:"acquisition"`
	Proceeds    core.ProceedsInput    `json:"proceeds"`
}

type DealResponse struct {
	Type           string             `json:"type"`
	Success        bool               `json:"success"`
	Message        string             `json:"message,omitempty"`
	Analysis       *core.DealAnalysis `json:"analysis,omitempty"`
	ProcessingTime int64              `json:"processing_time_ms"`
}

// AnalyzeRequest evaluates a scenario at a fixed bid.
type AnalyzeRequest struct {
	Type string `json:"type"`
	Scenario
	Bid               float64 `json:"bid"`
	ExpectedSalePrice float64 `json:"expected_sale_price"`
}

type AnalyzeResponse struct {
	Type           string              `json:"type"`
	Success        bool                `json:"success"`
	Message        string              `json:"message,omitempty"`
	Source         string              `json:"source,omitempty"`
	Evaluation     *core.BidEvaluation `json:"evaluation,omitempty"`
	ProcessingTime int64               `json:"processing_time_ms"`
}

// SolveRequest asks for the maximum bid of one lot.
type SolveRequest struct {
	Type      string `json:"type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Scenario
	ExpectedSalePrice float64 `json:"expected_sale_price"`
}

// SolveResponse carries the solution and, when the server holds a signing key,
// the signed decision record binding it to its inputs.
type SolveResponse struct {
	Type           string               `json:"type"`
	RequestID      string               `json:"request_id,omitempty"`
	Success        bool                 `json:"success"`
	Message        string               `json:"message,omitempty"`
	Source         string               `json:"source,omitempty"`
	Solution       *core.BidSolution    `json:"solution,omitempty"`
	DecisionID     string               `json:"decision_id,omitempty"`
	SignedDecision SignedDecisionBase64 `json:"signed_decision,omitempty"`
	ProcessingTime int64                `json:"processing_time_ms"`
}

// BatchSolveRequest solves many lots in one round trip. Results keep the order of Lots.
type BatchSolveRequest struct {
	Type string         `json:"type"`
	Lots []SolveRequest `json:"lots"`
}

type BatchSolveResponse struct {
	Type           string          `json:"type"`
	Success        bool            `json:"success"`
	Message        string          `json:"message,omitempty"`
	Results        []SolveResponse `json:"results,omitempty"`
	Unsatisfiable  int             `json:"unsatisfiable"`
	Failed         int             `json:"failed"`
	ProcessingTime int64           `json:"processing_time_ms"`
}

// PublicKeyResponse returns the PEM public key that verifies signed decisions.
type PublicKeyResponse struct {
	Type      string `json:"type"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
	PublicKey string `json:"public_key,omitempty"`
}

// ErrorResponse answers requests that could not be routed.
type ErrorResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}
