package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudx-io/lotbid/audit"
	"github.com/cloudx-io/lotbid/dealapi"
)

// plainTextHandler writes bare messages to stdout for CLI output.
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

func main() {
	var (
		decisionPath  = flag.String("decision", "", "Solve response JSON file, or encoded signed decision text or file (required)")
		publicKeyPath = flag.String("public-key", "", "Path to public key PEM file (required)")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help || *decisionPath == "" || *publicKeyPath == "" {
		showUsage()
		if *decisionPath == "" || *publicKeyPath == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	signed, err := readDecision(*decisionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading decision: %v\n", err)
		os.Exit(2)
	}

	publicKey, err := readPublicKey(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	result, err := audit.VerifyDecision(signed, publicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Bid Decision Verifier")
	logger.Info("")
	logger.Info("Verifies signed bid decisions produced by the decision server.")
	logger.Info("Checks the signature, the input hashes, and re-runs the solver on the recorded inputs.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  decision-verifier --decision <path> --public-key <pem> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --decision <path|text>            Solve response JSON, or base64/base64url/gzip decision text or file")
	logger.Info("  --public-key <path>               Path to public key PEM file")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  decision-verifier --decision response.json --public-key decision_key.pem")
	logger.Info("  decision-verifier --decision decision.txt --public-key decision_key.pem --format json")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Verification passed")
	logger.Info("  1 - Verification failed")
	logger.Info("  2 - Invalid input or runtime error")
}

// readDecision accepts a solve response JSON file, a file holding the encoded
// decision text, or the encoded text itself.
func readDecision(arg string) (dealapi.SignedDecision, error) {
	data, err := os.ReadFile(arg)
	if errors.Is(err, fs.ErrNotExist) {
		return dealapi.ParseSignedDecision(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, "{") {
		var response dealapi.SolveResponse
		if err := json.Unmarshal([]byte(text), &response); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if response.SignedDecision == "" {
			return nil, fmt.Errorf("missing signed_decision field in solve response")
		}
		return response.SignedDecision.Decode()
	}

	return dealapi.ParseSignedDecision(text)
}

func readPublicKey(path string) (*ecdsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return audit.ParsePublicKeyPEM(string(data))
}

func outputText(result *audit.DecisionValidationResult) {
	logger.Info("Bid Decision Verifier")
	logger.Info("=====================")
	logger.Info("")

	if record := result.Record; record != nil {
		logger.Info("Decision:")
		logger.Info(fmt.Sprintf("  ID:                  %s", record.ID))
		if record.RequestID != "" {
			logger.Info(fmt.Sprintf("  Request ID:          %s", record.RequestID))
		}
		logger.Info(fmt.Sprintf("  Created:             %s", record.Timestamp().UTC().Format("2006-01-02 15:04:05 MST")))
		logger.Info(fmt.Sprintf("  Source:              %s", record.Source))
		logger.Info(fmt.Sprintf("  Expected Sale Price: %.2f", record.ExpectedSalePrice))
		logger.Info(fmt.Sprintf("  Max Bid:             %.2f", record.Solution.MaxBid))
		logger.Info(fmt.Sprintf("  Constrained By:      %s", record.Solution.ConstrainedBy))
		logger.Info(fmt.Sprintf("  Achieved ROI:        %.2f%%", record.Solution.AchievedROIPct*100))
		logger.Info(fmt.Sprintf("  Profit:              %.2f", record.Solution.ProfitDollars))
		logger.Info("")
	}

	logger.Info("Validation Details:")
	for _, detail := range result.ValidationDetails {
		logger.Info("  " + detail)
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Signature Valid:   %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Inputs Hash Valid: %v", result.InputsHashValid))
	logger.Info(fmt.Sprintf("  Solution Valid:    %v", result.SolutionValid))

	logger.Info("")
	logger.Info("=====================")
	if result.IsValid() {
		logger.Info("VERIFICATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VERIFICATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(result *audit.DecisionValidationResult) error {
	output := map[string]any{
		"valid":             result.IsValid(),
		"signature_valid":   result.SignatureValid,
		"inputs_hash_valid": result.InputsHashValid,
		"solution_valid":    result.SolutionValid,
		"details":           result.ValidationDetails,
	}
	if record := result.Record; record != nil {
		output["decision_id"] = record.ID
		output["request_id"] = record.RequestID
		output["source"] = record.Source
		output["expected_sale_price"] = record.ExpectedSalePrice
		output["solution"] = record.Solution
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
