package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudx-io/lotbid/config"
	"github.com/cloudx-io/lotbid/core"
)

const (
	exitOK            = 0
	exitUnsatisfiable = 1
	exitError         = 2
)

// plainTextHandler writes bare messages to w for CLI output.
type plainTextHandler struct {
	w io.Writer
}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(h.w, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

type options struct {
	salePrice   float64
	bid         float64
	bidSet      bool
	libraryPath string
	source      string
	schedule    string // file path or inline JSON
	assumptions string // file path or inline JSON
	profile     string
	format      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := slog.New(&plainTextHandler{w: stdout})

	flags := flag.NewFlagSet("bid-solver", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts options
	flags.Float64Var(&opts.salePrice, "sale-price", 0, "Expected resale price (required)")
	flags.Float64Var(&opts.bid, "bid", 0, "Evaluate this bid instead of solving for the maximum")
	flags.StringVar(&opts.libraryPath, "library", "", "Path to library file with fee schedules and profiles")
	flags.StringVar(&opts.source, "source", "", "Auction house whose library fee schedule applies")
	flags.StringVar(&opts.schedule, "schedule", "", "Fee schedule JSON, inline or a file path")
	flags.StringVar(&opts.assumptions, "assumptions", "", "Assumptions JSON, inline or a file path")
	flags.StringVar(&opts.profile, "profile", "", "Named assumptions profile")
	flags.StringVar(&opts.format, "format", "text", "Output format: text or json")
	help := flags.Bool("help", false, "Show usage information")

	if err := flags.Parse(args); err != nil {
		return exitError
	}
	if *help {
		showUsage(logger)
		return exitOK
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "bid" {
			opts.bidSet = true
		}
	})
	if opts.salePrice == 0 {
		showUsage(logger)
		return exitError
	}

	schedule, assumptions, err := loadScenario(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if opts.bidSet {
		evaluation, err := core.EvaluateBid(schedule, assumptions, opts.bid, opts.salePrice)
		if err != nil {
			fmt.Fprintf(stderr, "Evaluation error: %v\n", err)
			return exitError
		}
		if opts.format == "json" {
			if err := outputJSON(logger, schedule.Source, evaluation); err != nil {
				fmt.Fprintf(stderr, "Error marshaling JSON: %v\n", err)
				return exitError
			}
		} else {
			outputEvaluation(logger, schedule.Source, opts.salePrice, evaluation)
		}
		return exitOK
	}

	solution, err := core.SolveMaxBid(schedule, assumptions, opts.salePrice)
	if err != nil {
		fmt.Fprintf(stderr, "Solver error: %v\n", err)
		return exitError
	}
	if opts.format == "json" {
		if err := outputJSON(logger, schedule.Source, solution); err != nil {
			fmt.Fprintf(stderr, "Error marshaling JSON: %v\n", err)
			return exitError
		}
	} else {
		outputSolution(logger, schedule.Source, opts.salePrice, solution)
	}

	if !solution.Satisfiable() {
		return exitUnsatisfiable
	}
	return exitOK
}

// loadScenario resolves the schedule from --schedule, then --source in the library,
// then the buyer premium as a flat rate.
func loadScenario(opts options) (core.FeeSchedule, core.Assumptions, error) {
	library := config.DefaultLibrary()
	if opts.libraryPath != "" {
		var err error
		library, err = config.LoadLibrary(opts.libraryPath)
		if err != nil {
			return core.FeeSchedule{}, core.Assumptions{}, err
		}
	}

	var explicit *core.Assumptions
	if opts.assumptions != "" {
		explicit = &core.Assumptions{}
		if err := readJSON(opts.assumptions, explicit); err != nil {
			return core.FeeSchedule{}, core.Assumptions{}, fmt.Errorf("assumptions: %w", err)
		}
	}
	assumptions := library.Assumptions(explicit, opts.profile)

	switch {
	case opts.schedule != "":
		var schedule core.FeeSchedule
		if err := readJSON(opts.schedule, &schedule); err != nil {
			return core.FeeSchedule{}, core.Assumptions{}, fmt.Errorf("fee schedule: %w", err)
		}
		if schedule.Source == "" {
			schedule.Source = opts.source
		}
		return schedule, assumptions, nil

	case opts.source != "":
		schedule, ok := library.Schedule(opts.source)
		if !ok {
			return core.FeeSchedule{}, core.Assumptions{}, fmt.Errorf("%w: unknown fee schedule source %q", core.ErrInvalidInput, opts.source)
		}
		return schedule, assumptions, nil

	default:
		return core.PercentFeeSchedule("flat-rate", assumptions.Auction.BuyerPremiumPct), assumptions, nil
	}
}

// readJSON decodes arg as inline JSON when it starts with '{', otherwise as a file path.
func readJSON(arg string, v any) error {
	data := []byte(arg)
	if !strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var err error
		data, err = os.ReadFile(arg)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

func showUsage(logger *slog.Logger) {
	logger.Info("Bid Solver")
	logger.Info("")
	logger.Info("Computes the maximum bid for a lot that still meets the return target.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  bid-solver --sale-price <amount> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --sale-price <amount>             Expected resale price")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --library <path>                  Library file with fee schedules and profiles")
	logger.Info("  --source <name>                   Auction house fee schedule from the library")
	logger.Info("  --schedule <json|path>            Fee schedule JSON, inline or a file (overrides --source)")
	logger.Info("  --assumptions <json|path>         Assumptions JSON, inline or a file (overrides library defaults)")
	logger.Info("  --profile <name>                  Assumptions profile: velocity, premium, or a library profile")
	logger.Info("  --bid <amount>                    Evaluate a fixed bid instead of solving")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  bid-solver --library library.yaml --source sierra --sale-price 3300")
	logger.Info("  bid-solver --library library.yaml --source sierra --sale-price 3300 --bid 2600")
	logger.Info(`  bid-solver --schedule '{"tiers":[{"min_bid":0,"max_bid":100000,"fee_type":"percent","amount":10}]}' --sale-price 3300`)
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Bid found or evaluated")
	logger.Info("  1 - No bid meets the constraints")
	logger.Info("  2 - Invalid input or runtime error")
}

func outputSolution(logger *slog.Logger, source string, salePrice float64, solution *core.BidSolution) {
	logger.Info("Bid Solver")
	logger.Info("==========")
	logger.Info("")
	logger.Info(fmt.Sprintf("  Source:              %s", source))
	logger.Info(fmt.Sprintf("  Expected Sale Price: %.2f", salePrice))
	logger.Info(fmt.Sprintf("  Net Proceeds:        %.2f", solution.NetProceeds))
	logger.Info("")
	if solution.Satisfiable() {
		logger.Info(fmt.Sprintf("  Max Bid:             %.2f", solution.MaxBid))
	} else {
		logger.Info("  Max Bid:             none")
	}
	logger.Info(fmt.Sprintf("  All-In Cost:         %.2f", solution.AllInCost))
	logger.Info(fmt.Sprintf("  Profit:              %.2f", solution.ProfitDollars))
	logger.Info(fmt.Sprintf("  Achieved ROI:        %.2f%%", solution.AchievedROIPct*100))
	logger.Info(fmt.Sprintf("  Constrained By:      %s", solution.ConstrainedBy))
}

func outputEvaluation(logger *slog.Logger, source string, salePrice float64, evaluation *core.BidEvaluation) {
	cost := evaluation.Cost
	logger.Info("Bid Evaluation")
	logger.Info("==============")
	logger.Info("")
	logger.Info(fmt.Sprintf("  Source:              %s", source))
	logger.Info(fmt.Sprintf("  Bid:                 %.2f", cost.Bid))
	logger.Info(fmt.Sprintf("  Buyer Premium:       %.2f", cost.BuyerPremium))
	logger.Info(fmt.Sprintf("  Sales Tax:           %.2f", cost.SalesTax))
	logger.Info(fmt.Sprintf("  Flat Fees:           %.2f", cost.FlatFees))
	logger.Info(fmt.Sprintf("  Non-Auction Costs:   %.2f", cost.NonAuctionCosts))
	logger.Info(fmt.Sprintf("  Contingency:         %.2f", cost.Contingency))
	logger.Info(fmt.Sprintf("  All-In Cost:         %.2f", cost.AllIn))
	logger.Info("")
	logger.Info(fmt.Sprintf("  Expected Sale Price: %.2f", salePrice))
	logger.Info(fmt.Sprintf("  Net Proceeds:        %.2f", evaluation.NetProceeds))
	logger.Info(fmt.Sprintf("  Profit:              %.2f", evaluation.Profit))
	logger.Info(fmt.Sprintf("  ROI:                 %.2f%%", evaluation.ROIPct*100))
	logger.Info(fmt.Sprintf("  Margin:              %.2f%%", evaluation.MarginPercent))
}

func outputJSON(logger *slog.Logger, source string, result any) error {
	output := map[string]any{
		"source": source,
		"result": result,
	}
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
