package core

// FeeType selects how a fee schedule tier computes its fee.
type FeeType string

const (
	FeeTypeFlat    FeeType = "flat"
	FeeTypePercent FeeType = "percent"
)

// FeeScheduleTier is one contiguous bid range of a buyer premium schedule.
// For percent tiers Amount may be authored either as a whole-number percent (3)
// or as a fraction (0.03); both resolve to the same rate.
type FeeScheduleTier struct {
	MinBid  float64  `json:"min_bid"`
	MaxBid  float64  `json:"max_bid"`
	FeeType FeeType  `json:"fee_type"`
	Amount  float64  `json:"amount"`
	Cap     *float64 `json:"cap,omitempty"`
}

// FeeSchedule is the buyer premium schedule of one auction house.
// Tiers are checked in declared order. Schedules are reference data and must not be mutated once built.
type FeeSchedule struct {
	Source string            `json:"source"`
	Tiers  []FeeScheduleTier `json:"tiers"`
}

// ContingencyBasis selects which costs the contingency percentage applies to.
type ContingencyBasis string

const (
	ContingencyBasisNonAuction ContingencyBasis = "nonAuction"
	ContingencyBasisTotal      ContingencyBasis = "total"
)

type AuctionCosts struct {
	BuyerPremiumPct     float64 `json:"buyer_premium_pct"`
	SalesTaxPct         float64 `json:"sales_tax_pct"`
	FlatFees            float64 `json:"flat_fees"`
	TaxAppliesToPremium bool    `json:"tax_applies_to_premium"`
}

type AcquisitionCosts struct {
	TransportCost    float64          `json:"transport_cost"`
	StoragePerDay    float64          `json:"storage_per_day"`
	ExpectedHoldDays int              `json:"expected_hold_days"`
	ContingencyPct   float64          `json:"contingency_pct"`
	ContingencyBasis ContingencyBasis `json:"contingency_basis"`
}

type ReconditioningCosts struct {
	EstimatedRepairs float64 `json:"estimated_repairs"`
	Detailing        float64 `json:"detailing"`
}

type DispositionCosts struct {
	ListingFees    float64 `json:"listing_fees"`
	PaymentFeesPct float64 `json:"payment_fees_pct"`
}

// BidStrategy holds the return target and the optional hard limits of a bid.
// TargetROIPct is a fraction (0.20 means 20%).
type BidStrategy struct {
	TargetROIPct     float64  `json:"target_roi_pct"`
	AbsoluteMaxBid   *float64 `json:"absolute_max_bid,omitempty"`
	MinProfitDollars *float64 `json:"min_profit_dollars,omitempty"`
}

// Assumptions describes one bidding scenario.
type Assumptions struct {
	Auction        AuctionCosts        `json:"auction"`
	Acquisition    AcquisitionCosts    `json:"acquisition"`
	Reconditioning ReconditioningCosts `json:"reconditioning"`
	Disposition    DispositionCosts    `json:"disposition"`
	BidStrategy    BidStrategy         `json:"bid_strategy"`
}

// AcquisitionInput is the flattened acquisition view for callers that already know the premium.
type AcquisitionInput struct {
	Bid              float64 `json:"bid"`
	BuyerPremium     float64 `json:"buyer_premium"`
	Transport        float64 `json:"transport"`
	ImmediateRepairs float64 `json:"immediate_repairs"`
}

type ProceedsInput struct {
	SalePrice         float64 `json:"sale_price"`
	ListingFees       float64 `json:"listing_fees"`
	PaymentProcessing float64 `json:"payment_processing"`
}

// DealAnalysis is the canonical result of a deal calculation.
// Profit and MarginPercent may be negative.
type DealAnalysis struct {
	AcquisitionCost float64 `json:"acquisition_cost"`
	NetProceeds     float64 `json:"net_proceeds"`
	Profit          float64 `json:"profit"`
	MarginPercent   float64 `json:"margin_percent"`
}

// CostBreakdown itemizes the all-in acquisition cost at one bid.
type CostBreakdown struct {
	Bid             float64 `json:"bid"`
	BuyerPremium    float64 `json:"buyer_premium"`
	SalesTax        float64 `json:"sales_tax"`
	FlatFees        float64 `json:"flat_fees"`
	NonAuctionCosts float64 `json:"non_auction_costs"`
	Contingency     float64 `json:"contingency"`
	AllIn           float64 `json:"all_in"`
}

// BidEvaluation is the forward pass of a scenario at a fixed bid.
type BidEvaluation struct {
	Cost          CostBreakdown `json:"cost"`
	NetProceeds   float64       `json:"net_proceeds"`
	Profit        float64       `json:"profit"`
	ROIPct        float64       `json:"roi_pct"`
	MarginPercent float64       `json:"margin_percent"`
}

// Constraint names what limited a solved bid.
type Constraint string

const (
	ConstrainedByTargetROI      Constraint = "targetRoi"
	ConstrainedByAbsoluteMaxBid Constraint = "absoluteMaxBid"
	ConstrainedByMinProfit      Constraint = "minProfitDollars"
	ConstrainedByUnsatisfiable  Constraint = "unsatisfiable"
)

// BidSolution is the output of SolveMaxBid.
// AchievedROIPct uses the same fractional unit as BidStrategy.TargetROIPct.
type BidSolution struct {
	MaxBid         float64    `json:"max_bid"`
	AchievedROIPct float64    `json:"achieved_roi_pct"`
	ProfitDollars  float64    `json:"profit_dollars"`
	ConstrainedBy  Constraint `json:"constrained_by"`
	AllInCost      float64    `json:"all_in_cost"`
	NetProceeds    float64    `json:"net_proceeds"`
}

// Satisfiable reports whether any bid met the solver's constraints.
func (s *BidSolution) Satisfiable() bool {
	return s != nil && s.ConstrainedBy != ConstrainedByUnsatisfiable
}
