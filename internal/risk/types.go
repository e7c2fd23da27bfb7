package risk

import "time"

// Side represents the direction of a position or trade intent
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// TradingMetrics is an immutable snapshot of historical trading performance.
// It is recomputed periodically (see PerformanceTracker) and consumed by the
// position sizer; nothing in this package mutates it after creation.
type TradingMetrics struct {
	TotalTrades   int
	Wins          int
	Losses        int
	AvgWinReturn  float64 // average winning trade return, e.g. 0.05 = 5%
	AvgLossReturn float64 // average losing trade return, signed, e.g. -0.03
}

// WinRate returns the historical win rate, or 0 if there is no history
func (m TradingMetrics) WinRate() float64 {
	if m.TotalTrades == 0 {
		return 0
	}
	return float64(m.Wins) / float64(m.TotalTrades)
}

// Position represents an open leveraged position being monitored
type Position struct {
	Symbol        string
	Side          Side
	EntryPrice    float64
	Size          float64 // position value in quote currency
	Leverage      float64
	InitialMargin float64
	OpenedAt      time.Time
}

// TradeIntent is a proposed trade submitted for risk validation.
// The engine never executes intents; it only approves or rejects them.
type TradeIntent struct {
	Symbol     string
	Side       Side
	Size       float64 // intended position value in quote currency
	Price      float64
	Leverage   float64 // 1.0 for spot
	OnChain    bool    // true if settled on-chain (gas costs apply)
	Reducing   bool    // true if this trade reduces existing exposure
	Confidence float64 // signal confidence in [0,1]

	// Cost gate input supplied by the caller's strategy layer
	ExpectedProfit float64

	// Gas parameters, required when OnChain is set
	Gas *GasParams
}

// GasParams carries the on-chain cost inputs for an intent. Fetching the
// current base fee and native token price is the caller's job.
type GasParams struct {
	TxType           TxType
	Speed            GasSpeed
	BaseFeeGwei      float64
	NativePriceQuote float64 // native token price in the portfolio's currency
}

// IsLeveraged reports whether the intent opens or extends a leveraged position
func (i TradeIntent) IsLeveraged() bool {
	return i.Leverage > 1.0
}

// RuleKind identifies which risk rule rejected a trade
type RuleKind string

const (
	RuleInsufficientEdge    RuleKind = "INSUFFICIENT_EDGE"
	RuleExposureCapExceeded RuleKind = "EXPOSURE_CAP_EXCEEDED"
	RuleLiquidationRisk     RuleKind = "LIQUIDATION_RISK_TOO_HIGH"
	RuleCostUneconomical    RuleKind = "COST_UNECONOMICAL"
	RuleExcessiveSlippage   RuleKind = "EXCESSIVE_SLIPPAGE"
	RuleTradingHalted       RuleKind = "TRADING_HALTED"
)

// RiskAssessment is the result of validating a single trade intent.
// Produced fresh per call and never mutated after return.
type RiskAssessment struct {
	ID              string
	Approved        bool
	ViolatedRule    RuleKind // empty when approved
	RiskScore       float64  // 0.0 (benign) to 1.0 (maximal)
	RecommendedSize float64
	Reason          string
	Timestamp       time.Time
}
