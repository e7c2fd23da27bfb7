package risk

import (
	"math"

	"github.com/tygwan/risk-engine/internal/exchange"
)

// CostGate rejects trades whose expected profit does not clear transaction
// cost and slippage thresholds. It is a pure gate: it never mutates shared
// state and holds only its configuration.
type CostGate struct {
	minProfitToCostRatio float64
	maxSlippagePct       float64
}

// NewCostGate creates a cost gate with the given profit-to-cost ratio floor
// and slippage ceiling
func NewCostGate(minProfitToCostRatio, maxSlippagePct float64) *CostGate {
	return &CostGate{
		minProfitToCostRatio: minProfitToCostRatio,
		maxSlippagePct:       maxSlippagePct,
	}
}

// CostCheck is the outcome of a cost gate evaluation, kept for reporting
type CostCheck struct {
	Execute     bool
	ProfitRatio float64
	Slippage    float64
	Cost        float64
	Reason      string
}

// ShouldExecute decides whether a trade is economically worth executing.
// Execution requires both:
//
//	expected_profit / estimated_cost ≥ min_profit_to_cost_ratio
//	slippage ≤ max_slippage_pct
//
// A slippage of +Inf (insufficient book depth) always fails the gate.
func (g *CostGate) ShouldExecute(expectedProfit, estimatedCost, slippage float64) CostCheck {
	check := CostCheck{
		Slippage: slippage,
		Cost:     estimatedCost,
	}

	if math.IsInf(slippage, 1) || slippage > g.maxSlippagePct {
		check.Reason = "slippage exceeds tolerance"
		return check
	}

	if estimatedCost <= 0 {
		// Free execution: only profit sign matters
		check.ProfitRatio = math.Inf(1)
		check.Execute = expectedProfit > 0
		if !check.Execute {
			check.Reason = "no expected profit"
		}
		return check
	}

	check.ProfitRatio = expectedProfit / estimatedCost
	if check.ProfitRatio < g.minProfitToCostRatio {
		check.Reason = "profit does not clear cost threshold"
		return check
	}

	check.Execute = true
	return check
}

// EstimateSlippage estimates the fractional slippage for filling orderSize
// (in base asset) by walking the book from the best price outward.
//
// The weighted average fill price against the best price gives the slippage.
// If the book does not hold enough depth to fill the order, +Inf is
// returned. That signals "do not execute", not an error.
func (g *CostGate) EstimateSlippage(orderSize float64, book *exchange.OrderBook, side Side) float64 {
	if book == nil || orderSize <= 0 {
		return math.Inf(1)
	}

	// Buying walks the asks, selling walks the bids
	levels := book.Asks
	if side == SideShort {
		levels = book.Bids
	}
	if len(levels) == 0 {
		return math.Inf(1)
	}

	bestPrice := levels[0].Price
	if bestPrice <= 0 {
		return math.Inf(1)
	}

	remaining := orderSize
	cost := 0.0
	for _, level := range levels {
		fill := math.Min(remaining, level.Quantity)
		cost += fill * level.Price
		remaining -= fill
		if remaining <= 0 {
			break
		}
	}

	if remaining > 0 {
		return math.Inf(1)
	}

	avgFill := cost / orderSize
	return math.Abs(avgFill-bestPrice) / bestPrice
}

// VenueCost returns the total venue fee for a trade of the given notional
// value, assuming taker execution unless maker is set
func VenueCost(notional float64, fees exchange.FeeSchedule, maker bool) float64 {
	rate := fees.TakerRate
	if maker {
		rate = fees.MakerRate
	}
	return notional * rate
}
