package risk

import "math"

// KellySizer calculates recommended position sizes using the Kelly Criterion.
// All methods are pure; the sizer holds only its configuration.
type KellySizer struct {
	fractionalKelly float64
	maxPositionPct  float64
}

// NewKellySizer creates a position sizer with the given fractional Kelly
// multiplier (in (0,1]) and maximum position percentage cap
func NewKellySizer(fractionalKelly, maxPositionPct float64) *KellySizer {
	return &KellySizer{
		fractionalKelly: fractionalKelly,
		maxPositionPct:  maxPositionPct,
	}
}

// RawKelly calculates the raw Kelly percentage from historical metrics.
// Formula: ((win_rate × avg_win) − (loss_rate × |avg_loss|)) / avg_win
//
// A negative edge is clamped to zero: the sizer never recommends betting
// against the strategy. An avg_win of zero is a defined edge case that
// yields zero, not an error.
func (s *KellySizer) RawKelly(metrics TradingMetrics) float64 {
	if metrics.TotalTrades == 0 || metrics.AvgWinReturn == 0 {
		return 0
	}

	winRate := metrics.WinRate()
	lossRate := 1.0 - winRate

	kelly := (winRate*metrics.AvgWinReturn - lossRate*math.Abs(metrics.AvgLossReturn)) / metrics.AvgWinReturn

	return math.Max(0, kelly)
}

// Size returns the recommended position value in quote currency.
//
// The raw Kelly fraction is scaled down by the fractional Kelly multiplier
// and the signal confidence, then capped at the maximum position percentage:
//
//	adjusted = raw_kelly × fractional_kelly × confidence
//	final    = min(adjusted, max_position_pct)
//	size     = portfolio_value × final
func (s *KellySizer) Size(metrics TradingMetrics, portfolioValue, signalConfidence float64) float64 {
	if portfolioValue <= 0 {
		return 0
	}
	if signalConfidence < 0 {
		signalConfidence = 0
	}
	if signalConfidence > 1 {
		signalConfidence = 1
	}

	adjusted := s.RawKelly(metrics) * s.fractionalKelly * signalConfidence
	finalPct := math.Min(adjusted, s.maxPositionPct)

	return portfolioValue * finalPct
}
