package risk

import (
	"math"
	"sync"
)

// PerformanceTracker records completed trade outcomes and periodically
// recomputes the TradingMetrics snapshot consumed by the position sizer.
//
// The recalculation cadence (every N trades, typically 50-100) is a
// scheduling policy of this tracker, not part of the sizer's contract: the
// sizer always reads whatever snapshot is current.
type PerformanceTracker struct {
	mu          sync.RWMutex
	returns     []float64
	recalcEvery int
	sinceRecalc int
	current     TradingMetrics
	maxHistory  int
}

// NewPerformanceTracker creates a tracker that refreshes its metrics
// snapshot every recalcEvery trades. Values outside [1,1000] fall back
// to 50.
func NewPerformanceTracker(recalcEvery int) *PerformanceTracker {
	if recalcEvery < 1 || recalcEvery > 1000 {
		recalcEvery = 50
	}
	return &PerformanceTracker{
		recalcEvery: recalcEvery,
		maxHistory:  1000,
	}
}

// Seed replaces the current snapshot, typically from a trade-history store
// at startup
func (t *PerformanceTracker) Seed(metrics TradingMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = metrics
}

// RecordTrade records the signed return fraction of a completed trade.
// The metrics snapshot is recomputed once the cadence is reached.
func (t *PerformanceTracker) RecordTrade(returnPct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.returns = append(t.returns, returnPct)
	if len(t.returns) > t.maxHistory {
		t.returns = t.returns[len(t.returns)-t.maxHistory:]
	}

	t.sinceRecalc++
	if t.sinceRecalc >= t.recalcEvery {
		t.current = computeMetrics(t.returns)
		t.sinceRecalc = 0
	}
}

// Metrics returns the current metrics snapshot
func (t *PerformanceTracker) Metrics() TradingMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Recalculate forces an immediate snapshot refresh regardless of cadence
func (t *PerformanceTracker) Recalculate() TradingMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = computeMetrics(t.returns)
	t.sinceRecalc = 0
	return t.current
}

func computeMetrics(returns []float64) TradingMetrics {
	metrics := TradingMetrics{TotalTrades: len(returns)}

	winSum, lossSum := 0.0, 0.0
	for _, r := range returns {
		if r > 0 {
			metrics.Wins++
			winSum += r
		} else if r < 0 {
			metrics.Losses++
			lossSum += r
		}
	}

	if metrics.Wins > 0 {
		metrics.AvgWinReturn = winSum / float64(metrics.Wins)
	}
	if metrics.Losses > 0 {
		metrics.AvgLossReturn = lossSum / float64(metrics.Losses)
	}

	// Guard against pathological inputs producing NaN averages
	if math.IsNaN(metrics.AvgWinReturn) {
		metrics.AvgWinReturn = 0
	}
	if math.IsNaN(metrics.AvgLossReturn) {
		metrics.AvgLossReturn = 0
	}

	return metrics
}
