package portfolio

import (
	"time"

	"github.com/tygwan/risk-engine/internal/risk"
	"github.com/tygwan/risk-engine/internal/safety"
)

// Portfolio is the mutable aggregate of portfolio state. It is exclusively
// owned by the risk orchestrator: all multi-field reads and writes happen
// under the orchestrator's critical section, so the type itself carries no
// lock. Nothing outside the orchestrator may mutate it.
type Portfolio struct {
	TotalValue        float64
	OpenPositions     map[string]risk.Position
	ConsecutiveLosses int
	UpdatedAt         time.Time
}

// New creates an empty portfolio with the given starting value
func New(totalValue float64) *Portfolio {
	return &Portfolio{
		TotalValue:    totalValue,
		OpenPositions: make(map[string]risk.Position),
		UpdatedAt:     time.Now(),
	}
}

// TotalExposure returns the summed notional value of all open positions
func (p *Portfolio) TotalExposure() float64 {
	total := 0.0
	for _, pos := range p.OpenPositions {
		total += pos.Size
	}
	return total
}

// SetValue refreshes the portfolio's total value from an account snapshot
func (p *Portfolio) SetValue(value float64) {
	p.TotalValue = value
	p.UpdatedAt = time.Now()
}

// AddPosition records a newly opened position
func (p *Portfolio) AddPosition(pos risk.Position) {
	p.OpenPositions[pos.Symbol] = pos
	p.UpdatedAt = time.Now()
}

// RemovePosition drops a closed position and returns it if it existed
func (p *Portfolio) RemovePosition(symbol string) (risk.Position, bool) {
	pos, ok := p.OpenPositions[symbol]
	if ok {
		delete(p.OpenPositions, symbol)
		p.UpdatedAt = time.Now()
	}
	return pos, ok
}

// RecordOutcome tracks consecutive losses; a win resets the streak
func (p *Portfolio) RecordOutcome(win bool) {
	if win {
		p.ConsecutiveLosses = 0
	} else {
		p.ConsecutiveLosses++
	}
	p.UpdatedAt = time.Now()
}

// Snapshot is an immutable copy of portfolio state for persistence and
// reporting, safe to use outside the orchestrator's lock
type Snapshot struct {
	TotalValue        float64                  `json:"total_value"`
	PeakValue         float64                  `json:"peak_value"`
	BreakerState      string                   `json:"breaker_state"`
	Drawdown          float64                  `json:"drawdown"`
	OpenPositions     map[string]risk.Position `json:"open_positions"`
	ConsecutiveLosses int                      `json:"consecutive_losses"`
	TotalExposure     float64                  `json:"total_exposure"`
	Timestamp         time.Time                `json:"timestamp"`
}

// Snapshot copies the current state together with breaker-derived fields.
// Must be called under the orchestrator's lock.
func (p *Portfolio) Snapshot(state safety.BreakerState, peak, drawdown float64) Snapshot {
	positions := make(map[string]risk.Position, len(p.OpenPositions))
	for symbol, pos := range p.OpenPositions {
		positions[symbol] = pos
	}

	return Snapshot{
		TotalValue:        p.TotalValue,
		PeakValue:         peak,
		BreakerState:      state.String(),
		Drawdown:          drawdown,
		OpenPositions:     positions,
		ConsecutiveLosses: p.ConsecutiveLosses,
		TotalExposure:     p.TotalExposure(),
		Timestamp:         time.Now(),
	}
}
