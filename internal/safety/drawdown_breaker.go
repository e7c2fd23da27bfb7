package safety

import (
	"sync"
	"time"
)

// BreakerState represents the state of the drawdown circuit breaker
type BreakerState int

const (
	StateNormal BreakerState = iota
	StateWarning
	StateDanger
	StateHalted
)

// String returns the string representation of the breaker state
func (s BreakerState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateWarning:
		return "WARNING"
	case StateDanger:
		return "DANGER"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// Update is the result of feeding a portfolio value into the breaker
type Update struct {
	State     BreakerState
	Previous  BreakerState
	Drawdown  float64
	PeakValue float64
	Timestamp time.Time
}

// DrawdownBreaker is a multi-level circuit breaker tracking portfolio
// drawdown from its historical peak.
//
// States escalate at 0.50×, 0.75× and 1.0× of the configured maximum
// drawdown. Transitions are not sticky downward except into HALTED: the
// state recovers as value recovers, but once HALTED it stays HALTED until
// an explicit operator reset. There is no automatic re-entry.
type DrawdownBreaker struct {
	maxDrawdownPct float64

	mu            sync.RWMutex
	state         BreakerState
	peakValue     float64
	lastDrawdown  float64
	haltedAt      time.Time
	onStateChange func(from, to BreakerState)
}

// NewDrawdownBreaker creates a breaker that halts at the given maximum
// drawdown fraction
func NewDrawdownBreaker(maxDrawdownPct float64) *DrawdownBreaker {
	return &DrawdownBreaker{
		maxDrawdownPct: maxDrawdownPct,
		state:          StateNormal,
	}
}

// SetStateChangeCallback registers a callback invoked on every state
// transition. The callback runs outside the breaker's lock.
func (b *DrawdownBreaker) SetStateChangeCallback(callback func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = callback
}

// RestorePeak seeds the peak value from persisted state. The peak only
// moves upward: restoring a lower value than the current peak is a no-op,
// which keeps the monotonic invariant across restarts.
func (b *DrawdownBreaker) RestorePeak(peak float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if peak > b.peakValue {
		b.peakValue = peak
	}
}

// RestoreHalted forces the breaker into HALTED, used when persisted state
// records a halt from a previous run
func (b *DrawdownBreaker) RestoreHalted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateHalted
	b.haltedAt = time.Now()
}

// Update feeds the current portfolio value through the transition function
// and returns the resulting state and drawdown
func (b *DrawdownBreaker) Update(currentValue float64) Update {
	b.mu.Lock()

	if currentValue > b.peakValue {
		b.peakValue = currentValue
	}

	drawdown := 0.0
	if b.peakValue > 0 {
		drawdown = (b.peakValue - currentValue) / b.peakValue
	}
	b.lastDrawdown = drawdown

	previous := b.state
	next := b.nextState(drawdown)
	b.state = next
	if next == StateHalted && previous != StateHalted {
		b.haltedAt = time.Now()
	}

	callback := b.onStateChange
	peak := b.peakValue
	b.mu.Unlock()

	if callback != nil && previous != next {
		callback(previous, next)
	}

	return Update{
		State:     next,
		Previous:  previous,
		Drawdown:  drawdown,
		PeakValue: peak,
		Timestamp: time.Now(),
	}
}

// boundaryTolerance absorbs float rounding in the threshold products so
// a drawdown exactly at a tier boundary lands in the stricter tier
// (0.75 × 0.20 must still classify a 0.15 drawdown as DANGER)
const boundaryTolerance = 1e-9

// nextState applies the threshold ladder. HALTED is terminal.
func (b *DrawdownBreaker) nextState(drawdown float64) BreakerState {
	if b.state == StateHalted {
		return StateHalted
	}

	switch {
	case drawdown >= b.maxDrawdownPct-boundaryTolerance:
		return StateHalted
	case drawdown >= 0.75*b.maxDrawdownPct-boundaryTolerance:
		return StateDanger
	case drawdown >= 0.50*b.maxDrawdownPct-boundaryTolerance:
		return StateWarning
	default:
		return StateNormal
	}
}

// State returns the current breaker state
func (b *DrawdownBreaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// PeakValue returns the monotonically non-decreasing peak portfolio value
func (b *DrawdownBreaker) PeakValue() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.peakValue
}

// Drawdown returns the drawdown observed on the last update
func (b *DrawdownBreaker) Drawdown() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastDrawdown
}

// Reset clears a HALTED state back to NORMAL. This is the manual operator
// action deliberately kept off the trading API: callers must wire it to an
// audited, human-triggered path, never to automated recovery.
func (b *DrawdownBreaker) Reset() {
	b.mu.Lock()
	previous := b.state
	b.state = StateNormal
	callback := b.onStateChange
	b.mu.Unlock()

	if callback != nil && previous != StateNormal {
		callback(previous, StateNormal)
	}
}
