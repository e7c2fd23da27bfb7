package recovery

import (
	"fmt"
	"sync"
)

// Logger is the subset of the engine logger the guard needs
type Logger interface {
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Guard wraps the periodic monitor ticks so that a panic or a run of
// failures in one sweep never kills the monitor loops. A panicking tick
// is converted into an error and counted; consecutive failures past the
// threshold trigger the escalation callback once, and any later success
// resets the counter.
type Guard struct {
	log            Logger
	maxConsecutive int
	onExhausted    func(name string, err error)

	mu        sync.Mutex
	failures  map[string]int
	escalated map[string]bool
}

// NewGuard creates a guard. maxConsecutive <= 0 defaults to 5.
// onExhausted may be nil.
func NewGuard(log Logger, maxConsecutive int, onExhausted func(name string, err error)) *Guard {
	if maxConsecutive <= 0 {
		maxConsecutive = 5
	}
	return &Guard{
		log:            log,
		maxConsecutive: maxConsecutive,
		onExhausted:    onExhausted,
		failures:       make(map[string]int),
		escalated:      make(map[string]bool),
	}
}

// Run executes fn under panic protection and failure accounting. The
// returned error is fn's error, or the recovered panic as an error.
func (g *Guard) Run(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
		g.record(name, err)
	}()

	return fn()
}

func (g *Guard) record(name string, err error) {
	g.mu.Lock()
	if err == nil {
		g.failures[name] = 0
		g.escalated[name] = false
		g.mu.Unlock()
		return
	}

	g.failures[name]++
	count := g.failures[name]
	escalate := count >= g.maxConsecutive && !g.escalated[name]
	if escalate {
		g.escalated[name] = true
	}
	g.mu.Unlock()

	if g.log != nil {
		if escalate {
			g.log.Error("%s failed %d times in a row: %v", name, count, err)
		} else {
			g.log.Warning("%s failed (%d consecutive): %v", name, count, err)
		}
	}
	if escalate && g.onExhausted != nil {
		g.onExhausted(name, err)
	}
}

// ConsecutiveFailures reports the current failure streak for an operation
func (g *Guard) ConsecutiveFailures(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[name]
}
