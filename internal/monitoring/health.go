package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks liveness signals from the engine and serves them
// as a JSON health endpoint
type HealthChecker struct {
	mu            sync.RWMutex
	lastDecision  time.Time
	lastTick      time.Time
	breakerState  string
	feedConnected bool
	errors        []string
}

// HealthStatus is the JSON payload served by the health endpoint
type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	LastDecision  time.Time `json:"last_decision"`
	LastMonitorAt time.Time `json:"last_monitor_tick"`
	BreakerState  string    `json:"breaker_state"`
	FeedConnected bool      `json:"feed_connected"`
	Uptime        string    `json:"uptime"`
	Errors        []string  `json:"errors,omitempty"`
}

// NewHealthChecker creates a health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		breakerState: "NORMAL",
		errors:       make([]string, 0),
	}
}

// ServeHTTP serves the health endpoint
func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.feedConnected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if h.breakerState == "HALTED" || len(h.errors) > 0 {
		status = "unhealthy"
		code = http.StatusInternalServerError
	}

	health := HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		LastDecision:  h.lastDecision,
		LastMonitorAt: h.lastTick,
		BreakerState:  h.breakerState,
		FeedConnected: h.feedConnected,
		Uptime:        time.Since(startTime).String(),
		Errors:        h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}

// SetConnected records whether the market data feed is reachable
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feedConnected = connected
}

// RecordDecision marks the time of the latest trade validation
func (h *HealthChecker) RecordDecision() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDecision = time.Now()
}

// RecordMonitorTick marks the time of the latest scheduler tick
func (h *HealthChecker) RecordMonitorTick() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick = time.Now()
}

// SetBreakerState records the current breaker state for health reporting
func (h *HealthChecker) SetBreakerState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.breakerState = state
}

// RecordError appends an error to the health report
func (h *HealthChecker) RecordError(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, message)
	if len(h.errors) > 20 {
		h.errors = h.errors[len(h.errors)-20:]
	}
}
