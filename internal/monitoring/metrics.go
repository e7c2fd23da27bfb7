package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decision metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_decisions_total",
			Help: "Total number of trade validations by outcome",
		},
		[]string{"symbol", "outcome", "rule"},
	)

	recommendedSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risk_engine_recommended_size",
			Help:    "Distribution of recommended position sizes",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
		[]string{"symbol"},
	)

	// Breaker metrics
	breakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_breaker_state",
			Help: "Drawdown breaker state (0=NORMAL 1=WARNING 2=DANGER 3=HALTED)",
		},
	)

	drawdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risk_engine_drawdown",
			Help: "Current portfolio drawdown from peak",
		},
	)

	// Liquidation metrics
	liquidationTier = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "risk_engine_liquidation_tier",
			Help: "Liquidation risk tier per position (0=SAFE 1=WARNING 2=DANGER 3=CRITICAL)",
		},
		[]string{"symbol"},
	)

	// Alert metrics
	alertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_engine_alerts_total",
			Help: "Total number of alerts emitted",
		},
		[]string{"severity", "rule"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(recommendedSize)
	prometheus.MustRegister(breakerState)
	prometheus.MustRegister(drawdown)
	prometheus.MustRegister(liquidationTier)
	prometheus.MustRegister(alertsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordDecision records a validate-trade outcome
func RecordDecision(symbol string, approved bool, rule string, size float64) {
	outcome := "approved"
	if !approved {
		outcome = "rejected"
	}
	decisionsTotal.WithLabelValues(symbol, outcome, rule).Inc()
	if size > 0 {
		recommendedSize.WithLabelValues(symbol).Observe(size)
	}
}

// UpdateBreaker updates the breaker state and drawdown gauges
func UpdateBreaker(state int, currentDrawdown float64) {
	breakerState.Set(float64(state))
	drawdown.Set(currentDrawdown)
}

// UpdateLiquidationTier updates the per-symbol liquidation tier gauge
func UpdateLiquidationTier(symbol string, tier int) {
	liquidationTier.WithLabelValues(symbol).Set(float64(tier))
}

// ClearLiquidationTier removes the gauge for a closed position
func ClearLiquidationTier(symbol string) {
	liquidationTier.DeleteLabelValues(symbol)
}

// RecordAlert records an emitted alert
func RecordAlert(severity, rule string) {
	alertsTotal.WithLabelValues(severity, rule).Inc()
}
