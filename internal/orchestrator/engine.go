package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tygwan/risk-engine/internal/config"
	engineerrors "github.com/tygwan/risk-engine/internal/errors"
	"github.com/tygwan/risk-engine/internal/exchange"
	"github.com/tygwan/risk-engine/internal/logger"
	"github.com/tygwan/risk-engine/internal/monitoring"
	"github.com/tygwan/risk-engine/internal/notifications"
	"github.com/tygwan/risk-engine/internal/portfolio"
	"github.com/tygwan/risk-engine/internal/risk"
	"github.com/tygwan/risk-engine/internal/safety"
	"github.com/tygwan/risk-engine/internal/state"
)

// sizeRoundingTolerance is the relative slack applied when comparing an
// intent size against the sizer's recommendation
const sizeRoundingTolerance = 1e-9

// Engine composes the risk rule checks into the single validate-trade
// entry point and exclusively owns the shared portfolio state.
//
// One mutex guards the portfolio for every multi-field read-modify-write:
// validate calls, position bookkeeping and the scheduler's monitor sweeps
// all serialize on it, so two concurrent validations can never double-count
// the same exposure budget. Alerts raised under the lock are queued and
// dispatched only after the lock is released.
type Engine struct {
	cfg config.RiskConfig

	mu      sync.Mutex
	pf      *portfolio.Portfolio
	breaker *safety.DrawdownBreaker

	// Exposure reserved by approved-but-not-yet-executed intents, keyed
	// by assessment ID. Guarded by mu. Without this, two concurrent
	// validations could both be approved against the same budget.
	reserved      map[string]float64
	reservedTotal float64

	// Latest liquidation assessment per symbol from the last monitor
	// sweep. Guarded by mu.
	lastLiquidation map[string]risk.LiquidationAssessment

	sizer    *risk.KellySizer
	gate     *risk.CostGate
	gas      *risk.GasEstimator
	tracker  *risk.PerformanceTracker
	sandwich *risk.SandwichDetector

	books     exchange.OrderBookProvider
	bookDepth int
	fees      exchange.FeeSchedule

	dispatcher *notifications.Dispatcher
	store      *state.Store
	log        *logger.Logger
	health     *monitoring.HealthChecker
}

// Options carries the optional collaborators for the engine. Nil fields
// disable the corresponding integration.
type Options struct {
	OrderBooks     exchange.OrderBookProvider
	OrderBookDepth int
	Fees           exchange.FeeSchedule
	Dispatcher     *notifications.Dispatcher
	Store          *state.Store
	Logger         *logger.Logger
	Health         *monitoring.HealthChecker
	Tracker        *risk.PerformanceTracker
}

// NewEngine creates a risk engine for a portfolio with the given starting
// value. The configuration must already be validated.
func NewEngine(cfg config.RiskConfig, startingValue float64, opts Options) *Engine {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = risk.NewPerformanceTracker(cfg.MetricsRecalcTrades)
	}

	depth := opts.OrderBookDepth
	if depth <= 0 {
		depth = 25
	}

	e := &Engine{
		cfg:             cfg,
		pf:              portfolio.New(startingValue),
		breaker:         safety.NewDrawdownBreaker(cfg.MaxDrawdownPct),
		reserved:        make(map[string]float64),
		lastLiquidation: make(map[string]risk.LiquidationAssessment),
		sizer:           risk.NewKellySizer(cfg.FractionalKelly, cfg.MaxPositionPct),
		gate:            risk.NewCostGate(cfg.MinProfitToCostRatio, cfg.MaxSlippagePct),
		gas:             risk.NewGasEstimator(),
		tracker:         tracker,
		sandwich:        risk.NewSandwichDetector(risk.FractionLossEstimator{Fraction: cfg.MEVLossFraction}),
		books:           opts.OrderBooks,
		bookDepth:       depth,
		fees:            opts.Fees,
		dispatcher:      opts.Dispatcher,
		store:           opts.Store,
		log:             opts.Logger,
		health:          opts.Health,
	}

	// Seed the peak with the starting value so drawdown is measured from
	// the first observation
	e.breaker.Update(startingValue)

	return e
}

// Restore replays persisted state into the engine: the peak value is
// restored first so it stays monotonic across restarts, then positions and
// a halted breaker if the previous session tripped it.
func (e *Engine) Restore(persisted *state.EngineState) {
	if persisted == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.breaker.RestorePeak(persisted.Portfolio.PeakValue)
	if persisted.Portfolio.TotalValue > 0 {
		e.pf.SetValue(persisted.Portfolio.TotalValue)
	}
	for _, pos := range persisted.Portfolio.OpenPositions {
		e.pf.AddPosition(pos)
	}
	e.pf.ConsecutiveLosses = persisted.Portfolio.ConsecutiveLosses

	if persisted.Portfolio.BreakerState == safety.StateHalted.String() {
		e.breaker.RestoreHalted()
	}
}

// ValidateTrade runs the ordered rule checks against a trade intent and
// returns a fresh RiskAssessment. Rule rejections are values, not errors;
// an error return means a true fault (invalid input or a market data feed
// that could not be reached), which the caller may treat as a conservative
// auto-reject.
//
// Check order is normative: breaker gate, sizer cap, exposure cap,
// liquidation tier for leveraged intents, cost gate. The first failure
// short-circuits.
func (e *Engine) ValidateTrade(ctx context.Context, intent risk.TradeIntent) (risk.RiskAssessment, error) {
	if err := e.validateIntent(intent); err != nil {
		return risk.RiskAssessment{}, err
	}

	// The order book fetch is external I/O, so it happens before the
	// critical section; only the depth walk runs under the lock.
	book, err := e.fetchBook(ctx, intent)
	if err != nil {
		return risk.RiskAssessment{}, err
	}

	e.mu.Lock()
	assessment, alerts := e.evaluate(intent, book)
	e.mu.Unlock()

	e.finishAssessment(intent, &assessment, alerts)
	return assessment, nil
}

func (e *Engine) validateIntent(intent risk.TradeIntent) error {
	if intent.Symbol == "" {
		return engineerrors.NewValidationError("engine", "validate_trade", "intent symbol is empty")
	}
	if intent.Size <= 0 {
		return engineerrors.NewValidationError("engine", "validate_trade", "intent size must be positive")
	}
	if intent.Price <= 0 {
		return engineerrors.NewValidationError("engine", "validate_trade", "intent price must be positive")
	}
	if intent.OnChain && intent.Gas == nil {
		return engineerrors.NewValidationError("engine", "validate_trade", "on-chain intent is missing gas parameters")
	}
	return nil
}

func (e *Engine) fetchBook(ctx context.Context, intent risk.TradeIntent) (*exchange.OrderBook, error) {
	if e.books == nil {
		return nil, nil
	}

	book, err := e.books.GetOrderBook(ctx, intent.Symbol, e.bookDepth)
	if err != nil {
		return nil, engineerrors.NewDataUnavailableError("engine", "fetch_order_book", err)
	}
	return book, nil
}

// evaluate runs the rule pipeline. Caller must hold e.mu.
func (e *Engine) evaluate(intent risk.TradeIntent, book *exchange.OrderBook) (risk.RiskAssessment, []notifications.Alert) {
	var alerts []notifications.Alert

	assessment := risk.RiskAssessment{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}

	breakerState := e.breaker.State()

	// Risk-reducing trades stay allowed while the breaker is tripped:
	// blocking them would stop the engine from de-risking itself.
	if intent.Reducing {
		assessment.Approved = true
		assessment.RecommendedSize = intent.Size
		assessment.RiskScore = e.riskScore(intent)
		assessment.Reason = "risk-reducing trade"
		return assessment, alerts
	}

	// (1) breaker gate
	if breakerState != safety.StateNormal {
		assessment.ViolatedRule = risk.RuleTradingHalted
		assessment.Reason = fmt.Sprintf("breaker state %s blocks new exposure", breakerState)
		return assessment, alerts
	}

	// (2) sizer-derived cap. The comparison tolerates float rounding in
	// the Kelly arithmetic so an intent exactly at the recommendation is
	// not rejected.
	recommended := e.sizer.Size(e.tracker.Metrics(), e.pf.TotalValue, intent.Confidence)
	assessment.RecommendedSize = recommended
	if recommended <= 0 {
		assessment.ViolatedRule = risk.RuleInsufficientEdge
		assessment.Reason = "historical edge does not support any position"
		return assessment, alerts
	}
	if intent.Size > recommended*e.cfg.SizeTolerance*(1+sizeRoundingTolerance) {
		assessment.ViolatedRule = risk.RuleInsufficientEdge
		assessment.Reason = fmt.Sprintf("intent size %.2f exceeds recommended %.2f", intent.Size, recommended)
		return assessment, alerts
	}

	// (3) total exposure cap, counting exposure already reserved by
	// earlier approvals that have not executed yet
	projected := e.pf.TotalExposure() + e.reservedTotal + intent.Size
	limit := e.cfg.MaxTotalExposurePct * e.pf.TotalValue
	if projected > limit {
		assessment.ViolatedRule = risk.RuleExposureCapExceeded
		assessment.Reason = fmt.Sprintf("projected exposure %.2f exceeds cap %.2f", projected, limit)
		alerts = append(alerts, notifications.NewAlert(notifications.SeverityWarning,
			string(risk.RuleExposureCapExceeded),
			"rejected %s %s: projected exposure %.2f over cap %.2f",
			intent.Symbol, intent.Side, projected, limit).
			WithContext("symbol", intent.Symbol))
		return assessment, alerts
	}

	// (4) liquidation tier for leveraged intents
	if intent.IsLeveraged() {
		hypothetical := risk.Position{
			Symbol:        intent.Symbol,
			Side:          intent.Side,
			EntryPrice:    intent.Price,
			Size:          intent.Size,
			Leverage:      intent.Leverage,
			InitialMargin: intent.Size / intent.Leverage,
		}
		liq := risk.AssessLiquidation(hypothetical, intent.Price)
		minDistance := risk.MinimumOpenDistance(e.cfg.LiquidationBufferPct)
		if liq.DistancePct < minDistance {
			assessment.ViolatedRule = risk.RuleLiquidationRisk
			assessment.Reason = fmt.Sprintf("liquidation distance %.1f%% below required %.1f%% (tier %s)",
				liq.DistancePct*100, minDistance*100, liq.Tier)
			return assessment, alerts
		}
	}

	// (5) cost gate
	if intent.Size < e.cfg.MinNotional {
		assessment.ViolatedRule = risk.RuleCostUneconomical
		assessment.Reason = fmt.Sprintf("notional %.2f below minimum %.2f", intent.Size, e.cfg.MinNotional)
		return assessment, alerts
	}

	slippage := math.Inf(1)
	if book != nil {
		baseSize := intent.Size / intent.Price
		slippage = e.gate.EstimateSlippage(baseSize, book, intent.Side)
	} else if e.books == nil {
		// No order book collaborator configured: skip the slippage leg
		slippage = 0
	}

	cost := e.estimateCost(intent)
	check := e.gate.ShouldExecute(intent.ExpectedProfit, cost, slippage)
	if !check.Execute {
		if math.IsInf(check.Slippage, 1) || check.Slippage > e.cfg.MaxSlippagePct {
			assessment.ViolatedRule = risk.RuleExcessiveSlippage
		} else {
			assessment.ViolatedRule = risk.RuleCostUneconomical
		}
		assessment.Reason = check.Reason
		return assessment, alerts
	}

	assessment.Approved = true
	assessment.RiskScore = e.riskScore(intent)
	assessment.Reason = "all risk checks passed"

	// Reserve the approved exposure until the caller either opens the
	// position or releases the reservation
	e.reserved[assessment.ID] = intent.Size
	e.reservedTotal += intent.Size

	return assessment, alerts
}

// ReleaseReservation frees the exposure reserved by an approved assessment
// whose trade was never executed
func (e *Engine) ReleaseReservation(assessmentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked(assessmentID)
}

func (e *Engine) releaseLocked(assessmentID string) {
	if size, ok := e.reserved[assessmentID]; ok {
		delete(e.reserved, assessmentID)
		e.reservedTotal -= size
		if e.reservedTotal < 0 {
			e.reservedTotal = 0
		}
	}
}

// estimateCost returns the expected execution cost of the intent: venue
// fees for exchange trades, gas for on-chain trades
func (e *Engine) estimateCost(intent risk.TradeIntent) float64 {
	if intent.OnChain {
		g := intent.Gas
		return e.gas.EstimateCost(g.TxType, g.Speed, g.BaseFeeGwei, g.NativePriceQuote)
	}
	return risk.VenueCost(intent.Size, e.fees, false)
}

// riskScore blends the current drawdown pressure, exposure utilization and
// signal confidence into a coarse 0..1 score. Caller must hold e.mu.
func (e *Engine) riskScore(intent risk.TradeIntent) float64 {
	score := 0.0

	if e.cfg.MaxDrawdownPct > 0 {
		score += 0.5 * math.Min(1, e.breaker.Drawdown()/e.cfg.MaxDrawdownPct)
	}
	if limit := e.cfg.MaxTotalExposurePct * e.pf.TotalValue; limit > 0 {
		score += 0.3 * math.Min(1, (e.pf.TotalExposure()+intent.Size)/limit)
	}
	score += 0.2 * (1 - math.Min(1, math.Max(0, intent.Confidence)))

	return score
}

// finishAssessment performs all post-lock bookkeeping: alert dispatch,
// metrics, audit trail and logging
func (e *Engine) finishAssessment(intent risk.TradeIntent, assessment *risk.RiskAssessment, alerts []notifications.Alert) {
	for _, alert := range alerts {
		e.emit(alert)
	}

	monitoring.RecordDecision(intent.Symbol, assessment.Approved, string(assessment.ViolatedRule), assessment.RecommendedSize)

	if e.health != nil {
		e.health.RecordDecision()
	}
	if e.store != nil {
		e.store.RecordAssessment(*assessment)
	}
	if e.log != nil {
		if assessment.Approved {
			e.log.Decision("approved %s %s size=%.2f score=%.2f", intent.Symbol, intent.Side, intent.Size, assessment.RiskScore)
		} else {
			e.log.Decision("rejected %s %s rule=%s: %s", intent.Symbol, intent.Side, assessment.ViolatedRule, assessment.Reason)
		}
	}
}

func (e *Engine) emit(alert notifications.Alert) {
	monitoring.RecordAlert(string(alert.Severity), alert.Rule)
	if e.log != nil {
		e.log.Alert("[%s] %s: %s", alert.Severity, alert.Rule, alert.Message)
	}
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(alert)
	}
}

// CurrentBreakerState returns the breaker state, read-only
func (e *Engine) CurrentBreakerState() safety.BreakerState {
	return e.breaker.State()
}

// OpenPosition records a newly opened position after the caller executed
// an approved trade. The assessment's exposure reservation is converted
// into real position exposure.
func (e *Engine) OpenPosition(assessmentID string, pos risk.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseLocked(assessmentID)
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = time.Now()
	}
	e.pf.AddPosition(pos)
}

// ClosePosition removes a position and records its outcome. The return
// fraction feeds the performance tracker that drives future sizing.
func (e *Engine) ClosePosition(symbol string, returnPct float64) {
	e.mu.Lock()
	_, existed := e.pf.RemovePosition(symbol)
	if existed {
		e.pf.RecordOutcome(returnPct > 0)
		delete(e.lastLiquidation, symbol)
	}
	e.mu.Unlock()

	if existed {
		e.tracker.RecordTrade(returnPct)
		monitoring.ClearLiquidationTier(symbol)
	}
}

// SetPortfolioValue refreshes the total value from an account snapshot and
// advances the drawdown breaker. Returns the breaker update so callers can
// react to a halt.
func (e *Engine) SetPortfolioValue(value float64) safety.Update {
	e.mu.Lock()
	e.pf.SetValue(value)
	update := e.breaker.Update(value)
	var alerts []notifications.Alert
	if update.State != update.Previous {
		alerts = append(alerts, e.breakerAlert(update))
	}
	e.mu.Unlock()

	for _, alert := range alerts {
		e.emit(alert)
	}

	monitoring.UpdateBreaker(int(update.State), update.Drawdown)
	if e.health != nil {
		e.health.SetBreakerState(update.State.String())
	}

	return update
}

func (e *Engine) breakerAlert(update safety.Update) notifications.Alert {
	severity := notifications.SeverityWarning
	if update.State == safety.StateHalted {
		severity = notifications.SeverityCritical
	}
	return notifications.NewAlert(severity, "DRAWDOWN_BREAKER",
		"breaker %s → %s at %.2f%% drawdown (peak %.2f)",
		update.Previous, update.State, update.Drawdown*100, update.PeakValue)
}

// OpenSymbols lists the symbols with open positions
func (e *Engine) OpenSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	symbols := make([]string, 0, len(e.pf.OpenPositions))
	for symbol := range e.pf.OpenPositions {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// AssessPositions evaluates liquidation risk for every open position with
// a current price in prices, raising alerts for DANGER and CRITICAL tiers.
// Prices are fetched by the caller outside the critical section.
func (e *Engine) AssessPositions(prices map[string]float64) []risk.LiquidationAssessment {
	e.mu.Lock()
	var results []risk.LiquidationAssessment
	var alerts []notifications.Alert

	for symbol, pos := range e.pf.OpenPositions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue
		}

		liq := risk.AssessLiquidation(pos, price)
		results = append(results, liq)
		e.lastLiquidation[symbol] = liq

		if liq.Tier >= risk.TierDanger {
			severity := notifications.SeverityWarning
			if liq.Tier == risk.TierCritical {
				severity = notifications.SeverityCritical
			}
			alerts = append(alerts, notifications.NewAlert(severity, "LIQUIDATION_RISK",
				"%s %.1f%% from liquidation (%s, action %s)",
				symbol, liq.DistancePct*100, liq.Tier, liq.Action).
				WithContext("symbol", symbol).
				WithContext("liquidation_price", fmt.Sprintf("%.2f", liq.LiquidationPrice)))
		}
	}
	e.mu.Unlock()

	for _, alert := range alerts {
		e.emit(alert)
	}
	for _, liq := range results {
		monitoring.UpdateLiquidationTier(liq.Symbol, int(liq.Tier))
	}

	return results
}

// Metrics returns the current performance metrics snapshot
func (e *Engine) Metrics() risk.TradingMetrics {
	return e.tracker.Metrics()
}

// RiskSummary counts open positions by their latest liquidation tier.
// Positions never swept since opening are not counted.
func (e *Engine) RiskSummary() map[risk.LiquidationTier]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	summary := make(map[risk.LiquidationTier]int)
	for _, liq := range e.lastLiquidation {
		summary[liq.Tier]++
	}
	return summary
}

// LatestAssessments copies the most recent liquidation assessment per
// symbol, for the reporting layer
func (e *Engine) LatestAssessments() map[string]risk.LiquidationAssessment {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]risk.LiquidationAssessment, len(e.lastLiquidation))
	for symbol, liq := range e.lastLiquidation {
		out[symbol] = liq
	}
	return out
}

// ClassifyExecution runs post-hoc sandwich detection on an executed
// on-chain trade against its block neighbors. Diagnostic only: the result
// never affects validation, but a detected sandwich raises an alert so the
// estimated extraction shows up in the audit trail.
func (e *Engine) ClassifyExecution(target risk.BlockTx, sameBlock []risk.BlockTx) risk.SandwichReport {
	report := e.sandwich.DetectSandwich(target, sameBlock)

	if report.IsSandwich {
		e.emit(notifications.NewAlert(notifications.SeverityWarning, "MEV_SANDWICH",
			"tx %s sandwiched (%d front, %d back), estimated loss %.2f",
			target.Hash, len(report.FrontRunTxs), len(report.BackRunTxs), report.EstimatedLoss).
			WithContext("tx", target.Hash))
	}

	return report
}

// Snapshot copies the current portfolio state for persistence and
// reporting
func (e *Engine) Snapshot() portfolio.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pf.Snapshot(e.breaker.State(), e.breaker.PeakValue(), e.breaker.Drawdown())
}

// SaveState persists the current snapshot if a store is configured
func (e *Engine) SaveState() error {
	if e.store == nil {
		return nil
	}
	return e.store.Save(e.Snapshot())
}
