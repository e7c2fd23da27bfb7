package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tygwan/risk-engine/internal/exchange"
	"github.com/tygwan/risk-engine/internal/logger"
	"github.com/tygwan/risk-engine/internal/monitoring"
	"github.com/tygwan/risk-engine/internal/recovery"
	"github.com/tygwan/risk-engine/internal/safety"
)

// EmergencyHandler is invoked synchronously when the drawdown breaker
// halts: first close every open position, then disable trading upstream.
// Both calls belong to external collaborators; the engine only triggers
// them.
type EmergencyHandler interface {
	CloseAllPositions(ctx context.Context) error
	DisableTrading(ctx context.Context) error
}

// Scheduler runs the two periodic monitors against the engine's shared
// portfolio state: liquidation re-assessment on a short interval and
// drawdown re-assessment on a longer one. Each tick acquires the engine's
// critical section for its read-modify-write and releases it before
// sleeping.
type Scheduler struct {
	engine *Engine

	prices   exchange.PriceFeed
	accounts exchange.AccountFeed

	liquidationInterval time.Duration
	drawdownInterval    time.Duration

	emergency EmergencyHandler
	health    *monitoring.HealthChecker
	log       *logger.Logger
	guard     *recovery.Guard

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	// emergencyFired guards against invoking the handler on every tick
	// after a halt; the halt itself is already terminal
	emergencyFired bool
	mu             sync.Mutex
}

// SchedulerOptions configures the monitor scheduler
type SchedulerOptions struct {
	LiquidationInterval time.Duration
	DrawdownInterval    time.Duration
	Emergency           EmergencyHandler
	Health              *monitoring.HealthChecker
	Logger              *logger.Logger
	Guard               *recovery.Guard
}

// NewScheduler creates a scheduler for the given engine and feeds
func NewScheduler(engine *Engine, prices exchange.PriceFeed, accounts exchange.AccountFeed, opts SchedulerOptions) *Scheduler {
	if opts.LiquidationInterval <= 0 {
		opts.LiquidationInterval = 30 * time.Second
	}
	if opts.DrawdownInterval <= 0 {
		opts.DrawdownInterval = 5 * time.Minute
	}

	guard := opts.Guard
	if guard == nil {
		var guardLog recovery.Logger
		if opts.Logger != nil {
			guardLog = opts.Logger
		}
		health := opts.Health
		guard = recovery.NewGuard(guardLog, 5, func(name string, err error) {
			if health != nil {
				health.RecordError(fmt.Sprintf("%s: %v", name, err))
			}
		})
	}

	return &Scheduler{
		engine:              engine,
		prices:              prices,
		accounts:            accounts,
		liquidationInterval: opts.LiquidationInterval,
		drawdownInterval:    opts.DrawdownInterval,
		emergency:           opts.Emergency,
		health:              opts.Health,
		log:                 opts.Logger,
		guard:               guard,
	}
}

// Start launches both monitor loops. Call Stop for a graceful shutdown:
// no new ticks are accepted and any in-flight tick runs to completion, so
// the portfolio is never left mid-update.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.runLiquidationLoop(ctx)
	go s.runDrawdownLoop(ctx)

	if s.log != nil {
		s.log.Info("monitor scheduler started (liquidation every %s, drawdown every %s)",
			s.liquidationInterval, s.drawdownInterval)
	}
}

// Stop cancels the loops and waits for in-flight ticks to finish
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	s.wg.Wait()

	if s.log != nil {
		s.log.Info("monitor scheduler stopped")
	}
}

func (s *Scheduler) runLiquidationLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.liquidationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.guard.Run("liquidation sweep", func() error {
				return s.liquidationTick(ctx)
			})
		}
	}
}

func (s *Scheduler) runDrawdownLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.drawdownInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.guard.Run("drawdown check", func() error {
				return s.drawdownTick(ctx)
			})
		}
	}
}

// liquidationTick fetches current prices outside the critical section and
// re-assesses every open position under it. The tick fails only when no
// symbol could be priced at all; partial price failures are logged and
// the remaining positions are still assessed.
func (s *Scheduler) liquidationTick(ctx context.Context) error {
	defer s.recordTick()

	symbols := s.engine.OpenSymbols()
	if len(symbols) == 0 {
		return nil
	}

	prices := make(map[string]float64, len(symbols))
	var lastErr error
	for _, symbol := range symbols {
		price, err := s.prices.GetCurrentPrice(ctx, symbol)
		if err != nil {
			lastErr = err
			if s.log != nil {
				s.log.Warning("liquidation sweep: no price for %s: %v", symbol, err)
			}
			continue
		}
		prices[symbol] = price
	}
	if len(prices) == 0 {
		return lastErr
	}

	s.engine.AssessPositions(prices)
	return nil
}

// drawdownTick refreshes the portfolio value and advances the breaker.
// On the transition into HALTED the emergency collaborators are invoked
// synchronously before the loop resumes ticking.
func (s *Scheduler) drawdownTick(ctx context.Context) error {
	defer s.recordTick()

	snapshot, err := s.accounts.GetBalances(ctx)
	if err != nil {
		if s.health != nil {
			s.health.SetConnected(false)
		}
		return fmt.Errorf("balances unavailable: %w", err)
	}
	if s.health != nil {
		s.health.SetConnected(true)
	}

	update := s.engine.SetPortfolioValue(snapshot.TotalValue)

	if update.State == safety.StateHalted {
		s.fireEmergency(ctx)
	}

	if err := s.engine.SaveState(); err != nil && s.log != nil {
		s.log.Warning("failed to persist engine state: %v", err)
	}
	return nil
}

func (s *Scheduler) fireEmergency(ctx context.Context) {
	s.mu.Lock()
	if s.emergencyFired {
		s.mu.Unlock()
		return
	}
	s.emergencyFired = true
	s.mu.Unlock()

	if s.log != nil {
		s.log.Error("drawdown breaker HALTED: closing all positions and disabling trading")
	}

	if s.emergency == nil {
		return
	}
	if err := s.emergency.CloseAllPositions(ctx); err != nil && s.log != nil {
		s.log.Error("emergency close-all failed: %v", err)
	}
	if err := s.emergency.DisableTrading(ctx); err != nil && s.log != nil {
		s.log.Error("emergency trading disable failed: %v", err)
	}
}

func (s *Scheduler) recordTick() {
	if s.health != nil {
		s.health.RecordMonitorTick()
	}
}
