package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tygwan/risk-engine/internal/exchange"
	"github.com/tygwan/risk-engine/internal/monitoring"
	"github.com/tygwan/risk-engine/internal/notifications"
	"github.com/tygwan/risk-engine/internal/risk"
	"github.com/tygwan/risk-engine/internal/safety"
)

type fakePrices struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakePrices) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return 0, errors.New("unknown symbol")
	}
	return price, nil
}

func (f *fakePrices) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAccounts struct {
	mu    sync.Mutex
	value float64
	err   error
	calls int
}

func (f *fakeAccounts) GetBalances(ctx context.Context) (*exchange.AccountSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &exchange.AccountSnapshot{TotalValue: f.value, Available: f.value, Timestamp: time.Now()}, nil
}

func (f *fakeAccounts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEmergency struct {
	mu       sync.Mutex
	closed   int
	disabled int
}

func (f *fakeEmergency) CloseAllPositions(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeEmergency) DisableTrading(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled++
	return nil
}

func (f *fakeEmergency) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.disabled
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notifications.Alert
}

func (r *recordingNotifier) Send(alert notifications.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func (r *recordingNotifier) byRule(rule string) []notifications.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notifications.Alert
	for _, a := range r.alerts {
		if a.Rule == rule {
			out = append(out, a)
		}
	}
	return out
}

func TestLiquidationTickRaisesAlerts(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := notifications.NewDispatcher(notifier, 16)
	e := newTestEngine(Options{Dispatcher: dispatcher})

	// 45,000 liquidation price; at 46,000 the position is ~2.2% away,
	// inside the critical band
	e.OpenPosition("", risk.Position{
		Symbol: "BTCUSDT", Side: risk.SideLong,
		EntryPrice: 50_000, Size: 10_000, Leverage: 10, InitialMargin: 1000,
	})

	prices := &fakePrices{prices: map[string]float64{"BTCUSDT": 46_000}}
	s := NewScheduler(e, prices, &fakeAccounts{value: 100_000}, SchedulerOptions{})

	s.liquidationTick(context.Background())
	dispatcher.Close()

	alerts := notifier.byRule("LIQUIDATION_RISK")
	require.Len(t, alerts, 1)
	assert.Equal(t, notifications.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "BTCUSDT", alerts[0].Context["symbol"])
}

func TestLiquidationTickSkipsFailedPrices(t *testing.T) {
	notifier := &recordingNotifier{}
	dispatcher := notifications.NewDispatcher(notifier, 16)
	e := newTestEngine(Options{Dispatcher: dispatcher})
	e.OpenPosition("", risk.Position{
		Symbol: "BTCUSDT", Side: risk.SideLong,
		EntryPrice: 50_000, Size: 10_000, Leverage: 10, InitialMargin: 1000,
	})

	prices := &fakePrices{err: errors.New("ticker unavailable")}
	s := NewScheduler(e, prices, &fakeAccounts{value: 100_000}, SchedulerOptions{})

	s.liquidationTick(context.Background())
	dispatcher.Close()

	assert.Empty(t, notifier.byRule("LIQUIDATION_RISK"))
}

func TestLiquidationTickWithoutPositions(t *testing.T) {
	e := newTestEngine(Options{})
	prices := &fakePrices{}
	s := NewScheduler(e, prices, &fakeAccounts{value: 100_000}, SchedulerOptions{})

	s.liquidationTick(context.Background())

	assert.Zero(t, prices.callCount(), "no open positions means no price fetches")
}

func TestDrawdownTickRefreshesPortfolioValue(t *testing.T) {
	e := newTestEngine(Options{})
	s := NewScheduler(e, &fakePrices{}, &fakeAccounts{value: 88_000}, SchedulerOptions{})

	s.drawdownTick(context.Background())

	snapshot := e.Snapshot()
	assert.InDelta(t, 88_000, snapshot.TotalValue, 1e-9)
	assert.Equal(t, safety.StateWarning.String(), snapshot.BreakerState)
}

func TestDrawdownTickFiresEmergencyOnce(t *testing.T) {
	e := newTestEngine(Options{})
	emergency := &fakeEmergency{}
	accounts := &fakeAccounts{value: 79_000}
	s := NewScheduler(e, &fakePrices{}, accounts, SchedulerOptions{Emergency: emergency})

	s.drawdownTick(context.Background())
	require.Equal(t, safety.StateHalted, e.CurrentBreakerState())

	closed, disabled := emergency.counts()
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, disabled)

	// The halt is terminal; later ticks must not re-fire the handler
	s.drawdownTick(context.Background())
	s.drawdownTick(context.Background())

	closed, disabled = emergency.counts()
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, disabled)
}

func TestDrawdownTickSurvivesBalanceFailure(t *testing.T) {
	e := newTestEngine(Options{})
	emergency := &fakeEmergency{}
	accounts := &fakeAccounts{err: errors.New("timeout")}
	s := NewScheduler(e, &fakePrices{}, accounts, SchedulerOptions{Emergency: emergency})

	s.drawdownTick(context.Background())

	snapshot := e.Snapshot()
	assert.InDelta(t, 100_000, snapshot.TotalValue, 1e-9)
	closed, _ := emergency.counts()
	assert.Zero(t, closed)
}

func TestGuardEscalationReportsToHealth(t *testing.T) {
	e := newTestEngine(Options{})
	health := monitoring.NewHealthChecker()
	health.SetConnected(true)
	accounts := &fakeAccounts{err: errors.New("timeout")}
	s := NewScheduler(e, &fakePrices{}, accounts, SchedulerOptions{Health: health})

	// Five consecutive failed drawdown ticks cross the guard's escalation
	// threshold and must surface on the health endpoint
	for i := 0; i < 5; i++ {
		s.guard.Run("drawdown check", func() error {
			return s.drawdownTick(context.Background())
		})
	}

	rec := httptest.NewRecorder()
	health.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var status monitoring.HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "unhealthy", status.Status)
	require.NotEmpty(t, status.Errors)
	assert.Contains(t, status.Errors[0], "drawdown check")
}

func TestSchedulerDefaultIntervals(t *testing.T) {
	s := NewScheduler(newTestEngine(Options{}), &fakePrices{}, &fakeAccounts{}, SchedulerOptions{})
	assert.Equal(t, 30*time.Second, s.liquidationInterval)
	assert.Equal(t, 5*time.Minute, s.drawdownInterval)
}

func TestSchedulerStartStop(t *testing.T) {
	e := newTestEngine(Options{})
	accounts := &fakeAccounts{value: 100_000}
	s := NewScheduler(e, &fakePrices{}, accounts, SchedulerOptions{
		LiquidationInterval: 5 * time.Millisecond,
		DrawdownInterval:    5 * time.Millisecond,
	})

	s.Start(context.Background())
	time.Sleep(40 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent

	assert.Greater(t, accounts.callCount(), 0, "drawdown loop should have ticked")

	// No ticks after Stop
	settled := accounts.callCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, accounts.callCount())
}
