package state

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/tygwan/risk-engine/internal/portfolio"
	"github.com/tygwan/risk-engine/internal/risk"
)

func TestLoadMissingFileStartsFresh(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state != nil {
		t.Errorf("Load of missing file = %+v, want nil", state)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	store.RecordAssessment(risk.RiskAssessment{
		ID:        "a-1",
		Approved:  true,
		RiskScore: 0.25,
		Timestamp: time.Now(),
	})

	snapshot := portfolio.Snapshot{
		TotalValue:   95_000,
		PeakValue:    110_000,
		BreakerState: "WARNING",
		Drawdown:     0.1364,
		OpenPositions: map[string]risk.Position{
			"BTCUSDT": {Symbol: "BTCUSDT", Side: risk.SideLong, EntryPrice: 50_000, Size: 10_000, Leverage: 5, InitialMargin: 2_000},
		},
		ConsecutiveLosses: 2,
		TotalExposure:     10_000,
		Timestamp:         time.Now(),
	}
	if err := store.Save(snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A new store in the same directory sees the persisted state
	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore (reopen) failed: %v", err)
	}
	loaded, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil after Save")
	}

	if loaded.Portfolio.PeakValue != 110_000 {
		t.Errorf("PeakValue = %.2f, want 110000.00", loaded.Portfolio.PeakValue)
	}
	if loaded.Portfolio.BreakerState != "WARNING" {
		t.Errorf("BreakerState = %s, want WARNING", loaded.Portfolio.BreakerState)
	}
	pos, ok := loaded.Portfolio.OpenPositions["BTCUSDT"]
	if !ok {
		t.Fatal("open position missing after round trip")
	}
	if pos.Leverage != 5 || pos.InitialMargin != 2_000 {
		t.Errorf("position = %+v, leverage/margin not preserved", pos)
	}
	if len(loaded.Assessments) != 1 || loaded.Assessments[0].ID != "a-1" {
		t.Errorf("Assessments = %+v, want the recorded decision", loaded.Assessments)
	}

	// The reopened store carries the audit trail into the new session
	if got := reopened.Assessments(); len(got) != 1 {
		t.Errorf("carried-forward assessments = %d, want 1", len(got))
	}
}

func TestAuditTrailIsCapped(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for i := 0; i < 520; i++ {
		store.RecordAssessment(risk.RiskAssessment{ID: fmt.Sprintf("a-%d", i)})
	}

	got := store.Assessments()
	if len(got) != 500 {
		t.Fatalf("audit size = %d, want cap 500", len(got))
	}
	// Oldest entries are dropped, newest kept
	if got[0].ID != "a-20" || got[len(got)-1].ID != "a-519" {
		t.Errorf("audit window = [%s .. %s], want [a-20 .. a-519]", got[0].ID, got[len(got)-1].ID)
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Save(portfolio.Snapshot{TotalValue: 42_000}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(filepath.Join(dir, "engine_state.json"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Portfolio.TotalValue != 42_000 {
		t.Errorf("TotalValue = %.2f, want 42000.00", loaded.Portfolio.TotalValue)
	}
	if loaded.Version != stateVersion {
		t.Errorf("Version = %s, want %s", loaded.Version, stateVersion)
	}

	if _, err := LoadFrom(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFrom of a missing path should fail")
	}
}
