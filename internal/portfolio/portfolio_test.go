package portfolio

import (
	"testing"

	"github.com/tygwan/risk-engine/internal/risk"
	"github.com/tygwan/risk-engine/internal/safety"
)

func TestTotalExposure(t *testing.T) {
	p := New(100_000)

	if got := p.TotalExposure(); got != 0 {
		t.Errorf("empty portfolio exposure = %.2f, want 0", got)
	}

	p.AddPosition(risk.Position{Symbol: "BTCUSDT", Side: risk.SideLong, Size: 10_000})
	p.AddPosition(risk.Position{Symbol: "ETHUSDT", Side: risk.SideShort, Size: 5_000})

	if got := p.TotalExposure(); got != 15_000 {
		t.Errorf("TotalExposure = %.2f, want 15000.00", got)
	}

	// Re-adding the same symbol replaces, not accumulates
	p.AddPosition(risk.Position{Symbol: "BTCUSDT", Side: risk.SideLong, Size: 12_000})
	if got := p.TotalExposure(); got != 17_000 {
		t.Errorf("TotalExposure after replace = %.2f, want 17000.00", got)
	}
}

func TestRemovePosition(t *testing.T) {
	p := New(100_000)
	p.AddPosition(risk.Position{Symbol: "BTCUSDT", Size: 10_000})

	pos, ok := p.RemovePosition("BTCUSDT")
	if !ok {
		t.Fatal("expected position to exist")
	}
	if pos.Size != 10_000 {
		t.Errorf("removed position size = %.2f, want 10000.00", pos.Size)
	}

	if _, ok := p.RemovePosition("BTCUSDT"); ok {
		t.Error("second removal should report missing")
	}
	if got := p.TotalExposure(); got != 0 {
		t.Errorf("TotalExposure after removal = %.2f, want 0", got)
	}
}

func TestRecordOutcome(t *testing.T) {
	p := New(100_000)

	p.RecordOutcome(false)
	p.RecordOutcome(false)
	if p.ConsecutiveLosses != 2 {
		t.Errorf("ConsecutiveLosses = %d, want 2", p.ConsecutiveLosses)
	}

	p.RecordOutcome(true)
	if p.ConsecutiveLosses != 0 {
		t.Errorf("ConsecutiveLosses after win = %d, want 0", p.ConsecutiveLosses)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	p := New(100_000)
	p.AddPosition(risk.Position{Symbol: "BTCUSDT", Size: 10_000})

	snapshot := p.Snapshot(safety.StateWarning, 120_000, 0.1667)

	if snapshot.TotalValue != 100_000 {
		t.Errorf("TotalValue = %.2f, want 100000.00", snapshot.TotalValue)
	}
	if snapshot.BreakerState != "WARNING" {
		t.Errorf("BreakerState = %s, want WARNING", snapshot.BreakerState)
	}
	if snapshot.TotalExposure != 10_000 {
		t.Errorf("TotalExposure = %.2f, want 10000.00", snapshot.TotalExposure)
	}

	// Mutating the portfolio afterwards must not leak into the snapshot
	p.AddPosition(risk.Position{Symbol: "ETHUSDT", Size: 5_000})
	if len(snapshot.OpenPositions) != 1 {
		t.Errorf("snapshot positions = %d, want 1", len(snapshot.OpenPositions))
	}
}
