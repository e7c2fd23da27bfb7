package recovery

import (
	"errors"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Warning(format string, args ...interface{}) {}
func (nopLogger) Error(format string, args ...interface{})   {}

func TestGuardPassesThroughSuccess(t *testing.T) {
	g := NewGuard(nopLogger{}, 3, nil)

	if err := g.Run("tick", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.ConsecutiveFailures("tick"); got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	g := NewGuard(nopLogger{}, 3, nil)

	err := g.Run("tick", func() error { panic("boom") })
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
	if got := g.ConsecutiveFailures("tick"); got != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", got)
	}
}

func TestGuardCountsAndResetsFailures(t *testing.T) {
	g := NewGuard(nopLogger{}, 5, nil)
	failing := func() error { return errors.New("feed down") }

	g.Run("tick", failing)
	g.Run("tick", failing)
	if got := g.ConsecutiveFailures("tick"); got != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", got)
	}

	g.Run("tick", func() error { return nil })
	if got := g.ConsecutiveFailures("tick"); got != 0 {
		t.Errorf("ConsecutiveFailures after success = %d, want 0", got)
	}
}

func TestGuardEscalatesOnce(t *testing.T) {
	var escalations []string
	g := NewGuard(nopLogger{}, 3, func(name string, err error) {
		escalations = append(escalations, name)
	})
	failing := func() error { return errors.New("feed down") }

	for i := 0; i < 6; i++ {
		g.Run("tick", failing)
	}
	if len(escalations) != 1 {
		t.Fatalf("escalated %d times, want 1", len(escalations))
	}

	// A success re-arms the escalation
	g.Run("tick", func() error { return nil })
	for i := 0; i < 3; i++ {
		g.Run("tick", failing)
	}
	if len(escalations) != 2 {
		t.Errorf("escalated %d times after re-arm, want 2", len(escalations))
	}
}

func TestGuardTracksOperationsIndependently(t *testing.T) {
	g := NewGuard(nopLogger{}, 3, nil)

	g.Run("a", func() error { return errors.New("x") })
	g.Run("b", func() error { return nil })

	if got := g.ConsecutiveFailures("a"); got != 1 {
		t.Errorf("ConsecutiveFailures(a) = %d, want 1", got)
	}
	if got := g.ConsecutiveFailures("b"); got != 0 {
		t.Errorf("ConsecutiveFailures(b) = %d, want 0", got)
	}
}
