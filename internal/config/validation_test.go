package config

import (
	"errors"
	"testing"
	"time"

	engineerrors "github.com/tygwan/risk-engine/internal/errors"
)

func validRiskConfig() RiskConfig {
	return RiskConfig{
		FractionalKelly:      0.25,
		MaxPositionPct:       0.10,
		MaxTotalExposurePct:  0.50,
		MinNotional:          10,
		MaxDrawdownPct:       0.20,
		LiquidationBufferPct: 0.05,
		MinProfitToCostRatio: 2.0,
		MaxSlippagePct:       0.005,
		SizeTolerance:        1.0,
		MEVLossFraction:      0.005,
		MetricsRecalcTrades:  50,
	}
}

func TestRiskConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RiskConfig)
		wantErr bool
	}{
		{"valid defaults", func(r *RiskConfig) {}, false},
		{"fractional kelly of exactly 1 is allowed", func(r *RiskConfig) { r.FractionalKelly = 1.0 }, false},
		{"fractional kelly zero", func(r *RiskConfig) { r.FractionalKelly = 0 }, true},
		{"fractional kelly above 1", func(r *RiskConfig) { r.FractionalKelly = 1.5 }, true},
		{"negative position pct", func(r *RiskConfig) { r.MaxPositionPct = -0.1 }, true},
		{"exposure pct above 1", func(r *RiskConfig) { r.MaxTotalExposurePct = 1.2 }, true},
		{"drawdown pct above 1", func(r *RiskConfig) { r.MaxDrawdownPct = 2.0 }, true},
		{"negative min notional", func(r *RiskConfig) { r.MinNotional = -1 }, true},
		{"zero min notional is allowed", func(r *RiskConfig) { r.MinNotional = 0 }, false},
		{"negative profit ratio", func(r *RiskConfig) { r.MinProfitToCostRatio = -0.5 }, true},
		{"zero size tolerance", func(r *RiskConfig) { r.SizeTolerance = 0 }, true},
		{"zero recalc cadence", func(r *RiskConfig) { r.MetricsRecalcTrades = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRiskConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var engErr *engineerrors.EngineError
				if !errors.As(err, &engErr) {
					t.Fatalf("error type = %T, want *EngineError", err)
				}
				if engErr.Category != engineerrors.ErrorCategoryConfiguration {
					t.Errorf("Category = %s, want CONFIG", engErr.Category)
				}
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{Risk: validRiskConfig()}
		cfg.Monitor.LiquidationInterval = 30 * time.Second
		cfg.Monitor.DrawdownInterval = 5 * time.Minute
		cfg.Monitor.OrderBookDepth = 25
		return cfg
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg := base()
	cfg.Monitor.LiquidationInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero liquidation interval should fail")
	}

	cfg = base()
	cfg.Monitor.DrawdownInterval = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative drawdown interval should fail")
	}

	cfg = base()
	cfg.Monitor.OrderBookDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero order book depth should fail")
	}

	cfg = base()
	cfg.Risk.FractionalKelly = -1
	if err := cfg.Validate(); err == nil {
		t.Error("invalid risk config should fail the whole config")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
	if cfg.Risk.FractionalKelly != 0.25 {
		t.Errorf("FractionalKelly = %.2f, want 0.25", cfg.Risk.FractionalKelly)
	}
	if cfg.Monitor.LiquidationInterval != 30*time.Second {
		t.Errorf("LiquidationInterval = %s, want 30s", cfg.Monitor.LiquidationInterval)
	}
	if cfg.Monitor.DrawdownInterval != 5*time.Minute {
		t.Errorf("DrawdownInterval = %s, want 5m", cfg.Monitor.DrawdownInterval)
	}
}
