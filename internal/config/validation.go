package config

import (
	"fmt"

	"github.com/tygwan/risk-engine/internal/errors"
)

// Validate checks the risk configuration invariants: every percentage field
// must lie in [0,1] and the fractional Kelly multiplier in (0,1]. A failure
// here is a ConfigurationError; the engine must not start.
func (r RiskConfig) Validate() error {
	if r.FractionalKelly <= 0 || r.FractionalKelly > 1 {
		return errors.NewConfigurationError("risk-config", "validate",
			fmt.Sprintf("fractional_kelly must be in (0,1], got %.4f", r.FractionalKelly))
	}

	percentages := map[string]float64{
		"max_position_pct":       r.MaxPositionPct,
		"max_total_exposure_pct": r.MaxTotalExposurePct,
		"max_drawdown_pct":       r.MaxDrawdownPct,
		"liquidation_buffer_pct": r.LiquidationBufferPct,
		"max_slippage_pct":       r.MaxSlippagePct,
		"mev_loss_fraction":      r.MEVLossFraction,
	}
	for name, value := range percentages {
		if value < 0 || value > 1 {
			return errors.NewConfigurationError("risk-config", "validate",
				fmt.Sprintf("%s must be in [0,1], got %.4f", name, value))
		}
	}

	if r.MinNotional < 0 {
		return errors.NewConfigurationError("risk-config", "validate",
			fmt.Sprintf("min_notional must be non-negative, got %.2f", r.MinNotional))
	}
	if r.MinProfitToCostRatio < 0 {
		return errors.NewConfigurationError("risk-config", "validate",
			fmt.Sprintf("min_profit_to_cost_ratio must be non-negative, got %.2f", r.MinProfitToCostRatio))
	}
	if r.SizeTolerance <= 0 {
		return errors.NewConfigurationError("risk-config", "validate",
			fmt.Sprintf("size_tolerance must be positive, got %.2f", r.SizeTolerance))
	}
	if r.MetricsRecalcTrades < 1 {
		return errors.NewConfigurationError("risk-config", "validate",
			fmt.Sprintf("metrics_recalc_trades must be at least 1, got %d", r.MetricsRecalcTrades))
	}

	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return err
	}

	if c.Monitor.LiquidationInterval <= 0 {
		return errors.NewConfigurationError("config", "validate",
			"liquidation monitor interval must be positive")
	}
	if c.Monitor.DrawdownInterval <= 0 {
		return errors.NewConfigurationError("config", "validate",
			"drawdown monitor interval must be positive")
	}
	if c.Monitor.OrderBookDepth < 1 {
		return errors.NewConfigurationError("config", "validate",
			"order book depth must be at least 1")
	}

	return nil
}
