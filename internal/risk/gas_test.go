package risk

import (
	"math"
	"testing"
)

func TestGasLimit(t *testing.T) {
	estimator := NewGasEstimator()

	tests := []struct {
		txType   TxType
		expected uint64
	}{
		{TxSimpleTransfer, 21_000},
		{TxERC20Transfer, 65_000},
		{TxSwapV2, 150_000},
		{TxSwapV3, 180_000},
		{TxComplexDefi, 400_000},
		{TxType("something_new"), 100_000}, // conservative fallback
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			if got := estimator.GasLimit(tt.txType); got != tt.expected {
				t.Errorf("GasLimit(%s) = %d, want %d", tt.txType, got, tt.expected)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	estimator := NewGasEstimator()

	// Swap at 30 gwei base fee, fast tier (+2.0 gwei), ETH at $2000:
	// 150000 * 32e-9 * 2000 = 9.6
	cost := estimator.EstimateCost(TxSwapV2, GasSpeedFast, 30, 2_000)
	if math.Abs(cost-9.6) > 1e-9 {
		t.Errorf("EstimateCost() = %.6f, want 9.600000", cost)
	}

	// Simple transfer at the same conditions is far cheaper
	transfer := estimator.EstimateCost(TxSimpleTransfer, GasSpeedFast, 30, 2_000)
	if transfer >= cost {
		t.Errorf("transfer cost %.6f should be below swap cost %.6f", transfer, cost)
	}
}

func TestEstimateCostSpeedTiers(t *testing.T) {
	estimator := NewGasEstimator()

	speeds := []GasSpeed{GasSpeedSlow, GasSpeedMedium, GasSpeedFast, GasSpeedInstant}
	prev := 0.0
	for _, speed := range speeds {
		cost := estimator.EstimateCost(TxSwapV3, speed, 20, 2_000)
		if cost <= prev {
			t.Fatalf("cost at %s (%.6f) should exceed the slower tier (%.6f)", speed, cost, prev)
		}
		prev = cost
	}
}

func TestEstimateCostUnknownSpeedUsesMedium(t *testing.T) {
	estimator := NewGasEstimator()

	got := estimator.EstimateCost(TxSwapV2, GasSpeed("warp"), 20, 2_000)
	want := estimator.EstimateCost(TxSwapV2, GasSpeedMedium, 20, 2_000)
	if got != want {
		t.Errorf("unknown speed cost = %.6f, want medium tier %.6f", got, want)
	}
}
