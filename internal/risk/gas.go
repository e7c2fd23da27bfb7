package risk

// GasSpeed selects the priority fee tier for on-chain execution
type GasSpeed string

const (
	GasSpeedSlow    GasSpeed = "slow"    // ~5 min inclusion
	GasSpeedMedium  GasSpeed = "medium"  // ~2 min
	GasSpeedFast    GasSpeed = "fast"    // ~30 sec
	GasSpeedInstant GasSpeed = "instant" // next block
)

// TxType identifies the kind of on-chain transaction for gas estimation
type TxType string

const (
	TxSimpleTransfer TxType = "simple_transfer"
	TxERC20Transfer  TxType = "erc20_transfer"
	TxERC20Approve   TxType = "erc20_approve"
	TxSwapV2         TxType = "uniswap_v2_swap"
	TxSwapV3         TxType = "uniswap_v3_swap"
	TxLendingDeposit TxType = "aave_deposit"
	TxLendingBorrow  TxType = "aave_borrow"
	TxComplexDefi    TxType = "complex_defi"
)

// defaultGasLimits holds typical gas limits per transaction type
var defaultGasLimits = map[TxType]uint64{
	TxSimpleTransfer: 21_000,
	TxERC20Transfer:  65_000,
	TxERC20Approve:   45_000,
	TxSwapV2:         150_000,
	TxSwapV3:         180_000,
	TxLendingDeposit: 250_000,
	TxLendingBorrow:  300_000,
	TxComplexDefi:    400_000,
}

// priorityFeeGwei maps speed tiers to EIP-1559 priority fees
var priorityFeeGwei = map[GasSpeed]float64{
	GasSpeedSlow:    1.0,
	GasSpeedMedium:  1.5,
	GasSpeedFast:    2.0,
	GasSpeedInstant: 3.0,
}

// GasEstimator converts gas costs of on-chain trades into the portfolio's
// valuation currency so the cost gate can compare them against expected
// profit. Current base fee and native token price are supplied per call;
// fetching them is an external collaborator's job.
type GasEstimator struct {
	gasLimits map[TxType]uint64
}

// NewGasEstimator creates a gas estimator with the default gas limit table
func NewGasEstimator() *GasEstimator {
	return &GasEstimator{gasLimits: defaultGasLimits}
}

// GasLimit returns the gas limit for a transaction type, falling back to a
// conservative 100k for unknown types
func (e *GasEstimator) GasLimit(txType TxType) uint64 {
	if limit, ok := e.gasLimits[txType]; ok {
		return limit
	}
	return 100_000
}

// EstimateCost returns the maximum transaction cost in quote currency.
//
//	max_fee_gwei = base_fee_gwei + priority_fee(speed)
//	cost_native  = gas_limit × max_fee_gwei × 1e-9
//	cost_quote   = cost_native × native_price
func (e *GasEstimator) EstimateCost(txType TxType, speed GasSpeed, baseFeeGwei, nativePriceQuote float64) float64 {
	priority, ok := priorityFeeGwei[speed]
	if !ok {
		priority = priorityFeeGwei[GasSpeedMedium]
	}

	maxFeeGwei := baseFeeGwei + priority
	costNative := float64(e.GasLimit(txType)) * maxFeeGwei * 1e-9

	return costNative * nativePriceQuote
}
