package risk

// LiquidationTier categorizes how close a position is to forced liquidation
type LiquidationTier int

const (
	TierSafe LiquidationTier = iota
	TierWarning
	TierDanger
	TierCritical
)

// String returns the string representation of the liquidation tier
func (t LiquidationTier) String() string {
	switch t {
	case TierSafe:
		return "SAFE"
	case TierWarning:
		return "WARNING"
	case TierDanger:
		return "DANGER"
	case TierCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// LiquidationAction is the recommended response for a liquidation tier
type LiquidationAction string

const (
	ActionContinue       LiquidationAction = "CONTINUE"
	ActionReduce25       LiquidationAction = "REDUCE_25PCT"
	ActionReduce50       LiquidationAction = "REDUCE_50PCT"
	ActionCloseImmediate LiquidationAction = "CLOSE_IMMEDIATELY"
)

// LiquidationAssessment is a point-in-time snapshot of liquidation risk.
// There is no hysteresis here: each call assesses the current prices only;
// the scheduler decides how often to re-evaluate.
type LiquidationAssessment struct {
	Symbol           string
	Tier             LiquidationTier
	Action           LiquidationAction
	LiquidationPrice float64
	CurrentPrice     float64
	DistancePct      float64
}

// Tier boundaries as signed fractions of the current price. A boundary value
// belongs to the safer tier: exactly 0.20 is SAFE, exactly 0.10 is WARNING.
const (
	safeDistance    = 0.20
	warningDistance = 0.10
	dangerDistance  = 0.05
)

// tierTolerance absorbs float rounding in the distance arithmetic so a
// position exactly on a boundary still lands in the safer tier (a short at
// entry with a 0.20 margin ratio computes a distance fractionally under 0.20)
const tierTolerance = 1e-9

// MinimumOpenDistance returns the smallest liquidation distance acceptable
// when opening a new leveraged position: the warning boundary plus the
// configured buffer. Existing positions are only monitored against the
// tier boundaries; the buffer applies to new exposure.
func MinimumOpenDistance(buffer float64) float64 {
	if buffer < 0 {
		buffer = 0
	}
	return warningDistance + buffer
}

// LiquidationPrice calculates the price at which the position is forcibly
// closed by the venue.
//
//	margin_ratio = initial_margin / notional   (= 1/leverage when exactly margined)
//	LONG:  entry × (1 − margin_ratio)
//	SHORT: entry × (1 + margin_ratio)
//
// Example: entry 50000, 10x leverage, 5000 margin on a 50000 notional
// gives margin_ratio 0.10, so a LONG liquidates at 45000 and a SHORT at
// 55000. Extra collateral pushes the liquidation price further away.
func LiquidationPrice(p Position) float64 {
	if p.Leverage <= 0 {
		return 0
	}

	marginRatio := 1.0 / p.Leverage
	if p.Size > 0 && p.InitialMargin > 0 {
		marginRatio = p.InitialMargin / p.Size
	}

	if p.Side == SideLong {
		return p.EntryPrice * (1 - marginRatio)
	}
	return p.EntryPrice * (1 + marginRatio)
}

// DistancePct returns the signed fractional distance between the current
// price and the liquidation price. Negative values mean the liquidation
// price has been crossed.
func DistancePct(p Position, currentPrice float64) float64 {
	if currentPrice <= 0 {
		return 0
	}

	liq := LiquidationPrice(p)

	if p.Side == SideLong {
		return (currentPrice - liq) / currentPrice
	}
	return (liq - currentPrice) / currentPrice
}

// AssessLiquidation evaluates the liquidation risk tier for a position at
// the given price and recommends an action
func AssessLiquidation(p Position, currentPrice float64) LiquidationAssessment {
	distance := DistancePct(p, currentPrice)

	assessment := LiquidationAssessment{
		Symbol:           p.Symbol,
		LiquidationPrice: LiquidationPrice(p),
		CurrentPrice:     currentPrice,
		DistancePct:      distance,
	}

	switch {
	case distance >= safeDistance-tierTolerance:
		assessment.Tier = TierSafe
		assessment.Action = ActionContinue
	case distance >= warningDistance-tierTolerance:
		assessment.Tier = TierWarning
		assessment.Action = ActionReduce25
	case distance >= dangerDistance-tierTolerance:
		assessment.Tier = TierDanger
		assessment.Action = ActionReduce50
	default:
		assessment.Tier = TierCritical
		assessment.Action = ActionCloseImmediate
	}

	return assessment
}
