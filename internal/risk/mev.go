package risk

// BlockTx is a transaction observed in the same block as a target trade,
// as reported by the caller's chain-data collaborator
type BlockTx struct {
	Hash        string
	Index       int     // ordering index within the block
	PriorityFee float64 // in gwei
	To          string  // destination contract
	Value       float64 // in quote currency
}

// SandwichReport is the post-hoc classification of a single executed trade.
// This is diagnostic output only; detection never blocks a trade.
type SandwichReport struct {
	IsSandwich    bool
	FrontRunTxs   []string
	BackRunTxs    []string
	EstimatedLoss float64
}

// LossEstimator estimates the value extracted from a sandwiched trade.
// No authoritative formula exists for this, so the estimator is pluggable
// policy rather than a fixed calculation.
type LossEstimator interface {
	EstimateLoss(target BlockTx) float64
}

// FractionLossEstimator estimates loss as a fixed fraction of the target's
// value. This is a tunable heuristic, not a measurement.
type FractionLossEstimator struct {
	Fraction float64
}

// EstimateLoss returns Fraction × target value
func (e FractionLossEstimator) EstimateLoss(target BlockTx) float64 {
	return target.Value * e.Fraction
}

// SandwichDetector classifies executed trades against their block neighbors
type SandwichDetector struct {
	estimator LossEstimator
}

// NewSandwichDetector creates a detector with the given loss estimator;
// a nil estimator defaults to a 0.5% fraction heuristic
func NewSandwichDetector(estimator LossEstimator) *SandwichDetector {
	if estimator == nil {
		estimator = FractionLossEstimator{Fraction: 0.005}
	}
	return &SandwichDetector{estimator: estimator}
}

// DetectSandwich partitions same-block transactions around the target:
// front-runners precede it with a higher priority fee and the same
// destination, back-runners follow it with the same destination. A sandwich
// requires at least one of each.
func (d *SandwichDetector) DetectSandwich(target BlockTx, sameBlock []BlockTx) SandwichReport {
	report := SandwichReport{}

	for _, tx := range sameBlock {
		if tx.Hash == target.Hash || tx.To != target.To {
			continue
		}

		switch {
		case tx.Index < target.Index && tx.PriorityFee > target.PriorityFee:
			report.FrontRunTxs = append(report.FrontRunTxs, tx.Hash)
		case tx.Index > target.Index:
			report.BackRunTxs = append(report.BackRunTxs, tx.Hash)
		}
	}

	report.IsSandwich = len(report.FrontRunTxs) > 0 && len(report.BackRunTxs) > 0
	if report.IsSandwich {
		report.EstimatedLoss = d.estimator.EstimateLoss(target)
	}

	return report
}
