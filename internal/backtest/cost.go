package backtest

import "math"

// Taiwan equity transaction cost rates. Fee applies to both sides, the
// securities transaction tax only to sells. Fee and tax amounts are
// truncated toward zero to whole currency units; no minimum-fee floor is
// applied (documented simplification).
const (
	feeRate = 0.001425
	taxRate = 0.003
)

// Cost converts an execution into its net cash flow: the amount debited for
// a buy (notional plus fee) or credited for a sell (notional minus fee and
// tax). Pure and deterministic.
func Cost(price float64, shares int64, isBuy bool) float64 {
	notional := price * float64(shares)
	fee := math.Trunc(notional * feeRate)

	if isBuy {
		return notional + fee
	}
	tax := math.Trunc(notional * taxRate)
	return notional - fee - tax
}
