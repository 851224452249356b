package dataflows

import (
	"math"

	"stockpilot/models"
)

// Indicator windows.
const (
	maShortWindow = 20
	maLongWindow  = 60
	bollWindow    = 20
	bollWidth     = 2.0
	kdWindow      = 9
	kdCom         = 2.0
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	obvMAWindow   = 20
)

// Annotate computes the indicator fields for a raw OHLCV series and returns
// a new slice; the input is left untouched. Values whose window has not
// filled yet are zero, so the output is always NaN-free and serializable.
func Annotate(bars []models.PriceBar) []models.PriceBar {
	n := len(bars)
	out := make([]models.PriceBar, n)
	copy(out, bars)
	if n == 0 {
		return out
	}

	closes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
	}

	annotateMovingAverages(out, closes)
	annotateBollinger(out, closes)
	annotateKD(out, bars)
	annotateMACD(out, closes)
	annotateOBV(out, bars)

	return out
}

func annotateMovingAverages(out []models.PriceBar, closes []float64) {
	for i := range out {
		if i >= maShortWindow-1 {
			out[i].MA20 = mean(closes[i-maShortWindow+1 : i+1])
		}
		if i >= maLongWindow-1 {
			out[i].MA60 = mean(closes[i-maLongWindow+1 : i+1])
		}
	}
}

func annotateBollinger(out []models.PriceBar, closes []float64) {
	for i := bollWindow - 1; i < len(out); i++ {
		window := closes[i-bollWindow+1 : i+1]
		m := mean(window)
		sd := sampleStdDev(window, m)
		out[i].BollUpper = m + bollWidth*sd
		out[i].BollLower = m - bollWidth*sd
	}
}

// annotateKD computes the stochastic oscillator: RSV over a 9-day window,
// smoothed twice with an exponentially weighted mean (com=2, adjusted
// weights, matching the series the original data pipeline produced).
func annotateKD(out []models.PriceBar, bars []models.PriceBar) {
	n := len(bars)
	alpha := 1.0 / (1.0 + kdCom)
	decay := 1.0 - alpha

	k := make([]float64, n)
	kValid := make([]bool, n)

	var num, den float64
	for i := 0; i < n; i++ {
		rsv, ok := rawStochastic(bars, i)
		num *= decay
		den *= decay
		if ok {
			num += rsv
			den += 1
		}
		if den > 0 {
			k[i] = num / den
			kValid[i] = true
		}
		out[i].K = k[i]
	}

	num, den = 0, 0
	for i := 0; i < n; i++ {
		num *= decay
		den *= decay
		if kValid[i] {
			num += k[i]
			den += 1
		}
		if den > 0 {
			out[i].D = num / den
		}
	}
}

// rawStochastic returns the 9-day RSV at index i, or false while the window
// has not filled or the window range is degenerate (flat prices).
func rawStochastic(bars []models.PriceBar, i int) (float64, bool) {
	if i < kdWindow-1 {
		return 0, false
	}
	low := math.Inf(1)
	high := math.Inf(-1)
	for j := i - kdWindow + 1; j <= i; j++ {
		low = math.Min(low, bars[j].Low)
		high = math.Max(high, bars[j].High)
	}
	if high <= low {
		return 0, false
	}
	return (bars[i].Close - low) / (high - low) * 100, true
}

func annotateMACD(out []models.PriceBar, closes []float64) {
	fast := recursiveEMA(closes, macdFast)
	slow := recursiveEMA(closes, macdSlow)

	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal := recursiveEMA(macd, macdSignal)

	for i := range out {
		out[i].MACD = macd[i]
		out[i].Signal = signal[i]
	}
}

func annotateOBV(out []models.PriceBar, bars []models.PriceBar) {
	obv := 0.0
	values := make([]float64, len(bars))
	for i := range bars {
		if i > 0 {
			switch {
			case bars[i].Close > bars[i-1].Close:
				obv += float64(bars[i].Volume)
			case bars[i].Close < bars[i-1].Close:
				obv -= float64(bars[i].Volume)
			}
		}
		values[i] = obv
		out[i].OBV = obv
	}
	for i := obvMAWindow - 1; i < len(out); i++ {
		out[i].OBVMA = mean(values[i-obvMAWindow+1 : i+1])
	}
}

// recursiveEMA is the span-parameterized exponential moving average seeded
// with the first value (unadjusted recursion).
func recursiveEMA(values []float64, span int) []float64 {
	result := make([]float64, len(values))
	if len(values) == 0 {
		return result
	}
	alpha := 2.0 / (float64(span) + 1.0)
	ema := values[0]
	result[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		result[i] = ema
	}
	return result
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n-1 denominator, matching rolling standard
// deviation in the original pipeline.
func sampleStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)-1))
}
