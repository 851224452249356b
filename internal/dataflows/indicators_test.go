package dataflows

import (
	"math"
	"testing"
	"time"

	"stockpilot/models"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeBars(closes []float64) []models.PriceBar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAnnotateEmpty(t *testing.T) {
	if out := Annotate(nil); len(out) != 0 {
		t.Fatalf("len = %d, want 0", len(out))
	}
}

func TestAnnotateDoesNotMutateInput(t *testing.T) {
	bars := makeBars(repeat(100, 30))
	Annotate(bars)
	for i, b := range bars {
		if b.MA20 != 0 || b.K != 0 || b.OBV != 0 {
			t.Fatalf("input bar %d mutated: %+v", i, b)
		}
	}
}

func TestAnnotateMovingAverages(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1) // 1..25
	}
	out := Annotate(makeBars(closes))

	if out[18].MA20 != 0 {
		t.Fatalf("MA20 before window fills = %v, want 0", out[18].MA20)
	}
	if out[19].MA20 != 10.5 {
		t.Fatalf("MA20[19] = %v, want 10.5 (mean of 1..20)", out[19].MA20)
	}
	if out[24].MA20 != 15.5 {
		t.Fatalf("MA20[24] = %v, want 15.5 (mean of 6..25)", out[24].MA20)
	}
	if out[24].MA60 != 0 {
		t.Fatalf("MA60 with only 25 bars = %v, want 0", out[24].MA60)
	}
}

func TestAnnotateBollingerFlatSeries(t *testing.T) {
	out := Annotate(makeBars(repeat(100, 25)))

	if out[18].BollUpper != 0 || out[18].BollLower != 0 {
		t.Fatalf("bands before window fills = %v/%v, want 0/0", out[18].BollUpper, out[18].BollLower)
	}
	// Zero variance: both bands collapse onto the mean.
	if out[19].BollUpper != 100 || out[19].BollLower != 100 {
		t.Fatalf("bands on flat series = %v/%v, want 100/100", out[19].BollUpper, out[19].BollLower)
	}
}

func TestAnnotateBollingerOrdering(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	out := Annotate(makeBars(closes))

	last := out[29]
	if !(last.BollLower < last.MA20 && last.MA20 < last.BollUpper) {
		t.Fatalf("band ordering broken: lower=%v ma=%v upper=%v", last.BollLower, last.MA20, last.BollUpper)
	}
}

func TestAnnotateKDFlatRange(t *testing.T) {
	// Closes pinned mid-range: RSV is 50 once the 9-day window fills, so
	// both K and D settle at exactly 50.
	out := Annotate(makeBars(repeat(100, 20)))

	if out[7].K != 0 || out[7].D != 0 {
		t.Fatalf("KD before window fills = %v/%v, want 0/0", out[7].K, out[7].D)
	}
	if !closeTo(out[8].K, 50) || !closeTo(out[8].D, 50) {
		t.Fatalf("KD[8] = %v/%v, want 50/50", out[8].K, out[8].D)
	}
	if !closeTo(out[19].K, 50) || !closeTo(out[19].D, 50) {
		t.Fatalf("KD[19] = %v/%v, want 50/50", out[19].K, out[19].D)
	}
}

func TestAnnotateKDDegenerateWindow(t *testing.T) {
	// High == low on every bar: no defined RSV, K and D stay zero.
	bars := makeBars(repeat(100, 15))
	for i := range bars {
		bars[i].High = 100
		bars[i].Low = 100
	}
	out := Annotate(bars)
	for i, b := range out {
		if b.K != 0 || b.D != 0 {
			t.Fatalf("KD[%d] = %v/%v on degenerate range, want 0/0", i, b.K, b.D)
		}
	}
}

func TestAnnotateMACDFlatSeries(t *testing.T) {
	out := Annotate(makeBars(repeat(100, 40)))
	for i, b := range out {
		if !closeTo(b.MACD, 0) || !closeTo(b.Signal, 0) {
			t.Fatalf("MACD[%d] = %v/%v on flat series, want 0/0", i, b.MACD, b.Signal)
		}
	}
}

func TestAnnotateOBV(t *testing.T) {
	out := Annotate(makeBars([]float64{100, 101, 102, 101, 101}))

	want := []float64{0, 1000, 2000, 1000, 1000}
	for i, w := range want {
		if out[i].OBV != w {
			t.Fatalf("OBV[%d] = %v, want %v", i, out[i].OBV, w)
		}
	}
}

func TestRecursiveEMASeedsAtFirstValue(t *testing.T) {
	values := []float64{10, 10, 10, 10}
	out := recursiveEMA(values, 12)
	for i, v := range out {
		if !closeTo(v, 10) {
			t.Fatalf("ema[%d] = %v, want 10", i, v)
		}
	}
}
