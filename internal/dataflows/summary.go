package dataflows

import (
	"fmt"

	"stockpilot/models"
)

// Summarize condenses the latest annotated bar into the textual market
// summary fed to the decision oracle. Only bars up to and including
// "today" may be passed in; the engine slices the series accordingly so no
// future data leaks into the prompt.
func Summarize(bars []models.PriceBar) models.TechnicalSummary {
	curr := bars[len(bars)-1]

	trend := "bearish"
	if curr.Close > curr.MA60 {
		trend = "bullish"
	}
	obvSignal := "distribution"
	if curr.OBV > curr.OBVMA {
		obvSignal = "accumulation"
	}

	contextStr := fmt.Sprintf(
		"Price: %.2f, MA20: %.2f, MA60: %.2f\n"+
			"Bollinger upper: %.2f, lower: %.2f\n"+
			"KD: K=%.2f, D=%.2f\n"+
			"MACD: %.2f\n"+
			"OBV trend: %s",
		curr.Close, curr.MA20, curr.MA60,
		curr.BollUpper, curr.BollLower,
		curr.K, curr.D,
		curr.MACD,
		obvSignal,
	)

	return models.TechnicalSummary{
		Close:      curr.Close,
		Trend:      trend,
		OBVSignal:  obvSignal,
		ContextStr: contextStr,
	}
}
