package models

import "time"

// PriceBar is one trading day of OHLCV data plus the technical indicator
// fields computed by the series provider. Bars are ordered ascending by
// date and unique per date; they are never mutated after annotation.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`

	MA20      float64 `json:"ma20"`
	MA60      float64 `json:"ma60"`
	BollUpper float64 `json:"boll_upper"`
	BollLower float64 `json:"boll_lower"`
	K         float64 `json:"k"`
	D         float64 `json:"d"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	OBV       float64 `json:"obv"`
	OBVMA     float64 `json:"obv_ma"`
}

// DateString returns the bar date in ISO-8601 day format.
func (b PriceBar) DateString() string {
	return b.Date.Format("2006-01-02")
}

// TechnicalSummary condenses the latest annotated bar into the context
// handed to the decision oracle.
type TechnicalSummary struct {
	Close      float64 `json:"close"`
	Trend      string  `json:"trend"`
	OBVSignal  string  `json:"obv_signal"`
	ContextStr string  `json:"context_str"`
}
