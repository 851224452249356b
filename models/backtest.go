package models

// Exit reasons recorded on completed round-trips.
const (
	ExitStopLoss   = "stop-loss"
	ExitTakeProfit = "take-profit"
)

// TradeRecord is one completed round-trip. Profit is the net cash result
// after buy and sell costs, truncated to whole currency units.
type TradeRecord struct {
	EntryDate  string  `json:"entry_date"`
	ExitDate   string  `json:"exit_date"`
	StockID    string  `json:"stock_id"`
	Side       string  `json:"type"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	Shares     int64   `json:"shares"`
	Profit     int64   `json:"profit"`
	ProfitPct  float64 `json:"profit_pct"`
	Reason     string  `json:"reason"`
}

// EquitySample is one point of the daily equity curve: cash plus the
// mark-to-market value of any open position.
type EquitySample struct {
	Date   string  `json:"date"`
	Equity float64 `json:"equity"`
}

// BacktestResult is the immutable output of one simulation run. It is
// persisted verbatim to the result cache and returned unchanged on hits.
type BacktestResult struct {
	StockID        string         `json:"stock_id"`
	InitialCapital float64        `json:"initial_capital"`
	FinalEquity    int64          `json:"final_equity"`
	TotalReturnPct float64        `json:"total_return_pct"`
	TradeCount     int            `json:"trade_count"`
	Trades         []TradeRecord  `json:"trades"`
	EquityCurve    []EquitySample `json:"equity_curve"`
}
