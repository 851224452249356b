package models

// Trade signal actions returned by the decision oracle.
const (
	ActionBuy  = "BUY"
	ActionHold = "HOLD"
)

// TradeSignal is the typed decision returned by the oracle adapter. A BUY
// carries the suggested entry, stop-loss and take-profit levels; a HOLD
// carries only the reason (which may be a diagnostic when the oracle call
// degraded).
type TradeSignal struct {
	Action     string  `json:"action"`
	EntryPrice float64 `json:"entry_price,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	Reason     string  `json:"reason"`
}

// IsBuy reports whether the signal asks to open a position.
func (s TradeSignal) IsBuy() bool {
	return s.Action == ActionBuy
}

// Hold builds a HOLD signal with the given reason.
func Hold(reason string) TradeSignal {
	return TradeSignal{Action: ActionHold, Reason: reason}
}
