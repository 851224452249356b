package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"stockpilot/models"
)

type wireSignal struct {
	Action     string  `json:"action"`
	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Reason     string  `json:"reason"`
}

// ParseSignal extracts a trade signal from raw oracle output. Text-model
// responses routinely wrap the JSON in markdown fences or commentary, so
// only the first top-level JSON object is considered; unknown extra fields
// are ignored.
func ParseSignal(raw string) (models.TradeSignal, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return models.TradeSignal{}, err
	}

	var wire wireSignal
	if err := json.Unmarshal([]byte(obj), &wire); err != nil {
		return models.TradeSignal{}, fmt.Errorf("decode signal: %w", err)
	}

	action := strings.ToUpper(strings.TrimSpace(wire.Action))
	switch action {
	case models.ActionHold:
		return models.Hold(wire.Reason), nil
	case models.ActionBuy:
		if wire.EntryPrice <= 0 || wire.StopLoss <= 0 || wire.TakeProfit <= 0 {
			return models.TradeSignal{}, fmt.Errorf("BUY signal missing price levels")
		}
		return models.TradeSignal{
			Action:     models.ActionBuy,
			EntryPrice: wire.EntryPrice,
			StopLoss:   wire.StopLoss,
			TakeProfit: wire.TakeProfit,
			Reason:     wire.Reason,
		}, nil
	default:
		return models.TradeSignal{}, fmt.Errorf("unknown action %q", wire.Action)
	}
}

// extractJSONObject returns the first balanced top-level {...} block,
// skipping braces inside JSON strings.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}
