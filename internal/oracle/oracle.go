// Package oracle is the boundary to the external signal generator. The
// engine only ever sees typed TradeSignals: transport failures, timeouts
// and malformed responses all degrade to HOLD here and never propagate.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stockpilot/config"
	"stockpilot/models"
)

// Client is the raw text-completion transport behind the adapter.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Adapter turns market summaries into trade signals. It is fail-safe by
// contract: Decide never returns an error. There is no retry; a single
// failure becomes HOLD immediately and the engine's cooldown keeps a
// failing oracle from being hammered.
type Adapter struct {
	client  Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewAdapter wraps a client with a per-call wall-clock budget so a hung
// oracle cannot stall a simulation indefinitely.
func NewAdapter(client Client, timeout time.Duration, logger *slog.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{client: client, timeout: timeout, logger: logger}
}

// Decide asks the oracle for a decision on stockID given the market
// summary. Any failure is converted into a HOLD signal carrying a
// diagnostic reason.
func (a *Adapter) Decide(ctx context.Context, stockID string, summary models.TechnicalSummary) models.TradeSignal {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.Complete(ctx, buildPrompt(stockID, summary))
	if err != nil {
		a.logger.Warn("oracle call failed", "stock_id", stockID, "error", err)
		return models.Hold(fmt.Sprintf("oracle unavailable: %v", err))
	}

	signal, err := ParseSignal(raw)
	if err != nil {
		a.logger.Warn("oracle response unparseable", "stock_id", stockID, "error", err)
		return models.Hold(fmt.Sprintf("unparseable oracle response: %v", err))
	}
	return signal
}

// NewClient builds the configured transport. Every OpenAI-compatible
// backend (openai, deepseek, ollama) goes through the chat-model client;
// gemini speaks its own REST dialect.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.OracleProvider {
	case "gemini":
		return NewGeminiClient(cfg), nil
	case "openai", "deepseek", "ollama":
		return NewOpenAIClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.OracleProvider)
	}
}

func buildPrompt(stockID string, summary models.TechnicalSummary) string {
	return fmt.Sprintf(`You are a seasoned Taiwan stock swing trader reviewing %s.

Latest technical snapshot:
%s

Decide whether to place a limit buy order for the next few sessions.
Respond with ONLY a JSON object, no other text:
{"action": "BUY" or "HOLD", "entry_price": number, "stop_loss": number, "take_profit": number, "reason": "one short sentence"}

For HOLD, entry_price, stop_loss and take_profit may be omitted. For BUY
they are required, with stop_loss below entry_price and take_profit above.`,
		stockID, summary.ContextStr)
}
