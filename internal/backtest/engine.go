package backtest

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"stockpilot/internal/dataflows"
	"stockpilot/models"
)

// Simulation parameters. The warm-up window leaves room for the 60-day
// moving average; a pending order lives for five trading days; a HOLD
// answer silences the oracle for three.
const (
	minBars          = 100
	warmupBars       = 60
	orderExpiryDays  = 5
	holdCooldownDays = 3
	investableRatio  = 0.98
)

// ErrInsufficientData is returned when the annotated series is too short to
// warm up indicators and run a meaningful simulation.
var ErrInsufficientData = errors.New("insufficient data to backtest")

// Oracle produces a trade signal for a market summary. Implementations are
// fail-safe: a degraded call returns a HOLD signal carrying a diagnostic
// reason instead of an error, so a flaky oracle skips opportunities rather
// than aborting the run.
type Oracle interface {
	Decide(ctx context.Context, stockID string, summary models.TechnicalSummary) models.TradeSignal
}

// Fingerprint uniquely identifies a cacheable simulation request.
type Fingerprint struct {
	StockID        string
	InitialCapital float64
	StrategyKey    string
}

// ResultStore caches finished runs by fingerprint. Lookup returns nil on a
// miss; entries older than the store's freshness window count as misses.
type ResultStore interface {
	Lookup(ctx context.Context, fp Fingerprint) (*models.BacktestResult, error)
	Store(ctx context.Context, fp Fingerprint, result *models.BacktestResult) error
}

// Engine replays an indicator-annotated daily series through the
// position/order state machine, asking the oracle for a decision whenever
// it is flat and off cooldown. An Engine holds no state across runs;
// independent runs may execute concurrently on separate Engine values.
type Engine struct {
	oracle Oracle
	store  ResultStore
	logger *slog.Logger
}

// NewEngine wires an engine with its oracle and an optional result store.
// A nil store disables caching; the simulation itself is unaffected.
func NewEngine(oracle Oracle, store ResultStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{oracle: oracle, store: store, logger: logger}
}

// Request carries the inputs of one simulation run.
type Request struct {
	StockID        string
	InitialCapital float64
	StrategyKey    string
	Bars           []models.PriceBar
}

// Per-run machine state. The three states are mutually exclusive: the
// active payload is the one matching the current state tag, so a position
// and a pending order can never coexist.
type machineState int

const (
	stateFlatIdle machineState = iota
	statePendingOrder
	stateInPosition
)

type position struct {
	entryDate  string
	entryPrice float64
	shares     int64
	costBasis  float64
	stopLoss   float64
	takeProfit float64
}

type pendingOrder struct {
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	expiry     int
	reason     string
}

// Run serves the request from the cache when a fresh entry exists,
// otherwise simulates and stores the new result. Cache failures are logged
// and ignored; caching is an optimization, never a correctness dependency.
func (e *Engine) Run(ctx context.Context, req Request) (*models.BacktestResult, error) {
	fp := Fingerprint{StockID: req.StockID, InitialCapital: req.InitialCapital, StrategyKey: req.StrategyKey}

	if e.store != nil {
		cached, err := e.store.Lookup(ctx, fp)
		if err != nil {
			e.logger.Warn("cache lookup failed, simulating fresh", "stock_id", req.StockID, "error", err)
		} else if cached != nil {
			e.logger.Info("cache hit", "stock_id", req.StockID, "strategy_key", req.StrategyKey)
			return cached, nil
		}
	}

	result, err := e.simulate(ctx, req)
	if err != nil {
		return nil, err
	}

	if e.store != nil {
		if err := e.store.Store(ctx, fp, result); err != nil {
			e.logger.Warn("cache store failed", "stock_id", req.StockID, "error", err)
		}
	}
	return result, nil
}

func (e *Engine) simulate(ctx context.Context, req Request) (*models.BacktestResult, error) {
	bars := req.Bars
	if len(bars) < minBars {
		return nil, ErrInsufficientData
	}

	balance := req.InitialCapital
	state := stateFlatIdle
	var pos position
	var order pendingOrder
	cooldown := 0

	trades := []models.TradeRecord{}
	curve := []models.EquitySample{}

	// The loop evaluates today's decision against tomorrow's bar to model
	// next-day execution, so it stops one bar before the end.
	for i := warmupBars; i < len(bars)-1; i++ {
		curr := bars[i]
		next := bars[i+1]

		// Equity snapshot before any transition.
		equity := balance
		if state == stateInPosition {
			equity += float64(pos.shares) * curr.Close
		}
		curve = append(curve, models.EquitySample{Date: curr.DateString(), Equity: equity})

		switch state {
		case stateInPosition:
			// Stop-loss first: assume the worse outcome occurs first
			// within the day.
			var exitPrice float64
			var reason string
			if next.Low <= pos.stopLoss {
				exitPrice = math.Min(next.Open, pos.stopLoss)
				reason = models.ExitStopLoss
			} else if next.High >= pos.takeProfit {
				exitPrice = math.Max(next.Open, pos.takeProfit)
				reason = models.ExitTakeProfit
			}
			if reason == "" {
				continue
			}

			revenue := Cost(exitPrice, pos.shares, false)
			balance += revenue
			profit := revenue - pos.costBasis
			trades = append(trades, models.TradeRecord{
				EntryDate:  pos.entryDate,
				ExitDate:   next.DateString(),
				StockID:    req.StockID,
				Side:       "Long",
				EntryPrice: pos.entryPrice,
				ExitPrice:  exitPrice,
				Shares:     pos.shares,
				Profit:     int64(profit),
				ProfitPct:  round2(profit / pos.costBasis * 100),
				Reason:     reason,
			})
			state = stateFlatIdle
			cooldown = 0 // just sold, allow an immediate re-query

		case statePendingOrder:
			order.expiry--
			if order.expiry <= 0 {
				state = stateFlatIdle
				cooldown = 0
				continue
			}
			if next.Low > order.entryPrice {
				continue
			}
			// Filled. A gap-down opening below the limit gets the better
			// price.
			fillPrice := math.Min(next.Open, order.entryPrice)
			shares := int64(balance * investableRatio / fillPrice)
			if shares <= 0 {
				continue
			}
			costBasis := Cost(fillPrice, shares, true)
			if balance < costBasis {
				// Not enough cash once the fee is added; the opportunity
				// lapses for today.
				continue
			}
			balance -= costBasis
			pos = position{
				entryDate:  next.DateString(),
				entryPrice: fillPrice,
				shares:     shares,
				costBasis:  costBasis,
				stopLoss:   order.stopLoss,
				takeProfit: order.takeProfit,
			}
			state = stateInPosition

		default: // flat, no pending order
			if cooldown > 0 {
				cooldown--
				continue
			}
			summary := dataflows.Summarize(bars[:i+1])
			signal := e.oracle.Decide(ctx, req.StockID, summary)
			if signal.IsBuy() {
				order = pendingOrder{
					entryPrice: signal.EntryPrice,
					stopLoss:   signal.StopLoss,
					takeProfit: signal.TakeProfit,
					expiry:     orderExpiryDays,
					reason:     signal.Reason,
				}
				state = statePendingOrder
			} else {
				cooldown = holdCooldownDays
			}
		}
	}

	// A position still open at the horizon is marked to market at the last
	// close. Exit costs are not deducted from this snapshot: it is
	// unrealized, not realized, P&L.
	finalEquity := balance
	if state == stateInPosition {
		finalEquity += float64(pos.shares) * bars[len(bars)-1].Close
	}

	return &models.BacktestResult{
		StockID:        req.StockID,
		InitialCapital: req.InitialCapital,
		FinalEquity:    int64(finalEquity),
		TotalReturnPct: round2((finalEquity - req.InitialCapital) / req.InitialCapital * 100),
		TradeCount:     len(trades),
		Trades:         trades,
		EquityCurve:    curve,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
