package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stockpilot/internal/backtest"
	"stockpilot/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "stockpilot.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult(equity int64) *models.BacktestResult {
	return &models.BacktestResult{
		StockID:        "2330",
		InitialCapital: 1000000,
		FinalEquity:    equity,
		TotalReturnPct: 5.5,
		TradeCount:     1,
		Trades: []models.TradeRecord{{
			EntryDate:  "2024-03-01",
			ExitDate:   "2024-03-10",
			StockID:    "2330",
			Side:       "Long",
			EntryPrice: 99.5,
			ExitPrice:  110,
			Shares:     9849,
			Profit:     97225,
			ProfitPct:  9.91,
			Reason:     models.ExitTakeProfit,
		}},
		EquityCurve: []models.EquitySample{{Date: "2024-03-01", Equity: 1000000}},
	}
}

func TestStoreLookupRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	fp := backtest.Fingerprint{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}

	if err := store.Store(ctx, fp, sampleResult(1055000)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := store.Lookup(ctx, fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got == nil {
		t.Fatal("Lookup returned nil, want a hit")
	}
	if got.FinalEquity != 1055000 || got.TradeCount != 1 {
		t.Fatalf("cached result = %+v", got)
	}
	if len(got.Trades) != 1 || got.Trades[0].Reason != models.ExitTakeProfit {
		t.Fatalf("trades not preserved: %+v", got.Trades)
	}
}

func TestLookupMissOnDifferentFingerprint(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	fp := backtest.Fingerprint{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}

	if err := store.Store(ctx, fp, sampleResult(1055000)); err != nil {
		t.Fatalf("Store: %v", err)
	}

	cases := []backtest.Fingerprint{
		{StockID: "2317", InitialCapital: 1000000, StrategyKey: fp.StrategyKey},
		{StockID: "2330", InitialCapital: 500000, StrategyKey: fp.StrategyKey},
		{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_openai_gpt-4o-mini"},
	}
	for _, c := range cases {
		got, err := store.Lookup(ctx, c)
		if err != nil {
			t.Fatalf("Lookup %+v: %v", c, err)
		}
		if got != nil {
			t.Fatalf("Lookup %+v hit, want miss", c)
		}
	}
}

func TestLookupIgnoresStaleEntries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	fp := backtest.Fingerprint{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}

	stale := time.Now().UTC().Add(-25 * time.Hour)
	if err := store.storeAt(ctx, fp, sampleResult(1055000), stale); err != nil {
		t.Fatalf("storeAt: %v", err)
	}

	got, err := store.Lookup(ctx, fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != nil {
		t.Fatal("stale entry served, want miss")
	}
}

func TestLookupReturnsNewest(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	fp := backtest.Fingerprint{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}

	now := time.Now().UTC()
	if err := store.storeAt(ctx, fp, sampleResult(1010000), now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("storeAt old: %v", err)
	}
	if err := store.storeAt(ctx, fp, sampleResult(1020000), now.Add(-time.Hour)); err != nil {
		t.Fatalf("storeAt new: %v", err)
	}

	got, err := store.Lookup(ctx, fp)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got == nil || got.FinalEquity != 1020000 {
		t.Fatalf("got %+v, want the newest entry", got)
	}
}

func TestStoreIsAppendOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	fp := backtest.Fingerprint{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}

	if err := store.Store(ctx, fp, sampleResult(1010000)); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.Store(ctx, fp, sampleResult(1020000)); err != nil {
		t.Fatalf("Store duplicate fingerprint: %v", err)
	}

	runs, err := store.ListRuns(ctx, "2330", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want both retained", len(runs))
	}
}

func TestListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, equity := range []int64{1010000, 1020000, 1030000} {
		fp := backtest.Fingerprint{StockID: "2330", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}
		if err := store.Store(ctx, fp, sampleResult(equity)); err != nil {
			t.Fatalf("Store %d: %v", i, err)
		}
	}
	other := backtest.Fingerprint{StockID: "2317", InitialCapital: 1000000, StrategyKey: "Backtest_gemini_gemini-1.5-flash"}
	if err := store.Store(ctx, other, sampleResult(999000)); err != nil {
		t.Fatalf("Store other symbol: %v", err)
	}

	runs, err := store.ListRuns(ctx, "2330", 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want limit applied", len(runs))
	}
	// Newest first.
	if runs[0].Result.FinalEquity != 1030000 || runs[1].Result.FinalEquity != 1020000 {
		t.Fatalf("order wrong: %d, %d", runs[0].Result.FinalEquity, runs[1].Result.FinalEquity)
	}
	for _, run := range runs {
		if run.StockID != "2330" {
			t.Fatalf("run for %s leaked into listing", run.StockID)
		}
	}
}
