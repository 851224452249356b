package dataflows

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"stockpilot/config"
	"stockpilot/models"
)

// BarProvider supplies an ordered daily series for an instrument. The bars
// are raw OHLCV; callers annotate indicators separately.
type BarProvider interface {
	DailyBars(ctx context.Context, stockID string, days int) ([]models.PriceBar, error)
}

// YahooClient fetches daily history from Yahoo Finance. Bare numeric
// Taiwan codes are resolved by trying the listed (.TW) market first and
// falling back to the OTC (.TWO) market.
type YahooClient struct {
	cache *CacheManager
}

// NewYahooClient creates a new Yahoo Finance client
func NewYahooClient(cfg *config.Config) *YahooClient {
	cacheDir := filepath.Join(cfg.DataCacheDir, "yahoo_finance")
	cache := NewCacheManager(cacheDir, 24*time.Hour, cfg.CacheEnabled)

	return &YahooClient{cache: cache}
}

// DailyBars returns up to days of daily history for stockID, oldest first.
func (yc *YahooClient) DailyBars(_ context.Context, stockID string, days int) ([]models.PriceBar, error) {
	symbol := NormalizeSymbol(stockID)
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	cacheKey := map[string]interface{}{
		"symbol": symbol,
		"start":  start.Format("2006-01-02"),
		"end":    end.Format("2006-01-02"),
	}

	var cached []models.PriceBar
	if yc.cache.Get("yahoo", "daily_bars", cacheKey, &cached) {
		return cached, nil
	}

	candidates := []string{symbol}
	if IsNumericCode(symbol) {
		candidates = []string{symbol + ".TW", symbol + ".TWO"}
	}

	var bars []models.PriceBar
	var lastErr error
	for _, ticker := range candidates {
		bars, lastErr = yc.fetch(ticker, start, end)
		if lastErr == nil && len(bars) > 0 {
			break
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price data for %s", stockID)
	}

	yc.cache.Set("yahoo", "daily_bars", cacheKey, bars)

	return bars, nil
}

func (yc *YahooClient) fetch(ticker string, start, end time.Time) ([]models.PriceBar, error) {
	var result []models.PriceBar
	err := WithRetry(DefaultRetryConfig(), func() error {
		params := &chart.Params{
			Symbol:   ticker,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		iter := chart.Get(params)

		result = result[:0]
		for iter.Next() {
			bar := iter.Bar()
			result = append(result, models.PriceBar{
				Date:   time.Unix(int64(bar.Timestamp), 0),
				Open:   bar.Open.InexactFloat64(),
				High:   bar.High.InexactFloat64(),
				Low:    bar.Low.InexactFloat64(),
				Close:  bar.Close.InexactFloat64(),
				Volume: int64(bar.Volume),
			})
		}

		if err := iter.Err(); err != nil {
			return fmt.Errorf("fetch history for %s: %w", ticker, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}
