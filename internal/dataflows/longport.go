package dataflows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"

	"stockpilot/config"
	"stockpilot/models"
)

// LongportClient is the alternate bar provider, backed by the Longport
// OpenAPI daily candlesticks.
type LongportClient struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportClient(cfg *config.Config) (*LongportClient, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{quoteCtx: quoteContext}, nil
}

// DailyBars returns up to days of daily candlesticks for stockID, oldest
// first. Longport counts bars, not calendar days, so the request is capped
// at the trading-day equivalent of the window.
func (lpc *LongportClient) DailyBars(ctx context.Context, stockID string, days int) ([]models.PriceBar, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}

	count := days * 5 / 7 // calendar days to trading days, roughly
	if count < 1 {
		count = 1
	}

	sticks, err := lpc.quoteCtx.Candlesticks(ctx, NormalizeSymbol(stockID), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("fetch candlesticks for %s: %w", stockID, err)
	}

	bars := make([]models.PriceBar, 0, len(sticks))
	for _, s := range sticks {
		bars = append(bars, models.PriceBar{
			Date:   time.Unix(s.Timestamp, 0),
			Open:   s.Open.InexactFloat64(),
			High:   s.High.InexactFloat64(),
			Low:    s.Low.InexactFloat64(),
			Close:  s.Close.InexactFloat64(),
			Volume: s.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
