// Package sqlite persists backtest results. The table is append-only: a
// run is inserted once and never updated or deleted, so the history of
// runs stays queryable for comparison across strategies.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stockpilot/internal/backtest"
	"stockpilot/models"
)

// freshnessWindow bounds how old a cached result may be before a lookup
// treats it as a miss.
const freshnessWindow = 24 * time.Hour

type Store struct {
	db *sql.DB
}

// RunRecord is one persisted backtest run with its storage metadata.
type RunRecord struct {
	ID             int64
	StockID        string
	StrategyKey    string
	InitialCapital float64
	CreatedAt      time.Time
	Result         models.BacktestResult
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS backtest_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stock_id TEXT NOT NULL,
    strategy_key TEXT NOT NULL,
    initial_capital REAL NOT NULL,
    result_data TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backtest_fingerprint
    ON backtest_records(stock_id, strategy_key, created_at);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Store appends the result under its fingerprint. Duplicate stores for the
// same fingerprint are tolerated; every run remains queryable.
func (s *Store) Store(ctx context.Context, fp backtest.Fingerprint, result *models.BacktestResult) error {
	return s.storeAt(ctx, fp, result, time.Now().UTC())
}

func (s *Store) storeAt(ctx context.Context, fp backtest.Fingerprint, result *models.BacktestResult, createdAt time.Time) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO backtest_records (stock_id, strategy_key, initial_capital, result_data, created_at)
VALUES (?, ?, ?, ?, ?)
`, fp.StockID, fp.StrategyKey, fp.InitialCapital, string(data), createdAt)
	if err != nil {
		return fmt.Errorf("insert backtest record: %w", err)
	}
	return nil
}

// Lookup returns the most recent result for the fingerprint inside the
// freshness window, or nil on a miss. Fingerprint equality is exact on
// stock id, initial capital and strategy key.
func (s *Store) Lookup(ctx context.Context, fp backtest.Fingerprint) (*models.BacktestResult, error) {
	cutoff := time.Now().UTC().Add(-freshnessWindow)

	row := s.db.QueryRowContext(ctx, `
SELECT result_data
FROM backtest_records
WHERE stock_id = ? AND strategy_key = ? AND initial_capital = ? AND created_at >= ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, fp.StockID, fp.StrategyKey, fp.InitialCapital, cutoff)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup backtest record: %w", err)
	}

	var result models.BacktestResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, nil
}

// ListRuns returns the most recent runs for a stock, newest first, for
// history reporting.
func (s *Store) ListRuns(ctx context.Context, stockID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, stock_id, strategy_key, initial_capital, result_data, created_at
FROM backtest_records
WHERE stock_id = ?
ORDER BY id DESC
LIMIT ?
`, stockID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var data string
		if err := rows.Scan(&rec.ID, &rec.StockID, &rec.StrategyKey, &rec.InitialCapital, &data, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Result); err != nil {
			return nil, fmt.Errorf("decode run %d: %w", rec.ID, err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs rows: %w", err)
	}
	return runs, nil
}
