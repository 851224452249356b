package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stockpilot/config"
	"stockpilot/internal/backtest"
	"stockpilot/internal/dataflows"
	"stockpilot/internal/oracle"
	"stockpilot/internal/storage/sqlite"
	"stockpilot/internal/util"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "stockpilot",
		Short: "stockpilot - AI-signal daily-bar backtester",
		Long: `stockpilot replays historical daily bars through a trading policy whose
entry and exit decisions come from an LLM decision oracle, simulating
next-day fills, stop-loss/take-profit exits and transaction costs.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newBacktestCmd(cfg))
	rootCmd.AddCommand(newHistoryCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newBacktestCmd creates the backtest command
func newBacktestCmd(cfg *config.Config) *cobra.Command {
	var (
		capital   float64
		provider  string
		model     string
		noCache   bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "backtest SYMBOL",
		Short: "Run an oracle-driven backtest for a stock symbol",
		Long: `Run a backtest for a given stock symbol over the last year of daily bars.
Example: stockpilot backtest 2330 --capital 1000000 --provider gemini --model gemini-1.5-flash`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider != "" {
				cfg.OracleProvider = provider
			}
			if model != "" {
				cfg.OracleModel = model
			}
			if noCache {
				cfg.CacheEnabled = false
			}
			return runBacktestCommand(cmd.Context(), cfg, args[0], capital, asJSON)
		},
	}

	cmd.Flags().Float64Var(&capital, "capital", 1000000, "Initial capital in currency units")
	cmd.Flags().StringVar(&provider, "provider", "", "Oracle provider (gemini, openai, deepseek, ollama)")
	cmd.Flags().StringVar(&model, "model", "", "Oracle model name")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the result and bar-data caches, fetch and simulate fresh")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")

	return cmd
}

func runBacktestCommand(ctx context.Context, cfg *config.Config, symbol string, capital float64, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	symbol = dataflows.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if capital <= 0 {
		return fmt.Errorf("capital must be positive")
	}

	logger := util.NewLogger(cfg.LogLevel)

	provider, err := newBarProvider(cfg)
	if err != nil {
		return err
	}

	bars, err := provider.DailyBars(ctx, symbol, cfg.HistoryDays)
	if err != nil {
		return fmt.Errorf("fetch price series: %w", err)
	}
	annotated := dataflows.Annotate(bars)

	client, err := oracle.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init oracle: %w", err)
	}
	adapter := oracle.NewAdapter(client, time.Duration(cfg.OracleTimeout)*time.Second, logger)

	var store backtest.ResultStore
	if cfg.CacheEnabled {
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			logger.Warn("result cache unavailable, running without it", "error", err)
		} else {
			defer sqliteStore.Close()
			store = sqliteStore
		}
	}

	engine := backtest.NewEngine(adapter, store, logger)
	result, err := engine.Run(ctx, backtest.Request{
		StockID:        symbol,
		InitialCapital: capital,
		StrategyKey:    cfg.StrategyKey(),
		Bars:           annotated,
	})
	if err != nil {
		if errors.Is(err, backtest.ErrInsufficientData) {
			return fmt.Errorf("%s: %w", symbol, err)
		}
		return fmt.Errorf("backtest failed: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(renderResult(result))
	return nil
}

func newBarProvider(cfg *config.Config) (dataflows.BarProvider, error) {
	switch cfg.BarProvider {
	case "", "yahoo":
		return dataflows.NewYahooClient(cfg), nil
	case "longport":
		return dataflows.NewLongportClient(cfg)
	default:
		return nil, fmt.Errorf("unknown bar provider %q", cfg.BarProvider)
	}
}

// newHistoryCmd creates the history command
func newHistoryCmd(cfg *config.Config) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "List persisted backtest runs for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.Open(cfg.SQLitePath)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), dataflows.NormalizeSymbol(args[0]), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, run := range runs {
				fmt.Printf("%s  %s  capital=%.0f  return=%+.2f%%  trades=%d\n",
					run.CreatedAt.Format("2006-01-02 15:04"),
					run.StrategyKey, run.InitialCapital,
					run.Result.TotalReturnPct, run.Result.TradeCount)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("stockpilot v1.0.0")
		},
	}
}

func showConfig(cfg *config.Config) {
	fmt.Println("Current configuration:")
	fmt.Printf("Project Directory:  %s\n", cfg.ProjectDir)
	fmt.Printf("Data Directory:     %s\n", cfg.DataDir)
	fmt.Printf("Cache Directory:    %s\n", cfg.DataCacheDir)
	fmt.Printf("SQLite Path:        %s\n", cfg.SQLitePath)
	fmt.Println()
	fmt.Printf("Oracle Provider:    %s\n", cfg.OracleProvider)
	fmt.Printf("Oracle Model:       %s\n", cfg.OracleModel)
	fmt.Printf("Oracle Base URL:    %s\n", cfg.OracleBaseURL)
	fmt.Printf("Oracle Timeout:     %ds\n", cfg.OracleTimeout)
	fmt.Printf("Strategy Key:       %s\n", cfg.StrategyKey())
	fmt.Println()
	fmt.Printf("Bar Provider:       %s\n", cfg.BarProvider)
	fmt.Printf("History Days:       %d\n", cfg.HistoryDays)
	fmt.Printf("Cache Enabled:      %t\n", cfg.CacheEnabled)
	fmt.Printf("Log Level:          %s\n", cfg.LogLevel)

	fmt.Println()
	fmt.Println("API configuration:")
	if cfg.GeminiAPIKey != "" {
		fmt.Println("Gemini API:         configured")
	} else {
		fmt.Println("Gemini API:         not configured")
	}
	if cfg.OpenAIAPIKey != "" {
		fmt.Println("OpenAI-compat API:  configured")
	} else {
		fmt.Println("OpenAI-compat API:  not configured")
	}
	if cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != "" {
		fmt.Println("Longport API:       configured")
	} else {
		fmt.Println("Longport API:       not configured")
	}
}

func validateConfig(cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("directory validation failed: %w", err)
	}

	switch cfg.OracleProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			fmt.Println("warning: GEMINI_API_KEY not set; oracle calls will degrade to HOLD")
		}
	case "openai", "deepseek":
		if cfg.OpenAIAPIKey == "" {
			fmt.Println("warning: OPENAI_API_KEY not set; oracle calls will degrade to HOLD")
		}
	case "ollama":
		// local backend, no key needed
	default:
		return fmt.Errorf("unknown oracle provider %q", cfg.OracleProvider)
	}

	if cfg.BarProvider == "longport" {
		if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
			return fmt.Errorf("longport bar provider selected but credentials are missing")
		}
	}

	if cfg.OracleTimeout <= 0 {
		return fmt.Errorf("oracle timeout must be positive")
	}

	fmt.Println("configuration ok")
	return nil
}
