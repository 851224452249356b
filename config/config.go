package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectDir   string `json:"project_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`
	SQLitePath   string `json:"sqlite_path"`

	// Oracle (LLM) settings.
	OracleProvider string `json:"oracle_provider"` // "gemini" or any OpenAI-compatible backend
	OracleModel    string `json:"oracle_model"`
	OracleBaseURL  string `json:"oracle_base_url"`
	OracleTimeout  int    `json:"oracle_timeout_seconds"`

	// API keys.
	GeminiAPIKey string `json:"gemini_api_key"`
	OpenAIAPIKey string `json:"openai_api_key"`

	// Longport API configuration (alternate bar provider).
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Bar provider: "yahoo" (default) or "longport".
	BarProvider string `json:"bar_provider"`
	HistoryDays int    `json:"history_days"`

	CacheEnabled bool   `json:"cache_enabled"`
	LogLevel     string `json:"log_level"`
	Debug        bool   `json:"debug"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),
		SQLitePath:   filepath.Join(currentDir, "data", "stockpilot.db"),

		OracleProvider: "gemini",
		OracleModel:    "gemini-1.5-flash",
		OracleBaseURL:  "",
		OracleTimeout:  60,

		BarProvider: "yahoo",
		HistoryDays: 365,

		CacheEnabled: true,
		LogLevel:     "info",
		Debug:        false,
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	// Override with environment variables if they exist
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}
	if val := os.Getenv("SQLITE_PATH"); val != "" {
		c.SQLitePath = val
	}

	if val := os.Getenv("ORACLE_PROVIDER"); val != "" {
		c.OracleProvider = val
	}
	if val := os.Getenv("ORACLE_MODEL"); val != "" {
		c.OracleModel = val
	}
	if val := os.Getenv("ORACLE_BASE_URL"); val != "" {
		c.OracleBaseURL = val
	}
	if val := os.Getenv("ORACLE_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.OracleTimeout = v
		}
	}

	if val := os.Getenv("GEMINI_API_KEY"); val != "" {
		c.GeminiAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("BAR_PROVIDER"); val != "" {
		c.BarProvider = val
	}
	if val := os.Getenv("HISTORY_DAYS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.HistoryDays = v
		}
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if cache, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = cache
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("STOCKPILOT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
}

// StrategyKey uniquely encodes the oracle configuration so backtests run
// with different providers or models never collide in the result cache.
func (c *Config) StrategyKey() string {
	return fmt.Sprintf("Backtest_%s_%s", c.OracleProvider, c.OracleModel)
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.DataDir, c.DataCacheDir, filepath.Dir(c.SQLitePath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
