package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"strategy-backtester/internal/logging"
)

// Config is the application-level configuration: everything about how a
// run executes that is not part of the strategy definition itself.
type Config struct {
	Backtest BacktestConfig `json:"backtest"`
	Logging  LoggingConfig  `json:"logging"`
}

// BacktestConfig holds the simulation defaults. Command-line flags
// override these per invocation.
type BacktestConfig struct {
	InitialBalance float64 `json:"initial_balance"`
	SpreadPips     float64 `json:"spread_pips"`
	Warmup         int     `json:"warmup"`        // minimum candles before the first entry
	TPBeforeSL     bool    `json:"tp_before_sl"`  // same-bar SL+TP resolution order
	SweepWorkers   int     `json:"sweep_workers"` // concurrent runs in sweep mode
}

// LoggingConfig mirrors logging.Config so a single config.json drives
// both.
type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

// ToLogging converts to the logging package's config.
func (c LoggingConfig) ToLogging() logging.Config {
	return logging.Config{Level: c.Level, Output: c.Output, JSONFormat: c.JSONFormat}
}

// Load reads config.json from the working directory when present, then
// applies environment overrides and defaults. Environment wins over file.
func Load() (*Config, error) {
	return LoadFile("config.json")
}

// LoadFile loads the named config file. A missing file is not an error;
// defaults and environment variables still apply.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Backtest.InitialBalance = getEnvFloatOrDefault("BACKTEST_INITIAL_BALANCE", cfg.Backtest.InitialBalance)
	cfg.Backtest.SpreadPips = getEnvFloatOrDefault("BACKTEST_SPREAD_PIPS", cfg.Backtest.SpreadPips)
	cfg.Backtest.Warmup = getEnvIntOrDefault("BACKTEST_WARMUP", cfg.Backtest.Warmup)
	cfg.Backtest.SweepWorkers = getEnvIntOrDefault("BACKTEST_SWEEP_WORKERS", cfg.Backtest.SweepWorkers)
	if v := os.Getenv("BACKTEST_TP_BEFORE_SL"); v != "" {
		cfg.Backtest.TPBeforeSL = v == "true"
	}

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.Output)
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.Logging.JSONFormat = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Backtest.InitialBalance <= 0 {
		cfg.Backtest.InitialBalance = 10000
	}
	if cfg.Backtest.Warmup <= 0 {
		cfg.Backtest.Warmup = 50
	}
	if cfg.Backtest.SweepWorkers <= 0 {
		cfg.Backtest.SweepWorkers = 4
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
