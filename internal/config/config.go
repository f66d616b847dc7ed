// Package config loads settings for the tripeaks binaries: built-in defaults,
// then an optional TOML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list event records are pushed to.
const DefaultQueueName = "tripeaks_events"

// Config represents the application configuration
type Config struct {
	Layout    string `toml:"layout" env:"TRIPEAKS_LAYOUT"`
	Catalog   string `toml:"catalog" env:"TRIPEAKS_CATALOG"`
	Seed      *int64 `toml:"seed" env:"TRIPEAKS_SEED"`
	LogLevel  string `toml:"log_level" env:"TRIPEAKS_LOG_LEVEL"`
	HistoryDB string `toml:"history_db" env:"TRIPEAKS_HISTORY_DB"`

	Redis     RedisConfig     `toml:"redis"`
	Historian HistorianConfig `toml:"historian"`
}

type RedisConfig struct {
	Addr  string `toml:"addr" env:"REDIS_ADDR"`
	DB    int    `toml:"db" env:"REDIS_DB"`
	Queue string `toml:"queue" env:"HISTORIAN_QUEUE_NAME"`
}

type HistorianConfig struct {
	DatabaseURL          string `toml:"database_url" env:"DATABASE_URL"`
	BatchSize            int    `toml:"batch_size" env:"HISTORIAN_BATCH_SIZE"`
	FlushMS              int    `toml:"flush_ms" env:"HISTORIAN_FLUSH_MS"`
	InactivityTimeoutSec int    `toml:"inactivity_timeout_sec" env:"GAME_INACTIVITY_TIMEOUT_SEC"`
}

// FlushDelay is the longest a partial batch waits before it is written.
func (h HistorianConfig) FlushDelay() time.Duration {
	return time.Duration(h.FlushMS) * time.Millisecond
}

// InactivityTimeout is how long a game may go without events before it is
// marked abandoned.
func (h HistorianConfig) InactivityTimeout() time.Duration {
	return time.Duration(h.InactivityTimeoutSec) * time.Second
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		HistoryDB: filepath.Join(GetXDGDataHome(), "tripeaks", "history.db"),
		Redis: RedisConfig{
			Addr:  "localhost:6379",
			Queue: DefaultQueueName,
		},
		Historian: HistorianConfig{
			BatchSize:            20,
			FlushMS:              500,
			InactivityTimeoutSec: 600,
		},
	}
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetXDGDataHome returns XDG_DATA_HOME or default path
func GetXDGDataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	return filepath.Join(GetXDGConfigHome(), "tripeaks", "config.toml")
}

// Load reads path (or the default config file when path is empty) over the
// defaults and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = GetConfigFilePath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("error decoding config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// NewLogger builds a text logger at level. Unknown levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
