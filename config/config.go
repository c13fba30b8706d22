// Package config manages application settings and trading contexts. The
// application config lives at ~/.clt/config.yaml; each context (account
// credentials, strategy parameters, watchlist) is its own YAML file under
// ~/.clt/context/.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BaseDir returns the clt settings directory, creating it if needed.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".clt")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create settings directory: %w", err)
	}
	return dir, nil
}

// Config is the application-level configuration.
type Config struct {
	Context  string         `mapstructure:"context"` // name of the active context
	LogLevel string         `mapstructure:"log_level"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// JournalConfig locates the order/run journal.
type JournalConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// StrategyConfig carries the rebalance loop's tunables.
type StrategyConfig struct {
	Allocation       float64       `mapstructure:"allocation"` // fraction per position
	PortfolioSize    int           `mapstructure:"portfolio_size"`
	Lookback         int           `mapstructure:"lookback"`
	QualityThreshold float64       `mapstructure:"quality_threshold"`
	UniverseSize     int           `mapstructure:"universe_size"`
	BarInterval      time.Duration `mapstructure:"bar_interval"`
	ChunkSize        int           `mapstructure:"chunk_size"`
	ChunkPause       time.Duration `mapstructure:"chunk_pause"`
	RebalanceHour    int           `mapstructure:"rebalance_hour"`
	FillWait         time.Duration `mapstructure:"fill_wait"` // 0 waits indefinitely
	TiingoToken      string        `mapstructure:"tiingo_token"`
}

// TelegramConfig enables rebalance notifications.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Load reads ~/.clt/config.yaml, applying defaults and CLT_* environment
// overrides. A missing file yields the defaults.
func Load() (*Config, error) {
	dir, err := BaseDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "config.yaml"))
	setDefaults(v, dir)

	v.SetEnvPrefix("CLT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("context", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("journal.db_path", filepath.Join(dir, "clt.sqlite"))

	v.SetDefault("strategy.allocation", 0.02)
	v.SetDefault("strategy.portfolio_size", 25)
	v.SetDefault("strategy.lookback", 130)
	v.SetDefault("strategy.quality_threshold", 0.93)
	v.SetDefault("strategy.universe_size", 4000)
	v.SetDefault("strategy.bar_interval", "15m")
	v.SetDefault("strategy.chunk_size", 100)
	v.SetDefault("strategy.chunk_pause", "2s")
	v.SetDefault("strategy.rebalance_hour", 12)
	v.SetDefault("strategy.fill_wait", "0s")

	v.SetDefault("telegram.enabled", false)
}

// Validate checks the configuration's internal consistency.
func (c *Config) Validate() error {
	if c.Strategy.Allocation <= 0 || c.Strategy.Allocation > 1 {
		return fmt.Errorf("strategy.allocation must be in (0, 1]")
	}
	if c.Strategy.PortfolioSize < 1 {
		return fmt.Errorf("strategy.portfolio_size must be at least 1")
	}
	if c.Strategy.Lookback < 2 {
		return fmt.Errorf("strategy.lookback must be at least 2")
	}
	if c.Strategy.QualityThreshold <= 0 || c.Strategy.QualityThreshold > 1 {
		return fmt.Errorf("strategy.quality_threshold must be in (0, 1]")
	}
	if c.Strategy.UniverseSize < 1 {
		return fmt.Errorf("strategy.universe_size must be at least 1")
	}
	if c.Strategy.BarInterval < time.Minute {
		return fmt.Errorf("strategy.bar_interval must be at least 1 minute")
	}
	if c.Strategy.ChunkSize < 1 {
		return fmt.Errorf("strategy.chunk_size must be at least 1")
	}
	if c.Strategy.RebalanceHour < 0 || c.Strategy.RebalanceHour > 23 {
		return fmt.Errorf("strategy.rebalance_hour must be an hour of day")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// Save writes the config back to ~/.clt/config.yaml.
func (c *Config) Save() error {
	dir, err := BaseDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.Set("context", c.Context)
	v.Set("log_level", c.LogLevel)
	v.Set("journal.db_path", c.Journal.DBPath)
	v.Set("strategy.allocation", c.Strategy.Allocation)
	v.Set("strategy.portfolio_size", c.Strategy.PortfolioSize)
	v.Set("strategy.lookback", c.Strategy.Lookback)
	v.Set("strategy.quality_threshold", c.Strategy.QualityThreshold)
	v.Set("strategy.universe_size", c.Strategy.UniverseSize)
	v.Set("strategy.bar_interval", c.Strategy.BarInterval.String())
	v.Set("strategy.chunk_size", c.Strategy.ChunkSize)
	v.Set("strategy.chunk_pause", c.Strategy.ChunkPause.String())
	v.Set("strategy.rebalance_hour", c.Strategy.RebalanceHour)
	v.Set("strategy.fill_wait", c.Strategy.FillWait.String())
	v.Set("strategy.tiingo_token", c.Strategy.TiingoToken)
	v.Set("telegram.enabled", c.Telegram.Enabled)
	v.Set("telegram.bot_token", c.Telegram.BotToken)
	v.Set("telegram.chat_id", c.Telegram.ChatID)

	if err := v.WriteConfigAs(filepath.Join(dir, "config.yaml")); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
