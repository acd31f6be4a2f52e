// Package config loads the rewards daemon configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clm-rewards/internal/domain"
)

// PoolConfig describes one pool the daemon tracks.
type PoolConfig struct {
	// Address is the pool address (base58).
	Address string `yaml:"address"`
	// InitialTick seeds the accumulator when no feed update arrived yet.
	InitialTick int32 `yaml:"initial_tick"`
	// RewardMints are the reward token mints registered at startup.
	RewardMints []string `yaml:"reward_mints"`
}

// TickFeedConfig configures the WebSocket tick feed.
type TickFeedConfig struct {
	// Endpoint is the ws:// or wss:// URL of the tick feed.
	Endpoint string `yaml:"endpoint"`
}

// Config is the full rewards daemon configuration.
type Config struct {
	// HTTPAddr is the listen address for health and status endpoints.
	HTTPAddr string `yaml:"http_addr"`
	// SyncIntervalSeconds is how often every pool is synced against the
	// stream, independent of tick movement.
	SyncIntervalSeconds int `yaml:"sync_interval_seconds"`
	// BurnPolicy selects claim or forfeit behavior for burned positions.
	BurnPolicy string `yaml:"burn_policy"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`

	TickFeed TickFeedConfig `yaml:"tick_feed"`
	Pools    []PoolConfig   `yaml:"pools"`
}

// Default returns the configuration defaults applied before the file is read.
func Default() Config {
	return Config{
		HTTPAddr:            ":8080",
		SyncIntervalSeconds: 30,
		BurnPolicy:          string(domain.BurnClaim),
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("sync_interval_seconds must be positive, got %d", c.SyncIntervalSeconds)
	}
	switch domain.BurnPolicy(c.BurnPolicy) {
	case domain.BurnClaim, domain.BurnForfeit:
	default:
		return fmt.Errorf("burn_policy must be %q or %q, got %q", domain.BurnClaim, domain.BurnForfeit, c.BurnPolicy)
	}
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres_dsn is required")
	}
	if c.TickFeed.Endpoint == "" {
		return fmt.Errorf("tick_feed.endpoint is required")
	}
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}
	for i, p := range c.Pools {
		if p.Address == "" {
			return fmt.Errorf("pools[%d].address is required", i)
		}
	}
	return nil
}
