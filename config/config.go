package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Time unit used across the configuration: all durations and tier band
// boundaries are plain seconds since they map directly onto the ledger's
// unix-second timestamps.
const (
	Day  = int64(24 * 60 * 60)
	Year = 360 * Day // 12 x 30-day months; a 180-day band is half a year
)

type Config struct {
	// Node configuration
	NodeID   string `json:"node_id" yaml:"node_id"`
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Vault configuration
	Vault VaultConfig `json:"vault" yaml:"vault"`

	// Tier schedule: exactly six bands, boundaries in seconds, rates in
	// hundredths of a percent
	Tiers []TierConfig `json:"tiers" yaml:"tiers"`

	// API configuration
	API APIConfig `json:"api" yaml:"api"`
}

type VaultConfig struct {
	MinDeposit             int64  `json:"min_deposit" yaml:"min_deposit"`
	MaxPositionsPerAccount int    `json:"max_positions_per_account" yaml:"max_positions_per_account"`
	NoticePeriodSeconds    int64  `json:"notice_period_seconds" yaml:"notice_period_seconds"`
	MaxPendingWithdrawals  int    `json:"max_pending_withdrawals" yaml:"max_pending_withdrawals"`
	AdminAddress           string `json:"admin_address" yaml:"admin_address"`

	// Founder-class accounts that never accrue reward, fixed at startup
	RewardExempt []string `json:"reward_exempt" yaml:"reward_exempt"`
}

type TierConfig struct {
	StartSeconds int64 `json:"start_seconds" yaml:"start_seconds"`
	EndSeconds   int64 `json:"end_seconds" yaml:"end_seconds"` // 0 = unbounded (last band only)
	Rate         int64 `json:"rate" yaml:"rate"`
}

type APIConfig struct {
	ListenAddr string  `json:"listen_addr" yaml:"listen_addr"`
	EnableCORS bool    `json:"enable_cors" yaml:"enable_cors"`
	RateLimit  float64 `json:"rate_limit" yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst  int     `json:"rate_burst" yaml:"rate_burst"`
}

// Load returns the default configuration
func Load() (*Config, error) {
	return &Config{
		NodeID:   "maitme-vault-node",
		DataDir:  "./data",
		LogLevel: "info",
		Vault: VaultConfig{
			MinDeposit:             1000,
			MaxPositionsPerAccount: 100,
			NoticePeriodSeconds:    7 * Day,
			MaxPendingWithdrawals:  10,
			AdminAddress:           "",
			RewardExempt:           []string{},
		},
		Tiers: []TierConfig{
			{StartSeconds: 0, EndSeconds: 180 * Day, Rate: 500},          // 5.00%
			{StartSeconds: 180 * Day, EndSeconds: 360 * Day, Rate: 700},  // 7.00%
			{StartSeconds: 360 * Day, EndSeconds: 540 * Day, Rate: 900},  // 9.00%
			{StartSeconds: 540 * Day, EndSeconds: 720 * Day, Rate: 1100}, // 11.00%
			{StartSeconds: 720 * Day, EndSeconds: 900 * Day, Rate: 1300}, // 13.00%
			{StartSeconds: 900 * Day, EndSeconds: 0, Rate: 1500},         // 15.00%, unbounded
		},
		API: APIConfig{
			ListenAddr: ":8080",
			EnableCORS: true,
			RateLimit:  100,
			RateBurst:  200,
		},
	}, nil
}

// LoadFile reads a YAML configuration file over the defaults, so a partial
// file only overrides the keys it names
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %v", path, err)
	}

	return cfg, nil
}

// Validate checks the parts of the configuration the vault depends on
func (c *Config) Validate() error {
	if c.Vault.MinDeposit <= 0 {
		return fmt.Errorf("min_deposit must be positive: %d", c.Vault.MinDeposit)
	}
	if c.Vault.MaxPositionsPerAccount <= 0 {
		return fmt.Errorf("max_positions_per_account must be positive: %d", c.Vault.MaxPositionsPerAccount)
	}
	if c.Vault.NoticePeriodSeconds < 0 {
		return fmt.Errorf("notice_period_seconds cannot be negative: %d", c.Vault.NoticePeriodSeconds)
	}
	if c.Vault.MaxPendingWithdrawals <= 0 {
		return fmt.Errorf("max_pending_withdrawals must be positive: %d", c.Vault.MaxPendingWithdrawals)
	}
	if len(c.Tiers) != 6 {
		return fmt.Errorf("tier schedule must have exactly 6 bands, got %d", len(c.Tiers))
	}
	return nil
}
