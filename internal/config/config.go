// Package config holds application configuration loaded from environment
// and file. Priority: env vars → config.toml → defaults.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/tripflow/llmgate/internal/types"
)

// Config is the top-level gateway configuration.
type Config struct {
	ServerPort string

	Budget    BudgetConfig
	Providers map[string]ProviderConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Gateway   GatewayConfig
}

// ScopeLimits holds spend limits for one budget scope class.
type ScopeLimits struct {
	DailyLimit      float64
	MonthlyLimit    float64
	AlertThresholds []float64 // percent, e.g. [80, 95]
}

// BudgetConfig configures the budget manager.
type BudgetConfig struct {
	Global         ScopeLimits
	TenantDefaults ScopeLimits
	UserDefaults   ScopeLimits
}

// ProviderConfig configures one provider adapter.
type ProviderConfig struct {
	BaseURL               string
	TimeoutSeconds        int
	MaxConcurrentRequests int
	RateLimitRPM          int
	Priority              int    // lower tries first
	DefaultModel          string
	SecretName            string // defaults to secret-<name>-api-key
}

// Timeout returns the per-call timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CacheConfig configures the two-tier response cache.
type CacheConfig struct {
	DBPath                 string
	MaxMemoryEntries       int
	MaxEntryBytes          int
	DefaultTTLSeconds      int
	CleanupIntervalSeconds int
}

// AnalyticsConfig configures the metrics collector.
type AnalyticsConfig struct {
	BufferCapacity             int
	AggregationIntervalSeconds int
	CleanupIntervalSeconds     int
	RetentionHours             int
}

// GatewayConfig configures orchestration.
type GatewayConfig struct {
	MaxAttempts          int
	DefaultMaxTokens     int
	EstimatedCostPer1KIn float64 // pre-dispatch estimate rate when model unknown
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	fileCfg, err := LoadFile()
	if err != nil {
		return nil, err
	}

	cfg := fromFile(fileCfg)
	cfg.ServerPort = getEnvOr("LLMGATE_PORT", cfg.ServerPort)
	cfg.Cache.DBPath = getEnvOr("LLMGATE_DB_PATH", cfg.Cache.DBPath)
	cfg.Cache.MaxMemoryEntries = getEnvIntOr("LLMGATE_CACHE_MAX_ENTRIES", cfg.Cache.MaxMemoryEntries)
	cfg.Gateway.MaxAttempts = getEnvIntOr("LLMGATE_MAX_ATTEMPTS", cfg.Gateway.MaxAttempts)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = ":8080"
	}
	if cfg.Cache.DBPath == "" {
		cfg.Cache.DBPath = DBPath()
	}
	if cfg.Cache.MaxMemoryEntries <= 0 {
		cfg.Cache.MaxMemoryEntries = 1000
	}
	if cfg.Cache.MaxEntryBytes <= 0 {
		cfg.Cache.MaxEntryBytes = 256 * 1024
	}
	if cfg.Cache.DefaultTTLSeconds <= 0 {
		cfg.Cache.DefaultTTLSeconds = 3600
	}
	if cfg.Cache.CleanupIntervalSeconds <= 0 {
		cfg.Cache.CleanupIntervalSeconds = 600
	}
	if cfg.Analytics.BufferCapacity <= 0 {
		cfg.Analytics.BufferCapacity = 10000
	}
	if cfg.Analytics.AggregationIntervalSeconds <= 0 {
		cfg.Analytics.AggregationIntervalSeconds = 60
	}
	if cfg.Analytics.CleanupIntervalSeconds <= 0 {
		cfg.Analytics.CleanupIntervalSeconds = 3600
	}
	if cfg.Analytics.RetentionHours <= 0 {
		cfg.Analytics.RetentionHours = 24
	}
	if cfg.Gateway.MaxAttempts <= 0 {
		cfg.Gateway.MaxAttempts = 3
	}
	if cfg.Gateway.DefaultMaxTokens <= 0 {
		cfg.Gateway.DefaultMaxTokens = 1024
	}
	if cfg.Gateway.EstimatedCostPer1KIn <= 0 {
		cfg.Gateway.EstimatedCostPer1KIn = 0.01
	}
	if len(cfg.Budget.Global.AlertThresholds) == 0 {
		cfg.Budget.Global.AlertThresholds = []float64{80, 95}
	}
	if len(cfg.Budget.TenantDefaults.AlertThresholds) == 0 {
		cfg.Budget.TenantDefaults.AlertThresholds = cfg.Budget.Global.AlertThresholds
	}
	if len(cfg.Budget.UserDefaults.AlertThresholds) == 0 {
		cfg.Budget.UserDefaults.AlertThresholds = cfg.Budget.Global.AlertThresholds
	}
	for name, p := range cfg.Providers {
		if p.SecretName == "" {
			p.SecretName = "secret-" + name + "-api-key"
		}
		if p.MaxConcurrentRequests <= 0 {
			p.MaxConcurrentRequests = 10
		}
		if p.TimeoutSeconds <= 0 {
			p.TimeoutSeconds = 60
		}
		cfg.Providers[name] = p
	}
}

// Validate checks the config for required fields and consistency.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return &types.ConfigurationError{Message: "at least one provider is required"}
	}
	for name, p := range c.Providers {
		if p.BaseURL == "" {
			return &types.ConfigurationError{Message: fmt.Sprintf("provider %q: base_url is required", name)}
		}
	}
	if c.Budget.Global.DailyLimit <= 0 || c.Budget.Global.MonthlyLimit <= 0 {
		return &types.ConfigurationError{Message: "budget.global daily_limit and monthly_limit must be positive"}
	}
	return nil
}

// ProviderOrder returns provider names sorted by priority (lowest first),
// name as tiebreak so the order is stable.
func (c *Config) ProviderOrder() []string {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := c.Providers[names[i]].Priority, c.Providers[names[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})
	return names
}

// getEnvOr returns the env value if set, else the fallback.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvIntOr returns the env value parsed as int if set and valid.
func getEnvIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
