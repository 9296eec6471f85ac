package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file structure.
type FileConfig struct {
	ServerPort string `toml:"server_port"`

	Budget    BudgetFile                  `toml:"budget"`
	Providers map[string]ProviderFile     `toml:"providers"`
	Cache     CacheFile                   `toml:"cache"`
	Analytics AnalyticsFile               `toml:"analytics"`
	Gateway   GatewayFile                 `toml:"gateway"`
}

// BudgetFile mirrors the [budget] table.
type BudgetFile struct {
	Global         ScopeLimitsFile `toml:"global"`
	TenantDefaults ScopeLimitsFile `toml:"tenant_defaults"`
	UserDefaults   ScopeLimitsFile `toml:"user_defaults"`
}

// ScopeLimitsFile mirrors one scope's limits.
type ScopeLimitsFile struct {
	DailyLimit      float64   `toml:"daily_limit"`
	MonthlyLimit    float64   `toml:"monthly_limit"`
	AlertThresholds []float64 `toml:"alert_thresholds"`
}

// ProviderFile mirrors a [providers.<name>] table.
type ProviderFile struct {
	BaseURL               string `toml:"base_url"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	MaxConcurrentRequests int    `toml:"max_concurrent_requests"`
	RateLimitRPM          int    `toml:"rate_limit_rpm"`
	Priority              int    `toml:"priority"`
	DefaultModel          string `toml:"default_model"`
	SecretName            string `toml:"secret_name"`
}

// CacheFile mirrors the [cache] table.
type CacheFile struct {
	DBPath                 string `toml:"db_path"`
	MaxMemoryEntries       int    `toml:"max_memory_entries"`
	MaxEntryBytes          int    `toml:"max_entry_bytes"`
	DefaultTTLSeconds      int    `toml:"default_ttl_seconds"`
	CleanupIntervalSeconds int    `toml:"cleanup_interval_seconds"`
}

// AnalyticsFile mirrors the [analytics] table.
type AnalyticsFile struct {
	BufferCapacity             int `toml:"buffer_capacity"`
	AggregationIntervalSeconds int `toml:"aggregation_interval_seconds"`
	CleanupIntervalSeconds     int `toml:"cleanup_interval_seconds"`
	RetentionHours             int `toml:"retention_hours"`
}

// GatewayFile mirrors the [gateway] table.
type GatewayFile struct {
	MaxAttempts          int     `toml:"max_attempts"`
	DefaultMaxTokens     int     `toml:"default_max_tokens"`
	EstimatedCostPer1KIn float64 `toml:"estimated_cost_per_1k_in"`
}

// LoadFile loads configuration from the TOML file.
// Returns an empty FileConfig if the file doesn't exist.
func LoadFile() (*FileConfig, error) {
	cfg := &FileConfig{}

	path := ConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fromFile converts the file representation into runtime config.
func fromFile(f *FileConfig) *Config {
	cfg := &Config{
		ServerPort: f.ServerPort,
		Budget: BudgetConfig{
			Global:         scopeFromFile(f.Budget.Global),
			TenantDefaults: scopeFromFile(f.Budget.TenantDefaults),
			UserDefaults:   scopeFromFile(f.Budget.UserDefaults),
		},
		Providers: make(map[string]ProviderConfig, len(f.Providers)),
		Cache: CacheConfig{
			DBPath:                 f.Cache.DBPath,
			MaxMemoryEntries:       f.Cache.MaxMemoryEntries,
			MaxEntryBytes:          f.Cache.MaxEntryBytes,
			DefaultTTLSeconds:      f.Cache.DefaultTTLSeconds,
			CleanupIntervalSeconds: f.Cache.CleanupIntervalSeconds,
		},
		Analytics: AnalyticsConfig{
			BufferCapacity:             f.Analytics.BufferCapacity,
			AggregationIntervalSeconds: f.Analytics.AggregationIntervalSeconds,
			CleanupIntervalSeconds:     f.Analytics.CleanupIntervalSeconds,
			RetentionHours:             f.Analytics.RetentionHours,
		},
		Gateway: GatewayConfig{
			MaxAttempts:          f.Gateway.MaxAttempts,
			DefaultMaxTokens:     f.Gateway.DefaultMaxTokens,
			EstimatedCostPer1KIn: f.Gateway.EstimatedCostPer1KIn,
		},
	}

	for name, p := range f.Providers {
		cfg.Providers[name] = ProviderConfig{
			BaseURL:               p.BaseURL,
			TimeoutSeconds:        p.TimeoutSeconds,
			MaxConcurrentRequests: p.MaxConcurrentRequests,
			RateLimitRPM:          p.RateLimitRPM,
			Priority:              p.Priority,
			DefaultModel:          p.DefaultModel,
			SecretName:            p.SecretName,
		}
	}

	return cfg
}

func scopeFromFile(s ScopeLimitsFile) ScopeLimits {
	return ScopeLimits{
		DailyLimit:      s.DailyLimit,
		MonthlyLimit:    s.MonthlyLimit,
		AlertThresholds: s.AlertThresholds,
	}
}
