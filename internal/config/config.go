// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig configures the plain-fetch client.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
}

// HeadlessConfig configures the browser pool and rendered fetches.
type HeadlessConfig struct {
	MaxBrowsers       int     `mapstructure:"max_browsers"`
	AcquireTimeoutSec int     `mapstructure:"acquire_timeout_seconds"`
	NavTimeoutSec     int     `mapstructure:"nav_timeout_seconds"`
	MarkerTimeoutSec  int     `mapstructure:"marker_timeout_seconds"`
	SettleDelayMs     int     `mapstructure:"settle_delay_ms"`
	DomainQPS         float64 `mapstructure:"domain_qps"`
}

// CacheConfig sets per-namespace TTLs and the background sweep interval.
type CacheConfig struct {
	ProfileTTLSec   int `mapstructure:"profile_ttl_seconds"`
	AffidavitTTLSec int `mapstructure:"affidavit_ttl_seconds"`
	StaticTTLSec    int `mapstructure:"static_ttl_seconds"`
	SweepSec        int `mapstructure:"sweep_seconds"`
}

// ResolverConfig governs candidate enumeration and search budgets.
type ResolverConfig struct {
	BudgetSeconds         int  `mapstructure:"budget_seconds"`
	FallbackBudgetSeconds int  `mapstructure:"fallback_budget_seconds"`
	QuickMode             bool `mapstructure:"quick_mode"`
	MinDocumentBytes      int  `mapstructure:"min_document_bytes"`
}

// SourcesConfig holds the origin-site endpoints and the client identity.
type SourcesConfig struct {
	PerformanceBaseURL string `mapstructure:"performance_base_url"`
	AffidavitBaseURL   string `mapstructure:"affidavit_base_url"`
	UserAgent          string `mapstructure:"user_agent"`
}

// BreakerConfig tunes the per-host circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	CooldownSeconds  int `mapstructure:"cooldown_seconds"`
}

// ProxyConfig locates the media-proxy mapping store.
type ProxyConfig struct {
	DBPath string `mapstructure:"db_path"`
	Secret string `mapstructure:"secret"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NETAWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.backoff_initial_ms", 500)
	v.SetDefault("headless.max_browsers", 3)
	v.SetDefault("headless.acquire_timeout_seconds", 30)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("headless.marker_timeout_seconds", 15)
	v.SetDefault("headless.settle_delay_ms", 2000)
	v.SetDefault("headless.domain_qps", 1)
	v.SetDefault("cache.profile_ttl_seconds", 3600)
	v.SetDefault("cache.affidavit_ttl_seconds", 3600)
	v.SetDefault("cache.static_ttl_seconds", 86400)
	v.SetDefault("cache.sweep_seconds", 300)
	v.SetDefault("resolver.budget_seconds", 60)
	v.SetDefault("resolver.fallback_budget_seconds", 20)
	v.SetDefault("resolver.quick_mode", false)
	v.SetDefault("resolver.min_document_bytes", 2048)
	v.SetDefault("sources.performance_base_url", "https://prsindia.org")
	v.SetDefault("sources.affidavit_base_url", "https://www.myneta.info")
	v.SetDefault("sources.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown_seconds", 60)
	v.SetDefault("proxy.db_path", "netawatch.db")
	v.SetDefault("proxy.secret", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Headless.MaxBrowsers <= 0 {
		return fmt.Errorf("headless.max_browsers must be > 0")
	}
	if c.Resolver.BudgetSeconds <= 0 {
		return fmt.Errorf("resolver.budget_seconds must be > 0")
	}
	if c.Resolver.FallbackBudgetSeconds > c.Resolver.BudgetSeconds {
		return fmt.Errorf("resolver.fallback_budget_seconds must not exceed resolver.budget_seconds")
	}
	if c.Sources.PerformanceBaseURL == "" || c.Sources.AffidavitBaseURL == "" {
		return fmt.Errorf("sources base URLs must be set")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be > 0")
	}
	return nil
}

// HTTPTimeout returns the plain-fetch overall timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ResolveBudget returns the wall-clock budget for a full resolution call.
func (c Config) ResolveBudget() time.Duration {
	return time.Duration(c.Resolver.BudgetSeconds) * time.Second
}

// FallbackBudget returns the tighter budget for the alternate-role search.
func (c Config) FallbackBudget() time.Duration {
	return time.Duration(c.Resolver.FallbackBudgetSeconds) * time.Second
}
