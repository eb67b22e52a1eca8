// Package config implements C11: a cascading loader for the engine's
// runtime knobs (healing-cache TTL/eviction, rate limiter, circuit
// breaker, OCR confidence, actionability/conditional-click timeouts).
// Grounded on the teacher's cmd/gasoline-cmd/config/loader.go cascade
// (defaults < global < project < env < flags), generalized from JSON to
// TOML via pelletier/go-toml/v2 to match the rest of the pack's config
// idiom (five82-spindle/internal/config).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds every resolved runtime knob named in spec §6.
type Config struct {
	HealTTL               time.Duration `toml:"-"`
	HealTTLMs             int64         `toml:"heal_ttl_ms"`
	HealMaxEntries        int           `toml:"heal_max_entries"`
	HealMinSuccessRate    float64       `toml:"heal_min_success_rate"`
	RateLimitN            int           `toml:"rate_limit_n"`
	RateLimitWindow       time.Duration `toml:"-"`
	RateLimitWindowMs     int64         `toml:"rate_limit_window_ms"`
	BreakerFailThreshold  uint32        `toml:"cb_fail_threshold"`
	BreakerOpen           time.Duration `toml:"-"`
	BreakerOpenMs         int64         `toml:"cb_open_ms"`
	OCRConfidenceMin      float64       `toml:"ocr_confidence_min"`
	ActionabilityTimeout  time.Duration `toml:"-"`
	ActionabilityTimeoutMs int64        `toml:"actionability_timeout_ms"`
	CondClickTimeout      time.Duration `toml:"-"`
	CondClickTimeoutMs    int64         `toml:"cond_click_timeout_ms"`
	StorePath             string        `toml:"store_path"`
}

// FlagOverrides holds CLI-flag-supplied values. A nil pointer means the
// flag was not set, so lower-priority values are kept.
type FlagOverrides struct {
	HealTTLMs              *int64
	HealMaxEntries         *int
	HealMinSuccessRate     *float64
	RateLimitN             *int
	RateLimitWindowMs      *int64
	BreakerFailThreshold   *uint32
	BreakerOpenMs          *int64
	OCRConfidenceMin       *float64
	ActionabilityTimeoutMs *int64
	CondClickTimeoutMs     *int64
	StorePath              *string
}

// Defaults returns the base configuration with spec §6's documented
// defaults.
func Defaults() Config {
	c := Config{
		HealTTLMs:              86_400_000,
		HealMaxEntries:         1000,
		HealMinSuccessRate:     0.7,
		RateLimitN:             50,
		RateLimitWindowMs:      60_000,
		BreakerFailThreshold:   3,
		BreakerOpenMs:          60_000,
		OCRConfidenceMin:       0.60,
		ActionabilityTimeoutMs: 120_000,
		CondClickTimeoutMs:     120_000,
		StorePath:              "~/.raengine/engine.db",
	}
	c.deriveDurations()
	return c
}

// deriveDurations recomputes the time.Duration fields from their millis
// counterparts, after defaults/file/env/flags have all been applied.
func (c *Config) deriveDurations() {
	c.HealTTL = time.Duration(c.HealTTLMs) * time.Millisecond
	c.RateLimitWindow = time.Duration(c.RateLimitWindowMs) * time.Millisecond
	c.BreakerOpen = time.Duration(c.BreakerOpenMs) * time.Millisecond
	c.ActionabilityTimeout = time.Duration(c.ActionabilityTimeoutMs) * time.Millisecond
	c.CondClickTimeout = time.Duration(c.CondClickTimeoutMs) * time.Millisecond
}

// Load builds the final configuration by applying the priority cascade:
// defaults < global (~/.raengine/config.toml) < project (.raengine.toml
// in projectDir) < environment variables < flags.
func Load(projectDir string, flags *FlagOverrides) (Config, error) {
	cfg := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		if err := loadTOMLFile(&cfg, filepath.Join(home, ".raengine", "config.toml")); err != nil {
			return cfg, fmt.Errorf("global config: %w", err)
		}
	}

	if err := loadTOMLFile(&cfg, filepath.Join(projectDir, ".raengine.toml")); err != nil {
		return cfg, fmt.Errorf("project config: %w", err)
	}

	loadEnvVars(&cfg)

	if flags != nil {
		applyFlags(&cfg, flags)
	}

	cfg.deriveDurations()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func loadTOMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnvVars(cfg *Config) {
	envInt64("HEAL_TTL_MS", &cfg.HealTTLMs)
	envInt("HEAL_MAX_ENTRIES", &cfg.HealMaxEntries)
	envFloat("HEAL_MIN_SUCCESS_RATE", &cfg.HealMinSuccessRate)
	envInt("RATE_LIMIT_N", &cfg.RateLimitN)
	envInt64("RATE_LIMIT_WINDOW_MS", &cfg.RateLimitWindowMs)
	envUint32("CB_FAIL_THRESHOLD", &cfg.BreakerFailThreshold)
	envInt64("CB_OPEN_MS", &cfg.BreakerOpenMs)
	envFloat("OCR_CONFIDENCE_MIN", &cfg.OCRConfidenceMin)
	envInt64("ACTIONABILITY_TIMEOUT_MS", &cfg.ActionabilityTimeoutMs)
	envInt64("COND_CLICK_TIMEOUT_MS", &cfg.CondClickTimeoutMs)
	if v := os.Getenv("RAENGINE_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
}

func envInt64(name string, dst *int64) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envUint32(name string, dst *uint32) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func applyFlags(cfg *Config, f *FlagOverrides) {
	if f.HealTTLMs != nil {
		cfg.HealTTLMs = *f.HealTTLMs
	}
	if f.HealMaxEntries != nil {
		cfg.HealMaxEntries = *f.HealMaxEntries
	}
	if f.HealMinSuccessRate != nil {
		cfg.HealMinSuccessRate = *f.HealMinSuccessRate
	}
	if f.RateLimitN != nil {
		cfg.RateLimitN = *f.RateLimitN
	}
	if f.RateLimitWindowMs != nil {
		cfg.RateLimitWindowMs = *f.RateLimitWindowMs
	}
	if f.BreakerFailThreshold != nil {
		cfg.BreakerFailThreshold = *f.BreakerFailThreshold
	}
	if f.BreakerOpenMs != nil {
		cfg.BreakerOpenMs = *f.BreakerOpenMs
	}
	if f.OCRConfidenceMin != nil {
		cfg.OCRConfidenceMin = *f.OCRConfidenceMin
	}
	if f.ActionabilityTimeoutMs != nil {
		cfg.ActionabilityTimeoutMs = *f.ActionabilityTimeoutMs
	}
	if f.CondClickTimeoutMs != nil {
		cfg.CondClickTimeoutMs = *f.CondClickTimeoutMs
	}
	if f.StorePath != nil {
		cfg.StorePath = *f.StorePath
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c Config) Validate() error {
	if c.HealMaxEntries <= 0 {
		return fmt.Errorf("heal_max_entries must be positive, got %d", c.HealMaxEntries)
	}
	if c.HealMinSuccessRate < 0 || c.HealMinSuccessRate > 1 {
		return fmt.Errorf("heal_min_success_rate must be 0-1, got %v", c.HealMinSuccessRate)
	}
	if c.RateLimitN <= 0 {
		return fmt.Errorf("rate_limit_n must be positive, got %d", c.RateLimitN)
	}
	if c.BreakerFailThreshold == 0 {
		return fmt.Errorf("cb_fail_threshold must be positive, got %d", c.BreakerFailThreshold)
	}
	if c.OCRConfidenceMin < 0 || c.OCRConfidenceMin > 1 {
		return fmt.Errorf("ocr_confidence_min must be 0-1, got %v", c.OCRConfidenceMin)
	}
	if c.ActionabilityTimeoutMs <= 0 {
		return fmt.Errorf("actionability_timeout_ms must be positive, got %d", c.ActionabilityTimeoutMs)
	}
	if c.CondClickTimeoutMs <= 0 {
		return fmt.Errorf("cond_click_timeout_ms must be positive, got %d", c.CondClickTimeoutMs)
	}
	return nil
}

// ExpandedStorePath resolves a leading "~" in StorePath to the user's
// home directory.
func (c Config) ExpandedStorePath() (string, error) {
	if len(c.StorePath) == 0 || c.StorePath[0] != '~' {
		return c.StorePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if c.StorePath == "~" {
		return home, nil
	}
	return filepath.Join(home, c.StorePath[2:]), nil
}
