package config

import (
	"fmt"
	"strings"

	"github.com/redline-tools/redline/internal/engine"
	"github.com/redline-tools/redline/internal/render"
	"github.com/redline-tools/redline/internal/verify"
)

// Config is the complete configuration for the redline application. It
// covers all commands (images, annotations, words, serve) and loads from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Comparison engine thresholds
	Engine engine.Config `mapstructure:"engine" yaml:"engine" json:"engine"`

	// Overlay rendering
	Render render.Config `mapstructure:"render" yaml:"render" json:"render"`

	// Annotation verifier (LLM client)
	Verifier verify.Config `mapstructure:"verifier" yaml:"verifier" json:"verifier"`

	// HTTP server (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	// SessionTTLMin is how long uploaded document pairs are kept before
	// the cleanup loop removes them.
	SessionTTLMin      int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min" json:"session_ttl_min"`
	CleanupIntervalMin int    `mapstructure:"cleanup_interval_min" yaml:"cleanup_interval_min" json:"cleanup_interval_min"`
	DataDir            string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`
	RateLimitPerMin    int    `mapstructure:"rate_limit_per_min" yaml:"rate_limit_per_min" json:"rate_limit_per_min"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Engine:   engine.DefaultConfig(),
		Render:   render.DefaultConfig(),
		Verifier: verify.DefaultConfig(),
		Server: ServerConfig{
			Host:               "localhost",
			Port:               8080,
			CORSOrigin:         "*",
			MaxUploadMB:        50,
			TimeoutSec:         120,
			ShutdownTimeout:    10,
			SessionTTLMin:      60,
			CleanupIntervalMin: 10,
			RateLimitPerMin:    60,
		},
	}
}

// Validate validates the configuration and returns the first error found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Engine.MatchThreshold < 0 || c.Engine.MatchThreshold > 64 {
		return fmt.Errorf("invalid engine.match_threshold: %d (must be between 0 and 64)", c.Engine.MatchThreshold)
	}
	if c.Engine.FooterBand < 0 {
		return fmt.Errorf("invalid engine.footer_band: %v (must not be negative)", c.Engine.FooterBand)
	}
	if c.Engine.LocalContextMargin <= 0 || c.Engine.WideContextMargin <= 0 {
		return fmt.Errorf("context margins must be positive")
	}
	if c.Engine.WideContextMargin < c.Engine.LocalContextMargin {
		return fmt.Errorf("engine.wide_context_margin must not be smaller than engine.local_context_margin")
	}
	if c.Engine.Merge.VerticalTolerance < 0 || c.Engine.Merge.HorizontalGap < 0 {
		return fmt.Errorf("merge tolerances must not be negative")
	}

	loc := c.Engine.Locator
	if err := validateUnit(loc.ImageWeight, "engine.locator.image_weight"); err != nil {
		return err
	}
	if err := validateUnit(loc.TextWeight, "engine.locator.text_weight"); err != nil {
		return err
	}
	if sum := loc.ImageWeight + loc.TextWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("locator weights must sum to 1, got %v", sum)
	}
	if err := validateUnit(loc.ShortCircuit, "engine.locator.short_circuit"); err != nil {
		return err
	}
	if loc.TextPrefixRunes < 0 {
		return fmt.Errorf("invalid engine.locator.text_prefix_runes: %d", loc.TextPrefixRunes)
	}
	if loc.RasterScale <= 0 {
		return fmt.Errorf("invalid engine.locator.raster_scale: %v (must be positive)", loc.RasterScale)
	}

	if c.Render.Scale <= 0 {
		return fmt.Errorf("invalid render.scale: %v (must be positive)", c.Render.Scale)
	}
	if c.Verifier.Temperature < 0 || c.Verifier.Temperature > 2 {
		return fmt.Errorf("invalid verifier.temperature: %v (must be between 0 and 2)", c.Verifier.Temperature)
	}
	if c.Verifier.MaxTokens <= 0 {
		return fmt.Errorf("invalid verifier.max_tokens: %d (must be positive)", c.Verifier.MaxTokens)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.SessionTTLMin <= 0 {
		return fmt.Errorf("invalid session TTL: %d (must be positive)", c.Server.SessionTTLMin)
	}
	if c.Server.CleanupIntervalMin <= 0 {
		return fmt.Errorf("invalid cleanup interval: %d (must be positive)", c.Server.CleanupIntervalMin)
	}
	return nil
}

func validateUnit(v float64, name string) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("invalid %s: %v (must be between 0.0 and 1.0)", name, v)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
