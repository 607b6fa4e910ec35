// Package models defines data structures for configuration, validation and link reports.
package models

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultInternalDomain      = "barna.news"
	DefaultRegistryPath        = "primary_sources_registry.json"
	DefaultGeminiModel         = "gemini-2.0-flash-exp"
	DefaultGeminiSearchModel   = "gemini-2.5-flash"
	DefaultConfidenceThreshold = 0.6
	MaxWorkers                 = 2
)

// Config holds runtime configuration for the pipeline.
// Values come from a YAML (or JSON) file and are overridden by environment variables.
type Config struct {
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	GeminiModel       string `yaml:"gemini_model"`
	GeminiSearchModel string `yaml:"gemini_search_model"`

	// Optional toggles; nil means "not set" and defaults to true.
	ValidateOutboundURLs *bool `yaml:"validate_outbound_urls"`
	PrimarySourceStrict  *bool `yaml:"primary_source_strict"`

	InternalDomain      string        `yaml:"internal_domain"`
	RegistryPath        string        `yaml:"registry_path"`
	DBPath              string        `yaml:"db_path"`
	CacheDir            string        `yaml:"cache_dir"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	Timeout             time.Duration `yaml:"timeout"`
	Workers             int           `yaml:"workers"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	MetricsAddr         string        `yaml:"metrics_addr"`
}

// legacyKeys mirrors the upper-case keys used by older config.json files.
type legacyKeys struct {
	GeminiAPIKey         string `yaml:"GEMINI_API_KEY"`
	ValidateOutboundURLs *bool  `yaml:"VALIDATE_OUTBOUND_URLS"`
	PrimarySourceStrict  *bool  `yaml:"PRIMARY_SOURCE_STRICT"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the config file at path. A missing file is not an error:
// the defaults plus environment overrides are returned instead.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
			var legacy legacyKeys
			if err := yaml.Unmarshal(data, &legacy); err == nil {
				cfg.mergeLegacy(legacy)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) mergeLegacy(l legacyKeys) {
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = l.GeminiAPIKey
	}
	if c.ValidateOutboundURLs == nil {
		c.ValidateOutboundURLs = l.ValidateOutboundURLs
	}
	if c.PrimarySourceStrict == nil {
		c.PrimarySourceStrict = l.PrimarySourceStrict
	}
}

func (c *Config) applyEnvOverrides() error {
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("VALIDATE_OUTBOUND_URLS"); v != "" {
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid VALIDATE_OUTBOUND_URLS: %w", err)
		}
		c.ValidateOutboundURLs = &b
	}
	if v := os.Getenv("PRIMARY_SOURCE_STRICT"); v != "" {
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid PRIMARY_SOURCE_STRICT: %w", err)
		}
		c.PrimarySourceStrict = &b
	}
	if v := os.Getenv("A0_REGISTRY_PATH"); v != "" {
		c.RegistryPath = v
	}
	if v := os.Getenv("A0_DB_PATH"); v != "" {
		c.DBPath = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.GeminiModel == "" {
		c.GeminiModel = DefaultGeminiModel
	}
	if c.GeminiSearchModel == "" {
		c.GeminiSearchModel = DefaultGeminiSearchModel
	}
	if c.InternalDomain == "" {
		c.InternalDomain = DefaultInternalDomain
	}
	if c.RegistryPath == "" {
		c.RegistryPath = DefaultRegistryPath
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.Workers <= 0 || c.Workers > MaxWorkers {
		c.Workers = MaxWorkers
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
}

// OutboundValidationEnabled reports whether outbound links are validated. Defaults to true.
func (c *Config) OutboundValidationEnabled() bool {
	return c.ValidateOutboundURLs == nil || *c.ValidateOutboundURLs
}

// StrictPrimarySource reports whether unresolved primary sources are reported loudly. Defaults to true.
func (c *Config) StrictPrimarySource() bool {
	return c.PrimarySourceStrict == nil || *c.PrimarySourceStrict
}

// HasLLM reports whether an LLM key is configured.
func (c *Config) HasLLM() bool {
	return c.GeminiAPIKey != ""
}

// ParseBool accepts the loose spellings found in hand-edited config files.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off", "":
		return false, nil
	}
	return strconv.ParseBool(v)
}
