// Package config handles CLI configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a yaml-friendly time.Duration accepting "100ms" style
// strings and plain integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the CLI configuration.
type Config struct {
	DefaultProvider string                    `yaml:"default_provider"`
	DefaultModel    string                    `yaml:"default_model"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	Resilience      ResilienceConfig          `yaml:"resilience"`
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	// Style selects the wire protocol family (openai, anthropic, gemini).
	// Empty means the provider ID doubles as the style; unknown styles
	// resolve to the OpenAI-compatible driver.
	Style string `yaml:"style,omitempty"`

	// APIKeyEnv names an environment variable holding the key. When the
	// variable is unset or empty at runtime, the keystore is consulted.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	BaseURL string `yaml:"base_url,omitempty"`
}

// ResilienceConfig holds the per-call execution budgets. A zero-valued
// gate is not installed; retries default on unless disabled.
type ResilienceConfig struct {
	Retry          RetryConfig   `yaml:"retry"`
	RateLimit      RateConfig    `yaml:"rate_limit"`
	CircuitBreaker CircuitConfig `yaml:"circuit_breaker"`
	MaxConcurrent  int64         `yaml:"max_concurrent"`
}

// RetryConfig configures the retry policy.
type RetryConfig struct {
	Disabled   bool     `yaml:"disabled,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
	BaseDelay  Duration `yaml:"base_delay,omitempty"`
	MaxDelay   Duration `yaml:"max_delay,omitempty"`
}

// RateConfig configures the client-side token bucket.
type RateConfig struct {
	MaxTokens  float64 `yaml:"max_tokens,omitempty"`
	RefillRate float64 `yaml:"refill_rate,omitempty"`
}

// CircuitConfig configures the circuit breaker.
type CircuitConfig struct {
	FailureThreshold int      `yaml:"failure_threshold,omitempty"`
	SuccessThreshold int      `yaml:"success_threshold,omitempty"`
	Cooldown         Duration `yaml:"cooldown,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the
// current platform.
// - macOS/Linux: ~/.relay/config.yaml
// - Windows: %USERPROFILE%\.relay\config.yaml
func DefaultConfigPath() string {
	var homeDir string

	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}

	if homeDir == "" {
		return "config.yaml"
	}

	return filepath.Join(homeDir, ".relay", "config.yaml")
}

// LoadConfig loads configuration from the specified path. A missing file
// is not an error; an unreadable or unparseable one is.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Providers: make(map[string]ProviderConfig),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	return cfg, nil
}

// GetProvider returns the provider config for the given ID, nil when not
// configured.
func (c *Config) GetProvider(id string) *ProviderConfig {
	if c.Providers == nil {
		return nil
	}
	if pc, ok := c.Providers[id]; ok {
		return &pc
	}
	return nil
}
