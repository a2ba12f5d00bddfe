package config

import "time"

// ProvidersConfig defines the static fallback chains. Order in the file is
// the order providers are tried; it is never reordered at runtime.
type ProvidersConfig struct {
	Chat  []ProviderConfig `yaml:"chat"`
	Image []ProviderConfig `yaml:"image"`
}

type ProviderConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"` // openai | anthropic | gemini
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	APIVersion string `yaml:"api_version,omitempty"`

	// Model is the provider-specific default, used whenever the canonical
	// request carries no model or one belonging to another provider.
	Model string `yaml:"model"`

	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryPolicy   `yaml:"retry"`

	// SupportsSize marks image providers that accept an explicit size
	// field. Providers without it must never receive one.
	SupportsSize bool `yaml:"supports_size"`

	Headers map[string]string `yaml:"headers,omitempty"`
}

// RetryPolicy bounds per-provider retries. Delay before attempt i+1 is
// BaseDelay × i (linear backoff).
type RetryPolicy struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
}

const (
	DefaultAttempts = 2
	DefaultTimeout  = 60 * time.Second
)

// Normalize fills zero values with defaults and floors Attempts at 1.
func (p RetryPolicy) Normalize() RetryPolicy {
	if p.Attempts < 1 {
		p.Attempts = DefaultAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// Configured reports whether the provider has a credential. Unconfigured
// providers are skipped by the chain, not treated as errors.
func (p ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// EffectiveTimeout returns the per-attempt upstream timeout.
func (p ProviderConfig) EffectiveTimeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}
