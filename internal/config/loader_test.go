package config

import (
	"os"
	"testing"
	"time"
)

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "hello")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"${TEST_VAR:default}", "hello"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
server:
  host: "0.0.0.0"
  port: 9999
limits:
  max_messages: 12
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	var cfg Config
	if err := LoadFile(tmpFile.Name(), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Limits.MaxMessages != 12 {
		t.Errorf("expected max_messages 12, got %d", cfg.Limits.MaxMessages)
	}
}

func TestLoadFile_ProviderChain(t *testing.T) {
	os.Setenv("TEST_OPENAI_KEY", "sk-test")
	defer os.Unsetenv("TEST_OPENAI_KEY")

	tmpFile, err := os.CreateTemp("", "test-providers-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	content := `
chat:
  - name: openai
    type: openai
    base_url: https://api.openai.com/v1
    api_key: "${TEST_OPENAI_KEY}"
    model: gpt-4o-mini
    retry:
      attempts: 3
      base_delay: 250ms
  - name: gemini
    type: gemini
    base_url: https://generativelanguage.googleapis.com/v1beta
    api_key: "${UNSET_GEMINI_KEY}"
    model: gemini-2.0-flash
`
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	var cfg ProvidersConfig
	if err := LoadFile(tmpFile.Name(), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(cfg.Chat) != 2 {
		t.Fatalf("expected 2 chat providers, got %d", len(cfg.Chat))
	}
	if !cfg.Chat[0].Configured() {
		t.Error("expected openai to be configured from env")
	}
	if cfg.Chat[1].Configured() {
		t.Error("expected gemini to be unconfigured when env var unset")
	}
	if cfg.Chat[0].Retry.Attempts != 3 || cfg.Chat[0].Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("unexpected retry policy: %+v", cfg.Chat[0].Retry)
	}
}

func TestRetryPolicyNormalize(t *testing.T) {
	p := RetryPolicy{}.Normalize()
	if p.Attempts != DefaultAttempts {
		t.Errorf("expected default attempts %d, got %d", DefaultAttempts, p.Attempts)
	}

	p = RetryPolicy{Attempts: 5, BaseDelay: -time.Second}.Normalize()
	if p.Attempts != 5 {
		t.Errorf("expected attempts preserved, got %d", p.Attempts)
	}
	if p.BaseDelay != 0 {
		t.Errorf("expected negative base delay floored at 0, got %v", p.BaseDelay)
	}
}

func TestEffectiveTimeout(t *testing.T) {
	p := ProviderConfig{}
	if p.EffectiveTimeout() != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", p.EffectiveTimeout())
	}
	p.Timeout = 5 * time.Second
	if p.EffectiveTimeout() != 5*time.Second {
		t.Errorf("expected configured timeout, got %v", p.EffectiveTimeout())
	}
}
