package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func writeConfig(t *testing.T, contents string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "aish"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "aish", "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadReadsProfilesAndPresets(t *testing.T) {
	writeConfig(t, `
provider: openai
openai:
  model: gpt-5.2
profiles:
  gpt-5.2:
    context_limit: 400000
    max_response_tokens: 8192
presets:
  fast:
    provider: anthropic
    model: claude-haiku-4-5
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("provider = %q", cfg.Provider)
	}

	profile := cfg.BudgetProfile("gpt-5.2")
	if profile.ContextLimit != 400000 || profile.MaxResponseTokens != 8192 {
		t.Fatalf("profile overrides not applied: %+v", profile)
	}
	// Unset fields keep the built-in defaults.
	if profile.TokensPerMessage == 0 {
		t.Fatal("tokens_per_message default lost")
	}

	if err := cfg.ApplyPreset("fast"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if cfg.Provider != "anthropic" || cfg.Anthropic.Model != "claude-haiku-4-5" {
		t.Fatalf("preset not applied: provider=%q model=%q", cfg.Provider, cfg.Anthropic.Model)
	}
	if err := cfg.ApplyPreset("missing"); err == nil {
		t.Fatal("unknown preset accepted")
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Fatalf("default provider = %q", cfg.Provider)
	}
	if cfg.Chat.SlowDelayMS != 50 || cfg.Chat.FastDelayMS != 20 {
		t.Fatalf("default pacing = %d/%d", cfg.Chat.FastDelayMS, cfg.Chat.SlowDelayMS)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := &Config{Provider: "anthropic"}
	cfg.ApplyOverrides("openai", "gpt-5.2-mini")
	if cfg.Provider != "openai" || cfg.OpenAI.Model != "gpt-5.2-mini" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ActiveModel() != "gpt-5.2-mini" {
		t.Fatalf("ActiveModel = %q", cfg.ActiveModel())
	}
}

func TestBudgetProfileFallsBackToDefaults(t *testing.T) {
	cfg := &Config{}
	profile := cfg.BudgetProfile("unknown-model")
	if profile.ContextLimit <= 0 || profile.MaxResponseTokens <= 0 {
		t.Fatalf("default profile not usable: %+v", profile)
	}
}
