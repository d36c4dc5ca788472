package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/aish-sh/aish/internal/history"
	"github.com/aish-sh/aish/internal/session"
)

type Config struct {
	Provider  string                   `mapstructure:"provider"`
	Chat      ChatConfig               `mapstructure:"chat"`
	Debug     DebugConfig              `mapstructure:"debug"`
	Sessions  session.Config           `mapstructure:"sessions"`
	Anthropic AnthropicConfig          `mapstructure:"anthropic"`
	OpenAI    OpenAIConfig             `mapstructure:"openai"`
	Profiles  map[string]ProfileConfig `mapstructure:"profiles"`
	Presets   map[string]PresetConfig  `mapstructure:"presets"`
}

// ChatConfig tunes the interactive session.
type ChatConfig struct {
	Temperature  float32 `mapstructure:"temperature"`
	Instructions string  `mapstructure:"instructions"` // system prompt
	Markdown     bool    `mapstructure:"markdown"`     // style final answers as markdown
	FastDelayMS  int     `mapstructure:"fast_delay_ms"`
	SlowDelayMS  int     `mapstructure:"slow_delay_ms"`
}

// DebugConfig configures backend traffic tracing.
type DebugConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"` // Override default directory
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ProfileConfig overrides token accounting for one model. Zero fields fall
// back to the built-in defaults for that model.
type ProfileConfig struct {
	TokensPerMessage  int `mapstructure:"tokens_per_message"`
	TokensPerName     int `mapstructure:"tokens_per_name"`
	ContextLimit      int `mapstructure:"context_limit"`
	MaxResponseTokens int `mapstructure:"max_response_tokens"`
}

// PresetConfig names a provider/model combination selectable by name.
type PresetConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath(".")

	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("chat.temperature", 0.7)
	viper.SetDefault("chat.markdown", true)
	viper.SetDefault("chat.fast_delay_ms", 20)
	viper.SetDefault("chat.slow_delay_ms", 50)
	viper.SetDefault("sessions.enabled", true)
	viper.SetDefault("anthropic.model", "claude-sonnet-4-5")
	viper.SetDefault("openai.model", "gpt-5.2")

	// Config file is optional.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	cfg.OpenAI.APIKey = expandEnv(cfg.OpenAI.APIKey)
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}

// ApplyOverrides applies provider and model overrides to the config.
// If provider is non-empty, it overrides the global provider.
// If model is non-empty, it overrides the model for the active provider.
func (c *Config) ApplyOverrides(provider, model string) {
	if provider != "" {
		c.Provider = provider
	}
	if model != "" {
		switch c.Provider {
		case "anthropic":
			c.Anthropic.Model = model
		case "openai":
			c.OpenAI.Model = model
		}
	}
}

// ApplyPreset switches provider and model to a named preset.
func (c *Config) ApplyPreset(name string) error {
	preset, ok := c.Presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	c.ApplyOverrides(preset.Provider, preset.Model)
	return nil
}

// ActiveModel returns the model for the active provider.
func (c *Config) ActiveModel() string {
	switch c.Provider {
	case "openai":
		return c.OpenAI.Model
	default:
		return c.Anthropic.Model
	}
}

// BudgetProfile returns the token accounting profile for a model, with any
// configured overrides applied on top of the built-in defaults.
func (c *Config) BudgetProfile(model string) history.Profile {
	profile := history.DefaultProfile(model)
	override, ok := c.Profiles[model]
	if !ok {
		return profile
	}
	if override.TokensPerMessage > 0 {
		profile.TokensPerMessage = override.TokensPerMessage
	}
	if override.TokensPerName > 0 {
		profile.TokensPerName = override.TokensPerName
	}
	if override.ContextLimit > 0 {
		profile.ContextLimit = override.ContextLimit
	}
	if override.MaxResponseTokens > 0 {
		profile.MaxResponseTokens = override.MaxResponseTokens
	}
	return profile
}

// GetConfigDir returns the directory holding the config file.
func GetConfigDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "aish"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "aish"), nil
}

// GetStateDir returns the directory for session and debug files.
func GetStateDir() (string, error) {
	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, "aish"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "state", "aish"), nil
}

// expandEnv expands a leading $VAR or ${VAR} reference in a config value.
func expandEnv(value string) string {
	if strings.HasPrefix(value, "$") {
		return os.ExpandEnv(value)
	}
	return value
}
