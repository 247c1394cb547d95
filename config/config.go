// Package config loads slipway settings from a YAML file and the
// environment. Environment variables win over the file, the file wins
// over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/slipwaylabs/slipway/llm"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Settings holds everything the pipeline needs: provider credentials,
// model selection, publish tokens and retry tuning.
type Settings struct {
	Provider        string        `mapstructure:"provider"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	Model           string        `mapstructure:"model"`
	GitHubToken     string        `mapstructure:"github_token"`
	VercelToken     string        `mapstructure:"vercel_token"`
	TellmURL        string        `mapstructure:"tellm_url"`
	BatchID         string        `mapstructure:"batch_id"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	OutputDir       string        `mapstructure:"output_dir"`
}

// Default returns the settings used when neither the config file nor the
// environment says otherwise.
func Default() *Settings {
	return &Settings{
		Provider:       ProviderOpenAI,
		Model:          "gpt-4o-mini",
		RequestTimeout: 120 * time.Second,
		MaxAttempts:    3,
		RetryBackoff:   2 * time.Second,
		OutputDir:      ".",
	}
}

// Load reads settings from the given config file. An empty path falls back
// to ~/.slipway/config.yaml, which may be absent.
func Load(path string) (*Settings, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("provider", def.Provider)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("model", def.Model)
	v.SetDefault("github_token", "")
	v.SetDefault("vercel_token", "")
	v.SetDefault("tellm_url", "")
	v.SetDefault("batch_id", "")
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("max_attempts", def.MaxAttempts)
	v.SetDefault("retry_backoff", def.RetryBackoff)
	v.SetDefault("output_dir", def.OutputDir)

	v.SetEnvPrefix("SLIPWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional variable names work alongside the SLIPWAY_ prefix.
	bindings := map[string][]string{
		"openai_api_key":    {"SLIPWAY_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"anthropic_api_key": {"SLIPWAY_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"github_token":      {"SLIPWAY_GITHUB_TOKEN", "GITHUB_TOKEN"},
		"vercel_token":      {"SLIPWAY_VERCEL_TOKEN", "VERCEL_TOKEN"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".slipway"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	settings := Default()
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return settings, nil
}

// Validate reports the first missing or inconsistent setting.
func (s *Settings) Validate() error {
	switch s.Provider {
	case ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return fmt.Errorf("openai_api_key is required when provider is %q", ProviderOpenAI)
		}
	case ProviderAnthropic:
		if s.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic_api_key is required when provider is %q", ProviderAnthropic)
		}
	default:
		return fmt.Errorf("unknown provider %q", s.Provider)
	}
	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (s *Settings) APIKey() string {
	if s.Provider == ProviderAnthropic {
		return s.AnthropicAPIKey
	}
	return s.OpenAIAPIKey
}

// LLMConfig builds the client configuration for the configured provider.
func (s *Settings) LLMConfig() *llm.Config {
	return &llm.Config{
		APIKey:   s.APIKey(),
		Model:    s.Model,
		BatchID:  llm.EnsureBatchID(s.BatchID),
		TellmURL: s.TellmURL,
		Timeout:  s.RequestTimeout,
	}
}
