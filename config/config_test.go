package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{
		"SLIPWAY_OPENAI_API_KEY", "OPENAI_API_KEY",
		"SLIPWAY_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY",
		"SLIPWAY_GITHUB_TOKEN", "GITHUB_TOKEN",
		"SLIPWAY_VERCEL_TOKEN", "VERCEL_TOKEN",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateHome(t)

	settings, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, settings.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.Model)
	assert.Equal(t, 3, settings.MaxAttempts)
	assert.Equal(t, 2*time.Second, settings.RetryBackoff)
	assert.Equal(t, 120*time.Second, settings.RequestTimeout)
	assert.Equal(t, ".", settings.OutputDir)
}

func TestLoadConfigFile(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `provider: anthropic
anthropic_api_key: sk-ant-test
model: claude-3-5-haiku-latest
max_attempts: 5
retry_backoff: 4s
`
	err := os.WriteFile(path, []byte(content), 0644)
	assert.NoError(t, err)

	settings, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, settings.Provider)
	assert.Equal(t, "sk-ant-test", settings.AnthropicAPIKey)
	assert.Equal(t, "claude-3-5-haiku-latest", settings.Model)
	assert.Equal(t, 5, settings.MaxAttempts)
	assert.Equal(t, 4*time.Second, settings.RetryBackoff)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolateHome(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	isolateHome(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte("model: gpt-4o-mini\n"), 0644)
	assert.NoError(t, err)

	t.Setenv("SLIPWAY_MODEL", "gpt-4o")
	settings, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "gpt-4o", settings.Model)
}

func TestConventionalEnvNames(t *testing.T) {
	isolateHome(t)

	t.Setenv("OPENAI_API_KEY", "sk-conventional")
	t.Setenv("GITHUB_TOKEN", "ghp_conventional")

	settings, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, "sk-conventional", settings.OpenAIAPIKey)
	assert.Equal(t, "ghp_conventional", settings.GitHubToken)
}

func TestValidate(t *testing.T) {
	settings := Default()
	err := settings.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "openai_api_key")

	settings.OpenAIAPIKey = "sk-test"
	assert.NoError(t, settings.Validate())

	settings.Provider = "mystery"
	err = settings.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")

	settings.Provider = ProviderAnthropic
	err = settings.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic_api_key")

	settings.AnthropicAPIKey = "sk-ant"
	settings.MaxAttempts = 0
	err = settings.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	settings := Default()
	settings.OpenAIAPIKey = "sk-openai"
	settings.AnthropicAPIKey = "sk-anthropic"

	assert.Equal(t, "sk-openai", settings.APIKey())
	settings.Provider = ProviderAnthropic
	assert.Equal(t, "sk-anthropic", settings.APIKey())
}

func TestLLMConfig(t *testing.T) {
	settings := Default()
	settings.OpenAIAPIKey = "sk-test"
	settings.TellmURL = "http://localhost:8080"

	cfg := settings.LLMConfig()
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "http://localhost:8080", cfg.TellmURL)
	assert.Equal(t, 120*time.Second, cfg.Timeout)
	assert.Len(t, cfg.BatchID, 24)
}
