package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dealerstudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  debug: false\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Cache.ContentTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Pipeline.ContentValidity)
	assert.Equal(t, []string{"instagram", "facebook", "linkedin", "whatsapp"}, cfg.Pipeline.Platforms)
	assert.Equal(t, "0.039", cfg.AI.Fal.CostPerImage)
	assert.Equal(t, 2*time.Second, cfg.AI.Fal.PollInterval)
	assert.False(t, cfg.Pipeline.RateLimit.Enabled)
	assert.True(t, cfg.Pipeline.BlockOnFailure)
	assert.Empty(t, cfg.AI.OpenAI.InputPricePer1K, "token prices come from the model price list unless configured")
	assert.Empty(t, cfg.AI.OpenAI.OutputPricePer1K)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
pipeline:
  max_cars: 3
  platforms: [instagram, whatsapp]
cache:
  content_ttl: 30m
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pipeline.MaxCars)
	assert.Equal(t, []string{"instagram", "whatsapp"}, cfg.Pipeline.Platforms)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ContentTTL)
	assert.Equal(t, path, cfg.App.ConfigFile)
}

func TestLoadBindsProviderKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FAL_KEY", "fal-test")
	t.Setenv("GOOGLE_GEMINI_API_KEY", "gm-test")

	cfg, err := Load(writeConfig(t, "app:\n  debug: true\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "fal-test", cfg.AI.Fal.APIKey)
	assert.Equal(t, "gm-test", cfg.AI.Gemini.APIKey)
}

func TestLoadRejectsUnknownPlatform(t *testing.T) {
	_, err := Load(writeConfig(t, "pipeline:\n  platforms: [instagram, myspace]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myspace")
}

func TestLoadRejectsBadPolling(t *testing.T) {
	_, err := Load(writeConfig(t, "ai:\n  fal:\n    poll_interval: 10s\n    max_wait: 5s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestHasValidAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"your-api-key", false},
		{"CHANGE_ME", false},
		{"sk-live-123", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HasValidAPIKey(tt.key), tt.key)
	}
}
