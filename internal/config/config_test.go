package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/pkg/models"
	"github.com/checkmarxDev/audit-wrapper/pkg/wrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, wrapper.ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.ApiKey)
	assert.Equal(t, models.DefaultModel, cfg.Model)
	assert.Equal(t, internal.DefaultEndpoint, cfg.EndPoint)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.False(t, cfg.MaskSecrets)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "OPENAI_API_KEY=from-file\nAUDIT_MASK_SECRETS=true\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AUDIT_MASK_SECRETS", "")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ApiKey)
	assert.True(t, cfg.MaskSecrets)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestWrapperConfig(t *testing.T) {
	cfg := &Config{
		Provider:        wrapper.ProviderAzure,
		ApiKey:          "openai-key",
		AzureApiKey:     "azure-key",
		AzureEndPoint:   "https://example.openai.azure.com/",
		AzureDeployment: "gpt35",
		Model:           models.DefaultModel,
	}
	w := cfg.Wrapper()
	assert.Equal(t, "azure-key", w.APIKey)
	assert.Equal(t, "https://example.openai.azure.com/", w.EndPoint)
	assert.Equal(t, "gpt35", w.Deployment)

	cfg = &Config{Provider: wrapper.ProviderBedrock, AwsRegion: "us-east-1", BedrockModel: models.BedrockClaude3Sonnet}
	w = cfg.Wrapper()
	assert.Equal(t, "us-east-1", w.Region)
	assert.Equal(t, models.BedrockClaude3Sonnet, w.Model)
}
