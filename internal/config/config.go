package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/pkg/models"
	"github.com/checkmarxDev/audit-wrapper/pkg/wrapper"
)

type Config struct {
	Provider        string `mapstructure:"AUDIT_PROVIDER"`
	ApiKey          string `mapstructure:"OPENAI_API_KEY"`
	Model           string `mapstructure:"AUDIT_MODEL"`
	EndPoint        string `mapstructure:"AUDIT_ENDPOINT"`
	AzureEndPoint   string `mapstructure:"AZURE_OPENAI_ENDPOINT"`
	AzureApiKey     string `mapstructure:"AZURE_OPENAI_API_KEY"`
	AzureDeployment string `mapstructure:"AZURE_OPENAI_DEPLOYMENT"`
	AwsRegion       string `mapstructure:"AWS_REGION"`
	BedrockModel    string `mapstructure:"BEDROCK_MODEL_ID"`
	MaskSecrets     bool   `mapstructure:"AUDIT_MASK_SECRETS"`
	HTTPAddr        string `mapstructure:"AUDIT_HTTP_ADDR"`
	GRPCAddr        string `mapstructure:"AUDIT_GRPC_ADDR"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	LogPretty       bool   `mapstructure:"LOG_PRETTY"`
}

var defaults = map[string]any{
	"AUDIT_PROVIDER":          wrapper.ProviderOpenAI,
	"OPENAI_API_KEY":          "",
	"AUDIT_MODEL":             models.DefaultModel,
	"AUDIT_ENDPOINT":          internal.DefaultEndpoint,
	"AZURE_OPENAI_ENDPOINT":   "",
	"AZURE_OPENAI_API_KEY":    "",
	"AZURE_OPENAI_DEPLOYMENT": "",
	"AWS_REGION":              "",
	"BEDROCK_MODEL_ID":        models.DefaultBedrockModel,
	"AUDIT_MASK_SECRETS":      false,
	"AUDIT_HTTP_ADDR":         ":8000",
	"AUDIT_GRPC_ADDR":         ":50051",
	"LOG_LEVEL":               "info",
	"LOG_PRETTY":              false,
}

// Load reads the environment, layered over an optional env-style config file.
// A missing file at path is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Wrapper converts the loaded settings into the wrapper configuration.
func (c *Config) Wrapper() wrapper.Config {
	cfg := wrapper.Config{
		Provider:    c.Provider,
		APIKey:      c.ApiKey,
		Model:       c.Model,
		EndPoint:    c.EndPoint,
		MaskSecrets: c.MaskSecrets,
	}
	switch c.Provider {
	case wrapper.ProviderAzure:
		cfg.EndPoint = c.AzureEndPoint
		cfg.Deployment = c.AzureDeployment
		if c.AzureApiKey != "" {
			cfg.APIKey = c.AzureApiKey
		}
	case wrapper.ProviderBedrock:
		cfg.Region = c.AwsRegion
		cfg.Model = c.BedrockModel
	}
	return cfg
}
