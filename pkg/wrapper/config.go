package wrapper

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/internal/metrics"
)

const (
	ProviderOpenAI  = "openai"
	ProviderAzure   = "azure"
	ProviderBedrock = "bedrock"
)

var (
	ErrMissingAPIKey   = errors.New("no API key configured")
	ErrMissingEndpoint = errors.New("no endpoint configured")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Config is everything NewAuditWrapper needs; nothing is read from the environment.
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	EndPoint   string
	Deployment string // azure
	Region     string // bedrock
	// MaskSecrets replaces detected secrets in analysed code before it leaves the process.
	MaskSecrets bool
	HTTPClient  *http.Client
}

// ConfigError reports a configuration value that prevents construction.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

type options struct {
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	transport internal.Wrapper
}

type Option func(*options)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTransport replaces the provider client built from Config.
func WithTransport(transport internal.Wrapper) Option {
	return func(o *options) {
		o.transport = transport
	}
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey == "" {
			return &ConfigError{Field: "OPENAI_API_KEY", Err: ErrMissingAPIKey}
		}
	case ProviderAzure:
		if c.APIKey == "" {
			return &ConfigError{Field: "AZURE_OPENAI_API_KEY", Err: ErrMissingAPIKey}
		}
		if c.EndPoint == "" {
			return &ConfigError{Field: "AZURE_OPENAI_ENDPOINT", Err: ErrMissingEndpoint}
		}
	case ProviderBedrock:
	default:
		return &ConfigError{Field: "AUDIT_PROVIDER", Err: fmt.Errorf("%w %q", ErrUnknownProvider, c.Provider)}
	}
	return nil
}
