package wrapper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/internal/Azure"
	"github.com/checkmarxDev/audit-wrapper/internal/bedrock"
	"github.com/checkmarxDev/audit-wrapper/internal/secrets"
	"github.com/checkmarxDev/audit-wrapper/pkg/models"
)

const (
	featureSensitiveFiles   = "identify-sensitive-files"
	featureInDepthAnalysis  = "in-depth-analysis"
	DefaultAnalysisLanguage = "python"
)

type AuditType string

const (
	AuditSecurity    AuditType = "security"
	AuditReliability AuditType = "reliability"
)

type AuditWrapper struct {
	*StatelessWrapperImpl
	maskSecrets bool
}

// NewAuditWrapper validates cfg and builds the provider client. It fails before
// any network call when the provider credential is missing.
func NewAuditWrapper(cfg Config, opts ...Option) (*AuditWrapper, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	o := &options{logger: log.Logger}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Model == "" && cfg.Provider != ProviderBedrock {
		cfg.Model = models.DefaultModel
	}

	transport := o.transport
	if transport == nil {
		var err error
		if transport, err = newTransport(cfg); err != nil {
			return nil, err
		}
	}

	logger := o.logger.With().Str("component", "wrapper").Logger()
	return &AuditWrapper{
		StatelessWrapperImpl: NewStatelessWrapper(transport, cfg.Model, logger, o.metrics),
		maskSecrets:          cfg.MaskSecrets,
	}, nil
}

func newTransport(cfg Config) (internal.Wrapper, error) {
	switch cfg.Provider {
	case ProviderAzure:
		client, err := Azure.NewClient(cfg.EndPoint, cfg.APIKey, cfg.Deployment)
		if err != nil {
			return nil, err
		}
		return client, nil
	case ProviderBedrock:
		client, err := bedrock.NewClient(context.Background(), cfg.Region, cfg.Model)
		if errors.Is(err, bedrock.ErrNoCredentials) {
			return nil, &ConfigError{Field: "AWS credentials", Err: fmt.Errorf("%w: %v", ErrMissingAPIKey, err)}
		}
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return internal.NewWrapperImpl(cfg.EndPoint, cfg.APIKey, cfg.HTTPClient), nil
	}
}

// IdentifySensitiveFiles asks the model to rank files by how likely they hold sensitive code.
// The raw answer is returned; see DecodeSensitiveFiles.
func (w *AuditWrapper) IdentifySensitiveFiles(ctx context.Context, files []File) (string, error) {
	return w.call(ctx, featureSensitiveFiles, SensitiveFilesConversation(files))
}

type analysisOptions struct {
	language  string
	auditType AuditType
}

type AnalysisOption func(*analysisOptions)

// WithLanguage sets the language named in the prompt. An empty language deliberately keeps
// DefaultAnalysisLanguage instead of naming no language.
func WithLanguage(language string) AnalysisOption {
	return func(o *analysisOptions) {
		if language != "" {
			o.language = language
		}
	}
}

// WithAuditType selects the prompt. Anything but AuditSecurity audits reliability. Empty keeps the default.
func WithAuditType(auditType AuditType) AnalysisOption {
	return func(o *analysisOptions) {
		if auditType != "" {
			o.auditType = auditType
		}
	}
}

// ResolveAnalysisOptions applies opts over the python/security defaults.
func ResolveAnalysisOptions(opts ...AnalysisOption) (string, AuditType) {
	o := &analysisOptions{language: DefaultAnalysisLanguage, auditType: AuditSecurity}
	for _, opt := range opts {
		opt(o)
	}
	return o.language, o.auditType
}

// InDepthAnalysis asks the model for security or reliability issues in code.
// Empty code returns "" without calling the service.
func (w *AuditWrapper) InDepthAnalysis(ctx context.Context, code string, opts ...AnalysisOption) (string, error) {
	if code == "" {
		return "", nil
	}
	language, auditType := ResolveAnalysisOptions(opts...)

	if w.maskSecrets {
		entry, err := secrets.MaskSecrets(code)
		if err != nil {
			return "", fmt.Errorf("masking secrets: %w", err)
		}
		if len(entry.MaskedSecrets) > 0 {
			w.logger.Debug().Int("count", len(entry.MaskedSecrets)).Msg("masked secrets before analysis")
		}
		code = entry.MaskedFile
	}

	return w.call(ctx, featureInDepthAnalysis, AnalysisConversation(code, language, auditType))
}
