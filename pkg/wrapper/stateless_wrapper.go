package wrapper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/internal/metrics"
	"github.com/checkmarxDev/audit-wrapper/pkg/message"
)

const featureCall = "call"

var (
	ErrEmptyConversation = errors.New("conversation is empty")
	ErrNoChoices         = errors.New("completion returned no choices")
)

type StatelessWrapper interface {
	Call(ctx context.Context, conversation message.Conversation) (string, error)
}

// StatelessWrapperImpl holds no per-call state and may be shared between goroutines.
type StatelessWrapperImpl struct {
	transport internal.Wrapper
	model     string
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

func NewStatelessWrapper(transport internal.Wrapper, model string, logger zerolog.Logger, m *metrics.Metrics) *StatelessWrapperImpl {
	return &StatelessWrapperImpl{
		transport: transport,
		model:     model,
		logger:    logger,
		metrics:   m,
	}
}

// Call returns the first choice content exactly as the service sent it.
// Transport errors are returned unchanged.
func (w *StatelessWrapperImpl) Call(ctx context.Context, conversation message.Conversation) (string, error) {
	return w.call(ctx, featureCall, conversation)
}

func (w *StatelessWrapperImpl) call(ctx context.Context, feature string, conversation message.Conversation) (string, error) {
	if len(conversation) == 0 {
		return "", ErrEmptyConversation
	}

	metaData := &message.MetaData{
		RequestID: uuid.New().String(),
		Feature:   feature,
	}
	provider := w.transport.Provider()

	start := time.Now()
	response, err := w.transport.Call(ctx, metaData, internal.NewRequest(w.model, conversation))
	w.metrics.RecordLLMCall(provider, feature, err, time.Since(start))
	if err != nil {
		return "", err
	}

	event := w.logger.Debug().
		Str("request_id", metaData.RequestID).
		Str("provider", provider).
		Str("model", w.model).
		Str("feature", feature)
	if len(response.Raw) > 0 {
		event = event.Bytes("response", response.Raw)
	} else {
		event = event.Interface("response", response)
	}
	event.Msg("chat completion response")

	if response.Usage != nil {
		w.metrics.RecordTokens(provider, response.Usage.PromptTokens, response.Usage.CompletionTokens)
	}
	if len(response.Choices) == 0 {
		return "", ErrNoChoices
	}
	return response.Choices[0].Message.Content, nil
}
