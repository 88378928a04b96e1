package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/checkmarxDev/audit-wrapper/pkg/message"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

	ResponseFormatJSON = "json_object"
)

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string                  `json:"model"`
	Messages       []ChatCompletionMessage `json:"messages"`
	ResponseFormat *ResponseFormat         `json:"response_format,omitempty"`
}

type Choice struct {
	Index        int                   `json:"index"`
	Message      ChatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatCompletionResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices,omitempty"`
	Usage   *Usage   `json:"usage,omitempty"`
	// Raw is the undecoded response body, kept for diagnostics.
	Raw []byte `json:"-"`
}

type GptError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
}

type ErrorResponse struct {
	Error GptError `json:"error,omitempty"`
}

// Wrapper sends one chat completion request to a provider.
type Wrapper interface {
	Call(ctx context.Context, metaData *message.MetaData, request *ChatCompletionRequest) (*ChatCompletionResponse, error)
	Provider() string
}

func NewRequest(model string, messages []message.Message) *ChatCompletionRequest {
	conversation := make([]ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		conversation = append(conversation, ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return &ChatCompletionRequest{
		Model:          model,
		Messages:       conversation,
		ResponseFormat: &ResponseFormat{Type: ResponseFormatJSON},
	}
}

type WrapperImpl struct {
	apiKey   string
	endPoint string
	client   *http.Client
}

// NewWrapperImpl returns the OpenAI chat completions transport. A nil client uses http.DefaultClient.
func NewWrapperImpl(endPoint, apiKey string, client *http.Client) *WrapperImpl {
	if endPoint == "" {
		endPoint = DefaultEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WrapperImpl{
		endPoint: endPoint,
		apiKey:   apiKey,
		client:   client,
	}
}

func (w *WrapperImpl) Provider() string {
	return "openai"
}

func (w *WrapperImpl) Call(ctx context.Context, metaData *message.MetaData, request *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req, err := w.prepareRequest(ctx, metaData, request)
	if err != nil {
		return nil, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return w.handleGptResponse(resp)
}

func (w *WrapperImpl) prepareRequest(ctx context.Context, metaData *message.MetaData, requestBody *ChatCompletionRequest) (*http.Request, error) {
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endPoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", w.apiKey))
	if metaData != nil {
		req.Header.Set("X-Request-ID", metaData.RequestID)
		req.Header.Set("X-Feature-Name", metaData.Feature)
		if metaData.TenantID != "" {
			req.Header.Set("X-Tenant-ID", metaData.TenantID)
		}
		if metaData.UserAgent != "" {
			req.Header.Set("User-Agent", metaData.UserAgent)
		}
	}
	return req, nil
}

func (w *WrapperImpl) handleGptResponse(resp *http.Response) (*ChatCompletionResponse, error) {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		var responseBody = new(ChatCompletionResponse)
		if err = json.Unmarshal(bodyBytes, responseBody); err != nil {
			return nil, err
		}
		responseBody.Raw = bodyBytes
		return responseBody, nil
	}
	var errorResponse = new(ErrorResponse)
	if err = json.Unmarshal(bodyBytes, errorResponse); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}
	}
	return nil, fromResponse(resp.StatusCode, errorResponse)
}
