// Package bedrock sends chat completions to Anthropic models hosted on AWS Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/pkg/message"
	"github.com/checkmarxDev/audit-wrapper/pkg/models"
	"github.com/checkmarxDev/audit-wrapper/pkg/role"
)

const (
	anthropicVersion = "bedrock-2023-05-31"
	defaultMaxTokens = 4096
)

var ErrNoCredentials = errors.New("no AWS credentials available")

// RuntimeClient is the subset of *bedrockruntime.Client used here.
type RuntimeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type Client struct {
	runtime RuntimeClient
	modelID string
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewClient loads the default AWS configuration chain and fails when it yields no credentials.
func NewClient(ctx context.Context, region, modelID string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	if cfg.Credentials == nil {
		return nil, ErrNoCredentials
	}
	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	return NewClientWithRuntime(bedrockruntime.NewFromConfig(cfg), modelID), nil
}

func NewClientWithRuntime(runtime RuntimeClient, modelID string) *Client {
	if modelID == "" {
		modelID = models.DefaultBedrockModel
	}
	return &Client{runtime: runtime, modelID: modelID}
}

func (c *Client) Provider() string {
	return "bedrock"
}

// Call ignores request.Model; Bedrock always uses the configured model id.
func (c *Client) Call(ctx context.Context, _ *message.MetaData, request *internal.ChatCompletionRequest) (*internal.ChatCompletionResponse, error) {
	body, err := json.Marshal(toAnthropicRequest(request.Messages))
	if err != nil {
		return nil, err
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("decoding bedrock response: %w", err)
	}
	return fromAnthropicResponse(&resp, out.Body), nil
}

// toAnthropicRequest lifts system messages into the system field; the rest keep their order.
func toAnthropicRequest(messages []internal.ChatCompletionMessage) *anthropicRequest {
	req := &anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        defaultMaxTokens,
	}
	var system []string
	for _, m := range messages {
		if m.Role == role.System {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n")
	return req
}

func fromAnthropicResponse(resp *anthropicResponse, raw []byte) *internal.ChatCompletionResponse {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	converted := &internal.ChatCompletionResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: &internal.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Raw: raw,
	}
	if len(resp.Content) > 0 {
		converted.Choices = []internal.Choice{{
			Message:      internal.ChatCompletionMessage{Role: role.Assistant, Content: text.String()},
			FinishReason: resp.StopReason,
		}}
	}
	return converted
}
