package Azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/pkg/message"
	"github.com/checkmarxDev/audit-wrapper/pkg/role"
)

// ChatClient is the subset of *azopenai.Client used here.
type ChatClient interface {
	GetChatCompletions(ctx context.Context, body azopenai.ChatCompletionsOptions, options *azopenai.GetChatCompletionsOptions) (azopenai.GetChatCompletionsResponse, error)
}

// Client sends chat completions to an Azure OpenAI deployment.
type Client struct {
	chat       ChatClient
	deployment string
}

func NewClient(endpoint, apiKey, deployment string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("azure openai endpoint is required")
	}
	keyCredential := azcore.NewKeyCredential(apiKey)
	chat, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("creating azure openai client: %w", err)
	}
	return NewClientWithChat(chat, deployment), nil
}

func NewClientWithChat(chat ChatClient, deployment string) *Client {
	return &Client{chat: chat, deployment: deployment}
}

func (c *Client) Provider() string {
	return "azure"
}

// Call maps the request onto the deployment.
func (c *Client) Call(ctx context.Context, _ *message.MetaData, request *internal.ChatCompletionRequest) (*internal.ChatCompletionResponse, error) {
	messages, err := toAzureMessages(request.Messages)
	if err != nil {
		return nil, err
	}
	deployment := c.deployment
	if deployment == "" {
		deployment = request.Model
	}

	options := azopenai.ChatCompletionsOptions{
		Messages:       messages,
		DeploymentName: &deployment,
	}
	if request.ResponseFormat != nil && request.ResponseFormat.Type == internal.ResponseFormatJSON {
		options.ResponseFormat = &azopenai.ChatCompletionsJSONResponseFormat{}
	}

	resp, err := c.chat.GetChatCompletions(ctx, options, nil)
	if err != nil {
		return nil, err
	}
	return fromAzureResponse(resp.ChatCompletions), nil
}

func toAzureMessages(messages []internal.ChatCompletionMessage) ([]azopenai.ChatRequestMessageClassification, error) {
	converted := make([]azopenai.ChatRequestMessageClassification, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case role.System:
			converted = append(converted, &azopenai.ChatRequestSystemMessage{Content: to.Ptr(m.Content)})
		case role.User:
			converted = append(converted, &azopenai.ChatRequestUserMessage{Content: azopenai.NewChatRequestUserMessageContent(m.Content)})
		case role.Assistant:
			converted = append(converted, &azopenai.ChatRequestAssistantMessage{Content: to.Ptr(m.Content)})
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return converted, nil
}

func fromAzureResponse(completions azopenai.ChatCompletions) *internal.ChatCompletionResponse {
	response := &internal.ChatCompletionResponse{}
	if completions.ID != nil {
		response.ID = *completions.ID
	}
	for i, choice := range completions.Choices {
		converted := internal.Choice{Index: i}
		if choice.Index != nil {
			converted.Index = int(*choice.Index)
		}
		if choice.Message != nil {
			if choice.Message.Role != nil {
				converted.Message.Role = string(*choice.Message.Role)
			}
			if choice.Message.Content != nil {
				converted.Message.Content = *choice.Message.Content
			}
		}
		if choice.FinishReason != nil {
			converted.FinishReason = string(*choice.FinishReason)
		}
		response.Choices = append(response.Choices, converted)
	}
	if completions.Usage != nil {
		response.Usage = &internal.Usage{}
		if completions.Usage.PromptTokens != nil {
			response.Usage.PromptTokens = int(*completions.Usage.PromptTokens)
		}
		if completions.Usage.CompletionTokens != nil {
			response.Usage.CompletionTokens = int(*completions.Usage.CompletionTokens)
		}
		if completions.Usage.TotalTokens != nil {
			response.Usage.TotalTokens = int(*completions.Usage.TotalTokens)
		}
	}
	if raw, err := json.Marshal(completions); err == nil {
		response.Raw = raw
	}
	return response
}
