package Azure

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/checkmarxDev/audit-wrapper/internal"
	"github.com/checkmarxDev/audit-wrapper/pkg/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	got  azopenai.ChatCompletionsOptions
	resp azopenai.GetChatCompletionsResponse
	err  error
}

func (f *fakeChat) GetChatCompletions(_ context.Context, body azopenai.ChatCompletionsOptions, _ *azopenai.GetChatCompletionsOptions) (azopenai.GetChatCompletionsResponse, error) {
	f.got = body
	return f.resp, f.err
}

func TestCall(t *testing.T) {
	assistant := azopenai.ChatRoleAssistant
	finish := azopenai.CompletionsFinishReasonStopped
	chat := &fakeChat{resp: azopenai.GetChatCompletionsResponse{ChatCompletions: azopenai.ChatCompletions{
		ID: to.Ptr("cmpl-1"),
		Choices: []azopenai.ChatChoice{{
			Index:        to.Ptr[int32](0),
			Message:      &azopenai.ChatResponseMessage{Role: &assistant, Content: to.Ptr(`{"sensitiveFiles": []}`)},
			FinishReason: &finish,
		}},
		Usage: &azopenai.CompletionsUsage{PromptTokens: to.Ptr[int32](10), CompletionTokens: to.Ptr[int32](3), TotalTokens: to.Ptr[int32](13)},
	}}}
	client := NewClientWithChat(chat, "gpt-35-deployment")

	request := internal.NewRequest("gpt-3.5-turbo-0125", []message.Message{
		message.System("sys"),
		message.User("example"),
		message.Assistant("answer"),
		message.User("real"),
	})
	resp, err := client.Call(context.Background(), nil, request)
	require.NoError(t, err)

	require.NotNil(t, chat.got.DeploymentName)
	assert.Equal(t, "gpt-35-deployment", *chat.got.DeploymentName)
	require.Len(t, chat.got.Messages, 4)
	assert.IsType(t, &azopenai.ChatRequestSystemMessage{}, chat.got.Messages[0])
	assert.IsType(t, &azopenai.ChatRequestUserMessage{}, chat.got.Messages[1])
	assert.IsType(t, &azopenai.ChatRequestAssistantMessage{}, chat.got.Messages[2])
	assert.IsType(t, &azopenai.ChatRequestUserMessage{}, chat.got.Messages[3])
	assert.IsType(t, &azopenai.ChatCompletionsJSONResponseFormat{}, chat.got.ResponseFormat)

	assert.Equal(t, "cmpl-1", resp.ID)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, `{"sensitiveFiles": []}`, resp.Choices[0].Message.Content)
	assert.Equal(t, "assistant", resp.Choices[0].Message.Role)
	assert.Equal(t, 13, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.Raw)
}

func TestCallDefaultsDeploymentToModel(t *testing.T) {
	chat := &fakeChat{}
	client := NewClientWithChat(chat, "")
	_, err := client.Call(context.Background(), nil, internal.NewRequest("gpt-4", []message.Message{message.User("x")}))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", *chat.got.DeploymentName)
}

func TestCallWithoutResponseFormat(t *testing.T) {
	chat := &fakeChat{}
	client := NewClientWithChat(chat, "d")
	request := &internal.ChatCompletionRequest{
		Model:    "m",
		Messages: []internal.ChatCompletionMessage{{Role: "user", Content: "x"}},
	}
	_, err := client.Call(context.Background(), nil, request)
	require.NoError(t, err)
	assert.Nil(t, chat.got.ResponseFormat)
}

func TestCallPropagatesError(t *testing.T) {
	remote := errors.New("quota exceeded")
	client := NewClientWithChat(&fakeChat{err: remote}, "d")
	_, err := client.Call(context.Background(), nil, internal.NewRequest("m", []message.Message{message.User("x")}))
	assert.Same(t, remote, err)
}

func TestCallRejectsUnknownRole(t *testing.T) {
	chat := &fakeChat{}
	client := NewClientWithChat(chat, "d")
	_, err := client.Call(context.Background(), nil, internal.NewRequest("m", []message.Message{{Role: "tool", Content: "x"}}))
	assert.Error(t, err)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient("", "key", "d")
	assert.Error(t, err)
}
