package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/checkmarxDev/audit-wrapper/pkg/message"
	"github.com/checkmarxDev/audit-wrapper/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"id":"chatcmpl-1","model":"gpt-3.5-turbo-0125","choices":[{"index":0,"message":{"role":"assistant","content":"{\"issues\": []}"},"finish_reason":"stop"}]}`

func TestCallSendsRequest(t *testing.T) {
	var got ChatCompletionRequest
	var header http.Header
	testServer := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		header = req.Header.Clone()
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &got)
		res.WriteHeader(http.StatusOK)
		_, _ = res.Write([]byte(okBody))
	}))
	defer testServer.Close()

	wrapper := NewWrapperImpl(testServer.URL, "test-key", testServer.Client())
	request := NewRequest(models.DefaultModel, []message.Message{message.System("sys"), message.User("x=1")})
	resp, err := wrapper.Call(context.Background(), &message.MetaData{RequestID: "req-1", Feature: "in-depth-analysis"}, request)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", header.Get("Authorization"))
	assert.Equal(t, "req-1", header.Get("X-Request-ID"))
	assert.Equal(t, "in-depth-analysis", header.Get("X-Feature-Name"))
	assert.NotContains(t, header, "X-Tenant-Id")
	assert.Equal(t, models.DefaultModel, got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, ResponseFormatJSON, got.ResponseFormat.Type)
	assert.Equal(t, []ChatCompletionMessage{{Role: "system", Content: "sys"}, {Role: "user", Content: "x=1"}}, got.Messages)

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, `{"issues": []}`, resp.Choices[0].Message.Content)
	assert.Equal(t, okBody, string(resp.Raw))
}

func TestPrepareRequestTenant(t *testing.T) {
	wrapper := NewWrapperImpl("http://localhost", "k", nil)
	req, err := wrapper.prepareRequest(context.Background(), &message.MetaData{RequestID: "r", TenantID: "tenant-7"}, NewRequest("m", nil))
	require.NoError(t, err)
	assert.Equal(t, "tenant-7", req.Header.Get("X-Tenant-ID"))
}

func TestHandleGptResponse(t *testing.T) {
	wrapper := NewWrapperImpl("", "test", nil)
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader([]byte(okBody)))}
	res, err := wrapper.handleGptResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", res.ID)
}

func TestHandleGptResponseNegativeOpenAi(t *testing.T) {
	wrapper := NewWrapperImpl("", "test", nil)
	errRes := ErrorResponse{
		Error: GptError{
			Message: "test",
			Type:    "test",
			Param:   "test",
			Code:    429,
		},
	}
	errResB, _ := json.Marshal(errRes)
	resp := &http.Response{Body: io.NopCloser(bytes.NewReader(errResB))}
	resp.StatusCode = http.StatusTooManyRequests
	res, err := wrapper.handleGptResponse(resp)
	if res != nil {
		t.Fatal("Expected nil response")
	}
	if err == nil {
		t.Fatal("Expected error")
	}
	assert.Contains(t, err.Error(), "test")
	assert.Contains(t, err.Error(), strconv.Itoa(http.StatusTooManyRequests))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "429", apiErr.Code)
}

func TestHandleGptResponseCodeOnly(t *testing.T) {
	wrapper := NewWrapperImpl("", "test", nil)
	body := `{"error":{"code":"invalid_api_key"}}`
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(bytes.NewReader([]byte(body)))}
	_, err := wrapper.handleGptResponse(resp)
	require.Error(t, err)
	assert.Equal(t, "Error Code: 401, invalid_api_key", err.Error())
}

func TestHandleGptResponseNotJSON(t *testing.T) {
	wrapper := NewWrapperImpl("", "test", nil)
	resp := &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(bytes.NewReader([]byte("upstream down")))}
	_, err := wrapper.handleGptResponse(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
	assert.Contains(t, err.Error(), strconv.Itoa(http.StatusBadGateway))
}

func TestCallNetworkError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {}))
	url := testServer.URL
	testServer.Close()

	wrapper := NewWrapperImpl(url, "test", nil)
	_, err := wrapper.Call(context.Background(), nil, NewRequest(models.DefaultModel, []message.Message{message.User("hi")}))
	assert.Error(t, err)
}
