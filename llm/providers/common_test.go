package providers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/BaSui01/researchflow/llm"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		msg       string
		wantCode  llm.ErrorCode
		wantRetry bool
	}{
		{"unauthorized", http.StatusUnauthorized, "bad key", llm.ErrUnauthorized, false},
		{"forbidden", http.StatusForbidden, "nope", llm.ErrForbidden, false},
		{"rate limited", http.StatusTooManyRequests, "slow down", llm.ErrRateLimited, true},
		{"quota", http.StatusBadRequest, "Insufficient QUOTA", llm.ErrQuotaExceeded, false},
		{"azure content filter", http.StatusBadRequest, "The response was filtered (code: content_filter)", llm.ErrContentFiltered, false},
		{"plain bad request", http.StatusBadRequest, "missing messages", llm.ErrInvalidRequest, false},
		{"bad gateway", http.StatusBadGateway, "", llm.ErrUpstreamError, true},
		{"overloaded", 529, "busy", llm.ErrModelOverloaded, true},
		{"teapot", http.StatusTeapot, "", llm.ErrUpstreamError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(tt.status, tt.msg, "azure-openai")
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantRetry, err.Retryable)
			assert.Equal(t, tt.status, err.HTTPStatus)
			assert.Equal(t, "azure-openai", err.Provider)
		})
	}
}

func TestMapHTTPError_ServerErrorsAreRetryable(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		status := rapid.IntRange(500, 599).Draw(rt, "status")
		err := MapHTTPError(status, "x", "p")
		if !err.Retryable {
			rt.Fatalf("status %d should be retryable", status)
		}
	})
}

func TestReadErrorMessage(t *testing.T) {
	assert.Equal(t, "bad (type: invalid_request_error)",
		ReadErrorMessage(strings.NewReader(`{"error":{"message":"bad","type":"invalid_request_error"}}`)))
	assert.Equal(t, "filtered (code: content_filter)",
		ReadErrorMessage(strings.NewReader(`{"error":{"message":"filtered","code":"content_filter"}}`)))
	assert.Equal(t, "plain text", ReadErrorMessage(strings.NewReader("plain text")))
}

func TestChooseModel_Priority(t *testing.T) {
	assert.Equal(t, "req", ChooseModel(&llm.ChatRequest{Model: "req"}, "def", "fb"))
	assert.Equal(t, "def", ChooseModel(&llm.ChatRequest{}, "def", "fb"))
	assert.Equal(t, "fb", ChooseModel(nil, "", "fb"))
}

func TestToLLMChatResponse(t *testing.T) {
	resp := ToLLMChatResponse(OpenAICompatResponse{
		ID:    "1",
		Model: "gpt-4o",
		Choices: []OpenAICompatChoice{
			{Index: 0, FinishReason: "stop", Message: OpenAICompatMessage{Role: "assistant", Content: "hi"}},
		},
		Usage: &OpenAICompatUsage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
	}, "openai")

	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, "hi", resp.Choices[0].Message.Content)
	assert.Equal(t, llm.RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
}
