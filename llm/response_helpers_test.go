package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstChoice(t *testing.T) {
	tests := []struct {
		name    string
		resp    *ChatResponse
		wantErr bool
		errMsg  string
	}{
		{
			name:    "nil response",
			resp:    nil,
			wantErr: true,
			errMsg:  "nil ChatResponse",
		},
		{
			name:    "empty choices",
			resp:    &ChatResponse{Choices: []ChatChoice{}},
			wantErr: true,
			errMsg:  "empty choices",
		},
		{
			name: "single choice",
			resp: &ChatResponse{
				Choices: []ChatChoice{
					{Index: 0, Message: Message{Content: "hello"}},
				},
			},
			wantErr: false,
		},
		{
			name: "multiple choices returns first",
			resp: &ChatResponse{
				Choices: []ChatChoice{
					{Index: 0, Message: Message{Content: "first"}},
					{Index: 1, Message: Message{Content: "second"}},
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice, err := FirstChoice(tt.resp)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.resp.Choices[0], choice)
			}
		})
	}
}

type funcProvider func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

func (f funcProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return f(ctx, req)
}
func (f funcProvider) HealthCheck(context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}
func (f funcProvider) Name() string { return "func" }

func TestInvoke_ReturnsFirstChoiceText(t *testing.T) {
	p := funcProvider(func(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
		assert.Equal(t, JSONObject, req.ResponseFormat)
		return &ChatResponse{Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: `{"ok":true}`}}}}, nil
	})

	out, err := Invoke(context.Background(), p, &ChatRequest{
		Name:           "test",
		Messages:       UserPrompt("hi"),
		ResponseFormat: JSONObject,
		Timeout:        time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestInvoke_TimeoutIsReportedAsRetryable(t *testing.T) {
	p := funcProvider(func(ctx context.Context, _ *ChatRequest) (*ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	_, err := Invoke(context.Background(), p, &ChatRequest{Name: "slow", Timeout: 10 * time.Millisecond})
	require.Error(t, err)

	var llmErr *Error
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, ErrUpstreamTimeout, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

func TestInvoke_PassesProviderErrorThrough(t *testing.T) {
	boom := &Error{Code: ErrRateLimited, Message: "slow down", Retryable: true}
	p := funcProvider(func(context.Context, *ChatRequest) (*ChatResponse, error) { return nil, boom })

	_, err := Invoke(context.Background(), p, &ChatRequest{Name: "x"})
	assert.Same(t, boom, err)
}

func TestTemperature(t *testing.T) {
	got := Temperature(0)
	require.NotNil(t, got)
	assert.Equal(t, float32(0), *got)
}
