package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// New() constructor
// ---------------------------------------------------------------------------

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		logger       *zap.Logger
		wantEndpoint string
		wantName     string
	}{
		{
			name:         "all defaults applied",
			cfg:          Config{},
			wantEndpoint: "/v1/chat/completions",
			wantName:     "openai",
		},
		{
			name:         "azure name default",
			cfg:          Config{AzureAPIVersion: "2024-06-01"},
			logger:       zap.NewNop(),
			wantEndpoint: "/v1/chat/completions",
			wantName:     "azure-openai",
		},
		{
			name:         "custom endpoint preserved",
			cfg:          Config{ProviderName: "local", EndpointPath: "/api/chat"},
			wantEndpoint: "/api/chat",
			wantName:     "local",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, tt.logger)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantEndpoint, p.Cfg.EndpointPath)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NotNil(t, p.Client)
			assert.NotNil(t, p.Logger)
			assert.NotNil(t, p.Cfg.BuildHeaders)
		})
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestCompletion_OpenAIRequestShape(t *testing.T) {
	var got providers.OpenAICompatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID:    "c1",
			Model: "gpt-4o-mini",
			Choices: []providers.OpenAICompatChoice{
				{Message: providers.OpenAICompatMessage{Role: "assistant", Content: `{"queries":["a"]}`}},
			},
			Created: 1700000000,
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "sk-test", BaseURL: srv.URL, DefaultModel: "gpt-4o-mini"}, nil)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Name:           "generate-queries",
		Messages:       llm.UserPrompt("hello"),
		Temperature:    llm.Temperature(0),
		ResponseFormat: llm.JSONObject,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.NotNil(t, got.Temperature, "explicit zero temperature must be sent")
	assert.Equal(t, float32(0), *got.Temperature)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.Equal(t, `{"queries":["a"]}`, resp.Choices[0].Message.Content)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestCompletion_AzureRouting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasModel := body["model"]
		assert.False(t, hasModel, "azure routes by deployment, not body model")

		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			Choices: []providers.OpenAICompatChoice{{Message: providers.OpenAICompatMessage{Content: "ok"}}},
		})
	}))
	defer srv.Close()

	p := New(Config{APIKey: "azure-key", BaseURL: srv.URL, DefaultModel: "gpt-4o", AzureAPIVersion: "2024-06-01"}, nil)
	out, err := llm.Invoke(context.Background(), p, &llm.ChatRequest{Name: "chat", Messages: llm.UserPrompt("x")})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestCompletion_MapsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"requests"}}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.UserPrompt("x")})
	require.Error(t, err)

	llmErr, ok := err.(*llm.Error)
	require.True(t, ok)
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
	assert.True(t, llmErr.Retryable)
	assert.Contains(t, llmErr.Message, "rate limit")
}

func TestCompletion_BadJSONIsRetryableUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Messages: llm.UserPrompt("x")})
	llmErr, ok := err.(*llm.Error)
	require.True(t, ok)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
	assert.True(t, llmErr.Retryable)
}

// ---------------------------------------------------------------------------
// HealthCheck
// ---------------------------------------------------------------------------

func TestHealthCheck(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, nil)
	status, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	unhealthy.Store(true)
	status, err = p.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, status.Healthy)
}
