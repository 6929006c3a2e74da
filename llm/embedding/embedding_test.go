package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ChooseModel ---

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req-model", ChooseModel("req-model", "default", "fallback"))
	assert.Equal(t, "default", ChooseModel("", "default", "fallback"))
	assert.Equal(t, "fallback", ChooseModel("", "", "fallback"))
}

// --- BaseProvider ---

func TestNewBaseProvider(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		bp := NewBaseProvider(BaseConfig{
			Name:    "test",
			BaseURL: "http://example.com/",
		})
		assert.Equal(t, "test", bp.Name())
		assert.Equal(t, 100, bp.MaxBatchSize())
		assert.Equal(t, "http://example.com", bp.baseURL)
	})

	t.Run("custom values", func(t *testing.T) {
		bp := NewBaseProvider(BaseConfig{
			Name:       "custom",
			BaseURL:    "http://api.test",
			Dimensions: 512,
			MaxBatch:   50,
			Timeout:    10 * time.Second,
		})
		assert.Equal(t, 512, bp.Dimensions())
		assert.Equal(t, 50, bp.MaxBatchSize())
	})
}

// embedServer answers every request with one 2-d vector per input: [len(input), index].
func embedServer(t *testing.T, check func(r *http.Request)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if check != nil {
			check(r)
		}
		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type item struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i, in := range req.Input {
			data[i] = item{Index: i, Embedding: []float64{float64(len(in)), float64(i)}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data, "model": "m"})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestOpenAIProvider_EmbedDocumentsBatches(t *testing.T) {
	srv, calls := embedServer(t, func(r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
	})

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "key", BaseURL: srv.URL, MaxBatch: 2})
	docs := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vecs, err := p.EmbedDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, vecs, len(docs))
	for i, d := range docs {
		assert.Equal(t, float64(len(d)), vecs[i][0], "order must follow the input")
	}
	assert.Equal(t, int32(3), calls.Load(), "5 docs in batches of 2")
}

func TestOpenAIProvider_AzureRouting(t *testing.T) {
	srv, _ := embedServer(t, func(r *http.Request) {
		assert.Equal(t, "/openai/deployments/embed-small/embeddings", r.URL.Path)
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "key", r.Header.Get("api-key"))
	})

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "key", BaseURL: srv.URL, Model: "embed-small", AzureAPIVersion: "2024-06-01"})
	assert.Equal(t, "azure-openai-embedding", p.Name())

	vec, err := p.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0}, vec)
}

// --- mapHTTPError ---

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		wantCode  llm.ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, llm.ErrUnauthorized, false},
		{http.StatusForbidden, llm.ErrForbidden, false},
		{http.StatusTooManyRequests, llm.ErrRateLimited, true},
		{http.StatusBadRequest, llm.ErrInvalidRequest, false},
		{http.StatusInternalServerError, llm.ErrUpstreamError, true},
	}
	for _, tt := range tests {
		err := mapHTTPError(tt.status, "msg", "p")
		assert.Equal(t, tt.wantCode, err.Code)
		assert.Equal(t, tt.retryable, err.Retryable)
	}
}

func TestDoRequest_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: srv.URL})
	_, err := p.EmbedQuery(context.Background(), "q")
	require.Error(t, err)
	llmErr, ok := err.(*llm.Error)
	require.True(t, ok)
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
	assert.Equal(t, "slow down", llmErr.Message)
}
