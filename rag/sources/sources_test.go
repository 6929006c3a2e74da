package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient() ClientConfig {
	return ClientConfig{Timeout: 5 * time.Second, RetryCount: 2, RetryDelay: time.Millisecond}
}

func TestDefaultConfigs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "advanced", DefaultTavilyConfig().SearchDepth)
	assert.Equal(t, "2024-05-01-preview", DefaultAzureSearchConfig().APIVersion)
	assert.Equal(t, "my-semantic-config", DefaultAzureSearchConfig().SemanticConfig)
	assert.Equal(t, 3, DefaultExaConfig().NumSentences)
	assert.Equal(t, 2, DefaultClientConfig().RetryCount)
}

func TestTavilySource_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))

		var req tavilyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "advanced", req.SearchDepth)
		assert.Equal(t, 2, req.MaxResults)

		_, _ = fmt.Fprint(w, `{"results":[
			{"url":"https://a.example","content":"alpha"},
			{"url":"https://b.example","content":"  "},
			{"url":"https://c.example","content":"gamma"},
			{"url":"https://d.example","content":"delta"}]}`)
	}))
	defer srv.Close()

	src := NewTavilySource(TavilyConfig{BaseURL: srv.URL, APIKey: "tv-key", Client: fastClient()}, nil)
	assert.Equal(t, "tavily", src.Name())

	hits, err := src.Search(context.Background(), "grid storage", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://a.example", hits[0].URL)
	assert.Equal(t, "gamma", hits[1].Content)
}

func TestTavilySource_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, `{"results":[{"url":"u","content":"c"}]}`)
	}))
	defer srv.Close()

	src := NewTavilySource(TavilyConfig{BaseURL: srv.URL, Client: fastClient()}, nil)
	hits, err := src.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTavilySource_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, "bad key")
	}))
	defer srv.Close()

	src := NewTavilySource(TavilyConfig{BaseURL: srv.URL, Client: fastClient()}, nil)
	_, err := src.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.Equal(t, types.ErrUnauthorized, types.GetErrorCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAzureSearchSource_Search(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/tenant-idx/docs/search", r.URL.Path)
		assert.Equal(t, "2024-05-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "az-key", r.Header.Get("api-key"))

		var req azureSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "semantic", req.QueryType)
		assert.Equal(t, "extractive", req.Captions)
		assert.Equal(t, 3, req.Top)

		_, _ = fmt.Fprint(w, `{"value":[
			{"FilePath":"policy.pdf","Content":"Line\u001b[31m one\n\n two\\","@search.rerankerScore":2.5,
			 "@search.captions":[{"text":"caption one"}]},
			{"FilePath":"empty.pdf","Content":"\u0000"},
			{"FilePath":"plain.pdf","Content":"no captions"}]}`)
	}))
	defer srv.Close()

	// the service name is ignored so requests land on the test server
	src := NewAzureSearchSource(AzureSearchConfig{APIKey: "az-key", EndpointTemplate: srv.URL + "%.0s", Client: fastClient()}, nil)

	hits, err := src.Search(context.Background(), "svc", "tenant-idx", "policy", 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, IndexHit{Source: "policy.pdf", Content: "Line one two", Highlights: "caption one", RerankerScore: 2.5}, hits[0])
	assert.Equal(t, "no captions", hits[1].Highlights)
}

func TestAzureSearchSource_RequiresTenantIndex(t *testing.T) {
	t.Parallel()

	_, err := NewAzureSearchSource(AzureSearchConfig{}, nil).Search(context.Background(), "", "idx", "q", 5)
	assert.Error(t, err)
}

func TestCleanContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", CleanContent("\x1b[1;32ma\x1b[0m\t\tb\\ \x00c"))
	assert.Equal(t, "caf", CleanContent("café"))
	assert.Equal(t, "", CleanContent(" \n "))
}

func TestExaSource_Contents(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contents", r.URL.Path)
		assert.Equal(t, "ex-key", r.Header.Get("x-api-key"))

		var req exaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, req.IDs)
		assert.False(t, req.Text)
		assert.Equal(t, "solar", req.Highlights.Query)
		assert.Equal(t, 4, req.Highlights.HighlightsPerURL)
		assert.Equal(t, 3, req.Highlights.NumSentences)

		_, _ = fmt.Fprint(w, `{"results":[
			{"id":"https://a.example","highlights":["h1","h2"]},
			{"id":"https://b.example","highlights":["", "h3"]}]}`)
	}))
	defer srv.Close()

	src := NewExaSource(ExaConfig{BaseURL: srv.URL, APIKey: "ex-key", Client: fastClient()}, nil)
	hits, err := src.Contents(context.Background(), []string{"https://a.example", "https://b.example"}, "solar", 4)
	require.NoError(t, err)
	assert.Equal(t, []URLHit{
		{URL: "https://a.example", Highlight: "h1"},
		{URL: "https://a.example", Highlight: "h2"},
		{URL: "https://b.example", Highlight: "h3"},
	}, hits)
}

func TestExaSource_NoURLsNoRequest(t *testing.T) {
	t.Parallel()

	src := NewExaSource(ExaConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	hits, err := src.Contents(context.Background(), nil, "q", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestJSONClient_MalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "<html>")
	}))
	defer srv.Close()

	_, err := NewTavilySource(TavilyConfig{BaseURL: srv.URL, Client: fastClient()}, nil).Search(context.Background(), "q", 1)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "malformed JSON"))
}

func TestJSONClient_RateLimitHonoursContext(t *testing.T) {
	t.Parallel()

	c := newJSONClient("t", ClientConfig{RateLimit: 0.001, Burst: 1}, nil)
	require.True(t, c.limiter.Allow(), "first token is available")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.do(ctx, "GET", "http://127.0.0.1:1", nil, nil, &struct{}{})
	assert.Error(t, err)
}
