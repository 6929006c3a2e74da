package sources

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// TavilyConfig configures the Tavily web search client.
type TavilyConfig struct {
	BaseURL     string       `json:"base_url" yaml:"base_url"`
	APIKey      string       `json:"-" yaml:"api_key"`
	SearchDepth string       `json:"search_depth" yaml:"search_depth"` // "basic" or "advanced"
	Client      ClientConfig `json:"client" yaml:"client"`
}

// DefaultTavilyConfig returns the production Tavily endpoint with advanced depth.
func DefaultTavilyConfig() TavilyConfig {
	return TavilyConfig{
		BaseURL:     "https://api.tavily.com",
		SearchDepth: "advanced",
		Client:      DefaultClientConfig(),
	}
}

// WebHit is one Tavily search result.
type WebHit struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TavilySource searches the public web through Tavily.
type TavilySource struct {
	config TavilyConfig
	http   *jsonClient
	logger *zap.Logger
}

// NewTavilySource creates a Tavily client.
func NewTavilySource(config TavilyConfig, logger *zap.Logger) *TavilySource {
	if config.BaseURL == "" {
		config.BaseURL = DefaultTavilyConfig().BaseURL
	}
	if config.SearchDepth == "" {
		config.SearchDepth = "advanced"
	}
	c := newJSONClient("tavily", config.Client, logger)
	return &TavilySource{config: config, http: c, logger: c.logger}
}

// Name returns the source name.
func (t *TavilySource) Name() string { return "tavily" }

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Results []WebHit `json:"results"`
}

// Search returns at most maxResults hits for query. Hits without content are dropped.
func (t *TavilySource) Search(ctx context.Context, query string, maxResults int) ([]WebHit, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	var resp tavilyResponse
	err := t.http.do(ctx, "POST", strings.TrimRight(t.config.BaseURL, "/")+"/search",
		map[string]string{"Authorization": "Bearer " + t.config.APIKey},
		tavilyRequest{Query: query, SearchDepth: t.config.SearchDepth, MaxResults: maxResults},
		&resp)
	if err != nil {
		return nil, err
	}

	hits := make([]WebHit, 0, len(resp.Results))
	for _, h := range resp.Results {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		hits = append(hits, h)
	}
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	t.logger.Debug("tavily search completed",
		zap.String("query", query),
		zap.Int("results", len(hits)))
	return hits, nil
}
