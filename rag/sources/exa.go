package sources

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ExaConfig configures the Exa contents client.
type ExaConfig struct {
	BaseURL      string       `json:"base_url" yaml:"base_url"`
	APIKey       string       `json:"-" yaml:"api_key"`
	NumSentences int          `json:"num_sentences" yaml:"num_sentences"`
	Client       ClientConfig `json:"client" yaml:"client"`
}

// DefaultExaConfig returns the production Exa endpoint.
func DefaultExaConfig() ExaConfig {
	return ExaConfig{
		BaseURL:      "https://api.exa.ai",
		NumSentences: 3,
		Client:       DefaultClientConfig(),
	}
}

// URLHit is one highlight extracted from a caller-supplied URL.
type URLHit struct {
	URL       string
	Highlight string
}

// ExaSource fetches query-relevant highlights from a fixed list of URLs.
type ExaSource struct {
	config ExaConfig
	http   *jsonClient
	logger *zap.Logger
}

// NewExaSource creates an Exa client.
func NewExaSource(config ExaConfig, logger *zap.Logger) *ExaSource {
	def := DefaultExaConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.NumSentences <= 0 {
		config.NumSentences = def.NumSentences
	}
	c := newJSONClient("exa", config.Client, logger)
	return &ExaSource{config: config, http: c, logger: c.logger}
}

// Name returns the source name.
func (e *ExaSource) Name() string { return "exa" }

type exaHighlights struct {
	Query            string `json:"query"`
	HighlightsPerURL int    `json:"highlightsPerUrl"`
	NumSentences     int    `json:"numSentences"`
}

type exaRequest struct {
	IDs        []string      `json:"ids"`
	Text       bool          `json:"text"`
	Highlights exaHighlights `json:"highlights"`
}

type exaResponse struct {
	Results []struct {
		ID         string   `json:"id"`
		URL        string   `json:"url"`
		Highlights []string `json:"highlights"`
	} `json:"results"`
}

// Contents returns up to perURL highlights for each URL, one hit per highlight.
func (e *ExaSource) Contents(ctx context.Context, urls []string, query string, perURL int) ([]URLHit, error) {
	if len(urls) == 0 {
		return []URLHit{}, nil
	}
	if perURL <= 0 {
		perURL = 5
	}

	var resp exaResponse
	err := e.http.do(ctx, "POST", strings.TrimRight(e.config.BaseURL, "/")+"/contents",
		map[string]string{"x-api-key": e.config.APIKey},
		exaRequest{
			IDs:  urls,
			Text: false,
			Highlights: exaHighlights{
				Query:            query,
				HighlightsPerURL: perURL,
				NumSentences:     e.config.NumSentences,
			},
		},
		&resp)
	if err != nil {
		return nil, err
	}

	var hits []URLHit
	for _, r := range resp.Results {
		u := r.ID
		if u == "" {
			u = r.URL
		}
		for _, h := range r.Highlights {
			if strings.TrimSpace(h) == "" {
				continue
			}
			hits = append(hits, URLHit{URL: u, Highlight: h})
		}
	}

	e.logger.Debug("exa contents completed",
		zap.Int("urls", len(urls)),
		zap.String("query", query),
		zap.Int("highlights", len(hits)))
	return hits, nil
}
