package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// AzureSearchConfig configures the Azure AI Search client.
// Service and index are chosen per call since every tenant has its own.
type AzureSearchConfig struct {
	APIKey           string       `json:"-" yaml:"api_key"`
	APIVersion       string       `json:"api_version" yaml:"api_version"`
	SemanticConfig   string       `json:"semantic_config" yaml:"semantic_config"`
	EndpointTemplate string       `json:"endpoint_template" yaml:"endpoint_template"` // %s = service name
	Client           ClientConfig `json:"client" yaml:"client"`
}

// DefaultAzureSearchConfig returns the semantic-search defaults.
func DefaultAzureSearchConfig() AzureSearchConfig {
	return AzureSearchConfig{
		APIVersion:       "2024-05-01-preview",
		SemanticConfig:   "my-semantic-config",
		EndpointTemplate: "https://%s.search.windows.net",
		Client:           DefaultClientConfig(),
	}
}

// IndexHit is one semantic search result from a tenant index.
type IndexHit struct {
	Source        string
	Content       string
	Highlights    string
	RerankerScore float64
}

// AzureSearchSource queries tenant Azure AI Search indexes.
type AzureSearchSource struct {
	config AzureSearchConfig
	http   *jsonClient
	logger *zap.Logger
}

// NewAzureSearchSource creates an Azure AI Search client.
func NewAzureSearchSource(config AzureSearchConfig, logger *zap.Logger) *AzureSearchSource {
	def := DefaultAzureSearchConfig()
	if config.APIVersion == "" {
		config.APIVersion = def.APIVersion
	}
	if config.SemanticConfig == "" {
		config.SemanticConfig = def.SemanticConfig
	}
	if config.EndpointTemplate == "" {
		config.EndpointTemplate = def.EndpointTemplate
	}
	c := newJSONClient("azure-search", config.Client, logger)
	return &AzureSearchSource{config: config, http: c, logger: c.logger}
}

// Name returns the source name.
func (a *AzureSearchSource) Name() string { return "azure-search" }

type azureSearchRequest struct {
	Search                string `json:"search"`
	Top                   int    `json:"top"`
	QueryType             string `json:"queryType"`
	SemanticConfiguration string `json:"semanticConfiguration"`
	Captions              string `json:"captions"`
}

type azureSearchResponse struct {
	Value []struct {
		FilePath      string  `json:"FilePath"`
		Content       string  `json:"Content"`
		RerankerScore float64 `json:"@search.rerankerScore"`
		Captions      []struct {
			Text string `json:"text"`
		} `json:"@search.captions"`
	} `json:"value"`
}

func (a *AzureSearchSource) endpoint(service, index string) string {
	base := fmt.Sprintf(a.config.EndpointTemplate, service)
	return fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		strings.TrimRight(base, "/"), url.PathEscape(index), url.QueryEscape(a.config.APIVersion))
}

// Search runs a semantic query against service/index and returns at most top hits.
func (a *AzureSearchSource) Search(ctx context.Context, service, index, query string, top int) ([]IndexHit, error) {
	if service == "" || index == "" {
		return nil, fmt.Errorf("azure-search: tenant has no search service or index configured")
	}
	if top <= 0 {
		top = 5
	}

	var resp azureSearchResponse
	err := a.http.do(ctx, "POST", a.endpoint(service, index),
		map[string]string{"api-key": a.config.APIKey},
		azureSearchRequest{
			Search:                query,
			Top:                   top,
			QueryType:             "semantic",
			SemanticConfiguration: a.config.SemanticConfig,
			Captions:              "extractive",
		},
		&resp)
	if err != nil {
		return nil, err
	}

	hits := make([]IndexHit, 0, len(resp.Value))
	for _, v := range resp.Value {
		content := CleanContent(v.Content)
		if content == "" {
			continue
		}
		highlights := content
		if len(v.Captions) > 0 && v.Captions[0].Text != "" {
			highlights = CleanContent(v.Captions[0].Text)
		}
		hits = append(hits, IndexHit{
			Source:        v.FilePath,
			Content:       content,
			Highlights:    highlights,
			RerankerScore: v.RerankerScore,
		})
	}
	if len(hits) > top {
		hits = hits[:top]
	}

	a.logger.Debug("azure search completed",
		zap.String("index", index),
		zap.String("query", query),
		zap.Int("results", len(hits)))
	return hits, nil
}

var (
	ansiPattern       = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanContent strips ANSI escape sequences, NUL bytes, backslashes and
// non-ASCII characters, then collapses whitespace runs.
func CleanContent(s string) string {
	s = ansiPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == 0, r == '\\':
			return -1
		case r > 127:
			return -1
		}
		return r
	}, s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
