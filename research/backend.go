package research

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/researchflow/rag"
	"github.com/BaSui01/researchflow/rag/sources"
	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
)

// =============================================================================
// Backend contract
// =============================================================================

// Backend is one retrieval source. Fetch returns an empty list, never an error,
// when a query has no results.
type Backend interface {
	Type() types.FragmentType
	Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error)
}

// SafeFetch is the adapter boundary: errors and panics from b are logged as
// BACKEND_FETCH warnings and become an empty result.
func SafeFetch(ctx context.Context, b Backend, query string, top int, logger *zap.Logger) (fragments []types.Fragment) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(scopeFields(ctx)...)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("backend fetch panicked, treating as no results",
				zap.String("code", string(types.ErrBackendFetch)),
				zap.String("backend", string(b.Type())),
				zap.String("query", query),
				zap.Any("panic", r),
				zap.Duration("elapsed", time.Since(start)))
			fragments = []types.Fragment{}
		}
	}()

	out, err := b.Fetch(ctx, query, top)
	if err != nil {
		fetchErr := types.NewError(types.ErrBackendFetch, fmt.Sprintf("%s fetch failed", b.Type())).WithCause(err)
		logger.Warn("backend fetch failed, treating as no results",
			zap.String("code", string(types.ErrBackendFetch)),
			zap.String("backend", string(b.Type())),
			zap.String("query", query),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(fetchErr))
		return []types.Fragment{}
	}
	logger.Debug("backend fetch finished",
		zap.String("backend", string(b.Type())),
		zap.String("query", query),
		zap.Int("fragments", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	if out == nil {
		out = []types.Fragment{}
	}
	return out
}

// truncate keeps at most top fragments; top <= 0 keeps none.
func truncate(fs []types.Fragment, top int) []types.Fragment {
	if top < 0 {
		top = 0
	}
	if len(fs) > top {
		return fs[:top]
	}
	return fs
}

// =============================================================================
// Native search clients consumed by the adapters
// =============================================================================

// WebSearcher searches the public web (sources.TavilySource).
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]sources.WebHit, error)
}

// IndexSearcher queries a tenant's internal index (sources.AzureSearchSource).
type IndexSearcher interface {
	Search(ctx context.Context, service, index, query string, top int) ([]sources.IndexHit, error)
}

// ContentsFetcher extracts query-relevant highlights from known URLs (sources.ExaSource).
type ContentsFetcher interface {
	Contents(ctx context.Context, urls []string, query string, perURL int) ([]sources.URLHit, error)
}

// DocumentSearcher is a vector index over uploaded files (*rag.LocalIndex).
type DocumentSearcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]rag.VectorSearchResult, error)
}

// =============================================================================
// Adapters
// =============================================================================

// WebBackend maps web hits to WEB fragments.
type WebBackend struct {
	searcher WebSearcher
}

// NewWebBackend creates a web adapter.
func NewWebBackend(s WebSearcher) *WebBackend { return &WebBackend{searcher: s} }

func (b *WebBackend) Type() types.FragmentType { return types.FragmentWeb }

func (b *WebBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	hits, err := b.searcher.Search(ctx, query, top)
	if err != nil {
		return nil, err
	}
	out := make([]types.Fragment, 0, len(hits))
	for _, h := range hits {
		out = append(out, types.NewFragment(types.FragmentWeb, query, h.Content, h.URL))
	}
	return truncate(Dedup(out), top), nil
}

// InternalBackend maps a tenant's index hits to INTERNAL fragments carrying the
// semantic reranker score as a vector score.
type InternalBackend struct {
	searcher IndexSearcher
	tenant   types.Tenant
}

// NewInternalBackend creates an internal-index adapter bound to tenant.
func NewInternalBackend(s IndexSearcher, tenant types.Tenant) *InternalBackend {
	return &InternalBackend{searcher: s, tenant: tenant}
}

func (b *InternalBackend) Type() types.FragmentType { return types.FragmentInternal }

func (b *InternalBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	hits, err := b.searcher.Search(ctx, b.tenant.SearchService, b.tenant.SearchIndex, query, top)
	if err != nil {
		return nil, err
	}
	out := make([]types.Fragment, 0, len(hits))
	for _, h := range hits {
		f := types.NewFragment(types.FragmentInternal, query, h.Content, h.Source)
		f.Caption = h.Highlights
		f.Highlights = h.Highlights
		f.VectorScore = types.VectorScore(h.RerankerScore)
		out = append(out, f)
	}
	return truncate(Dedup(out), top), nil
}

// FileBackend maps local index matches to FILE fragments.
type FileBackend struct {
	index DocumentSearcher
}

// NewFileBackend creates an adapter over an uploaded-file index.
func NewFileBackend(index DocumentSearcher) *FileBackend { return &FileBackend{index: index} }

func (b *FileBackend) Type() types.FragmentType { return types.FragmentFile }

func (b *FileBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	results, err := b.index.SimilaritySearch(ctx, query, top)
	if err != nil {
		return nil, err
	}
	out := make([]types.Fragment, 0, len(results))
	for _, r := range results {
		f := types.NewFragment(types.FragmentFile, query, r.Document.Content, r.Document.Source())
		f.VectorScore = types.VectorScore(r.Score)
		out = append(out, f)
	}
	return truncate(Dedup(out), top), nil
}

// URLBackend maps highlights from a fixed URL list to URL fragments.
type URLBackend struct {
	fetcher ContentsFetcher
	urls    []string
}

// NewURLBackend creates an adapter over the given URLs.
func NewURLBackend(f ContentsFetcher, urls []string) *URLBackend {
	return &URLBackend{fetcher: f, urls: append([]string(nil), urls...)}
}

func (b *URLBackend) Type() types.FragmentType { return types.FragmentURL }

func (b *URLBackend) Fetch(ctx context.Context, query string, top int) ([]types.Fragment, error) {
	if len(b.urls) == 0 {
		return []types.Fragment{}, nil
	}
	hits, err := b.fetcher.Contents(ctx, b.urls, query, top)
	if err != nil {
		return nil, err
	}
	out := make([]types.Fragment, 0, len(hits))
	for _, h := range hits {
		out = append(out, types.NewFragment(types.FragmentURL, query, h.Highlight, h.URL))
	}
	return truncate(Dedup(out), top), nil
}
