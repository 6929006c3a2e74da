package research

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/testutil/fixtures"
	"github.com/BaSui01/researchflow/testutil/mocks"
	"github.com/BaSui01/researchflow/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numbered scores "content N" fixtures by N.
func numbered(content string) float64 {
	n, _ := strconv.Atoi(strings.TrimPrefix(content, "content "))
	return float64(n)
}

func TestRerank_GlobalIDsAcrossBatches(t *testing.T) {
	provider := mocks.NewMockProvider().WithHandler("score-chunks", scoreBy(t, numbered))
	r := NewReranker(provider, testConfig(), testLogger(t))

	in := fixtures.Fragments(types.FragmentWeb, 25)
	got, err := r.Rerank(context.Background(), in, 3, nil, ReportContext{})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []string{in[24].ID, in[23].ID, in[22].ID}, types.FragmentIDs(got))
	assert.Equal(t, 24.0, got[0].LLMRelevance())

	calls := provider.CallsNamed("score-chunks")
	require.Len(t, calls, 3)
	var ids []int
	for _, c := range calls {
		for _, it := range promptChunks[scoreItem](t, c.Request) {
			ids = append(ids, it.ID)
		}
	}
	assert.ElementsMatch(t, seq(1, 25), ids)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestRerank_SectionScopeUsesSectionScore(t *testing.T) {
	provider := mocks.NewMockProvider().WithHandler("score-section-chunks", func(_ context.Context, req *llm.ChatRequest) (string, error) {
		items := promptChunks[scoreItem](t, req)
		chunks := make([]map[string]any, 0, len(items))
		for _, it := range items {
			// report relevance ranks the other way round
			chunks = append(chunks, map[string]any{
				"id":                      it.ID,
				"report_relevance_score":  100 - numbered(it.Content),
				"section_relevance_score": numbered(it.Content),
			})
		}
		return fixtures.JSON(map[string]any{"chunks": chunks}), nil
	})
	r := NewReranker(provider, testConfig(), nil)

	in := fixtures.Fragments(types.FragmentInternal, 4)
	got, err := r.Rerank(context.Background(), in, 2, &SectionInfo{Title: "Market", Description: "size"}, ReportContext{})
	require.NoError(t, err)

	assert.Equal(t, []string{in[3].ID, in[2].ID}, types.FragmentIDs(got))
	assert.Empty(t, provider.CallsNamed("score-chunks"))
	assert.Contains(t, provider.LastRequest().Messages[0].Content, "Section title: Market")
}

func TestRerank_EmptyTitleIsReportScope(t *testing.T) {
	provider := mocks.NewMockProvider().WithHandler("score-chunks", scoreBy(t, constScore(1)))
	r := NewReranker(provider, testConfig(), nil)

	_, err := r.Rerank(context.Background(), fixtures.Fragments(types.FragmentWeb, 2), 2, &SectionInfo{Title: "  "}, ReportContext{})
	require.NoError(t, err)
	assert.Len(t, provider.CallsNamed("score-chunks"), 1)
}

func TestRerank_EdgeCases(t *testing.T) {
	provider := mocks.NewMockProvider()
	r := NewReranker(provider, testConfig(), nil)
	ctx := context.Background()

	got, err := r.Rerank(ctx, nil, 5, nil, ReportContext{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.Rerank(ctx, fixtures.Fragments(types.FragmentWeb, 3), 0, nil, ReportContext{})
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Zero(t, provider.CallCount())
}

func TestRerank_SkipsUnusableScores(t *testing.T) {
	provider := mocks.NewMockProvider().WithHandler("score-chunks", func(_ context.Context, req *llm.ChatRequest) (string, error) {
		return `{"chunks": [{"id": 1, "score": 2}, {"id": 2}, {"id": 99, "score": 10}, {"id": 3, "score": 7}]}`, nil
	})
	r := NewReranker(provider, testConfig(), nil)

	in := fixtures.Fragments(types.FragmentWeb, 3)
	got, err := r.Rerank(context.Background(), in, 5, nil, ReportContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{in[2].ID, in[0].ID}, types.FragmentIDs(got))
}

func TestRerank_BatchFailure(t *testing.T) {
	provider := mocks.NewMockProvider().WithHandler("score-chunks", func(context.Context, *llm.ChatRequest) (string, error) {
		return "", fmt.Errorf("rate limited")
	})
	r := NewReranker(provider, testConfig(), nil)

	_, err := r.Rerank(context.Background(), fixtures.Fragments(types.FragmentWeb, 3), 2, nil, ReportContext{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrRerank))
}

func TestRerank_WavesBoundConcurrency(t *testing.T) {
	cfg := testConfig()
	in := fixtures.Fragments(types.FragmentWeb, 120)

	var inflight, peak atomic.Int32
	score := scoreBy(t, numbered)
	provider := mocks.NewMockProvider().WithHandler("score-chunks", func(ctx context.Context, req *llm.ChatRequest) (string, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return score(ctx, req)
	})
	r := NewReranker(provider, cfg, nil)

	got, err := r.Rerank(context.Background(), in, 5, nil, ReportContext{})
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Len(t, provider.CallsNamed("score-chunks"), (len(in)+cfg.BatchSize-1)/cfg.BatchSize)
	assert.LessOrEqual(t, int(peak.Load()), cfg.WaveSize)
	assert.GreaterOrEqual(t, int(peak.Load()), 1)
}

func TestRerank_TiesKeepBatchOrder(t *testing.T) {
	cfg := testConfig()
	provider := mocks.NewMockProvider().WithHandler("score-chunks", scoreBy(t, constScore(0.5)))
	r := NewReranker(provider, cfg, nil)

	in := fixtures.Fragments(types.FragmentWeb, 23)
	require.Greater(t, len(in), cfg.BatchSize)

	got, err := r.Rerank(context.Background(), in, len(in), nil, ReportContext{})
	require.NoError(t, err)
	assert.Equal(t, types.FragmentIDs(in), types.FragmentIDs(got))
}

func TestProperty_RerankSizeAndOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("rerank returns min(top, distinct) fragments sorted by score", prop.ForAll(
		func(n, top, batch int, scores []int) bool {
			cfg := testConfig()
			cfg.BatchSize = batch
			provider := mocks.NewMockProvider().WithHandler("score-chunks", scoreBy(t, func(c string) float64 {
				i := int(numbered(c))
				return float64(scores[i%len(scores)])
			}))
			r := NewReranker(provider, cfg, nil)

			in := fixtures.Fragments(types.FragmentWeb, n)
			// duplicates of the first fragments must not count
			in = append(in, in[:n/3]...)

			got, err := r.Rerank(context.Background(), in, top, nil, ReportContext{})
			if err != nil {
				t.Logf("rerank failed: %v", err)
				return false
			}
			if len(got) != min(top, n) {
				t.Logf("got %d fragments, want %d", len(got), min(top, n))
				return false
			}
			seen := make(map[string]bool)
			for i, f := range got {
				if seen[f.ID] {
					return false
				}
				seen[f.ID] = true
				if i > 0 && got[i-1].LLMRelevance() < f.LLMRelevance() {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(1, 12),
		gen.IntRange(1, 7),
		gen.SliceOfN(5, gen.IntRange(0, 10)),
	))

	properties.TestingRun(t)
}
