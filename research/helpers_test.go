package research

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/testutil/fixtures"
	"github.com/BaSui01/researchflow/testutil/mocks"
	"github.com/BaSui01/researchflow/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// promptChunks decodes the JSON list that follows "Chunks:" in a prompt.
func promptChunks[T any](t testing.TB, req *llm.ChatRequest) []T {
	t.Helper()
	prompt := req.Messages[len(req.Messages)-1].Content
	i := strings.LastIndex(prompt, "Chunks:")
	require.GreaterOrEqual(t, i, 0, "prompt has no chunk list")
	var items []T
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(prompt[i+len("Chunks:"):])), &items))
	return items
}

// scoreBy answers score-chunks and score-section-chunks calls with fn(content).
func scoreBy(t testing.TB, fn func(content string) float64) mocks.HandlerFunc {
	return func(_ context.Context, req *llm.ChatRequest) (string, error) {
		items := promptChunks[scoreItem](t, req)
		chunks := make([]map[string]any, 0, len(items))
		for _, it := range items {
			v := fn(it.Content)
			chunks = append(chunks, map[string]any{
				"id":                      it.ID,
				"score":                   v,
				"report_relevance_score":  v,
				"section_relevance_score": v,
			})
		}
		return fixtures.JSON(map[string]any{"chunks": chunks}), nil
	}
}

func constScore(v float64) func(string) float64 {
	return func(string) float64 { return v }
}

func queriesReplyOf(queries ...string) mocks.HandlerFunc {
	return func(context.Context, *llm.ChatRequest) (string, error) {
		return fixtures.QueriesJSON(queries...), nil
	}
}

func testConfig() Config {
	return DefaultConfig()
}

// countingUpdater records every persisted report.
type countingUpdater struct {
	mu      sync.Mutex
	updates []*types.Report
	err     error
}

func (u *countingUpdater) Update(_ context.Context, r *types.Report) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, r.Clone())
	return u.err
}

func (u *countingUpdater) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.updates)
}

// recordingObserver captures pipeline measurements.
type recordingObserver struct {
	mu        sync.Mutex
	fetches   map[string]int
	synthesis []bool
	hits      int
	misses    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{fetches: make(map[string]int)}
}

func (o *recordingObserver) RecordBackendFetch(backend string, _ int, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches[backend]++
}

func (o *recordingObserver) RecordSynthesis(_ int, exhausted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.synthesis = append(o.synthesis, exhausted)
}

func (o *recordingObserver) RecordCacheHit(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits++
}

func (o *recordingObserver) RecordCacheMiss(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses++
}

func testLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}
