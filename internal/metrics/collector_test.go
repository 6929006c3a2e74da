package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("researchflow", reg, zap.NewNop()), reg
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector, _ := newTestCollector(t)

	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.backendFetchesTotal)
	assert.NotNil(t, collector.synthesisAttempts)
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	// 同名指标注册到不同 registry 不会冲突
	assert.NotPanics(t, func() {
		NewCollector("researchflow", prometheus.NewRegistry(), nil)
		NewCollector("researchflow", prometheus.NewRegistry(), nil)
	})
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordHTTPRequest("GET", "/health", 200, 10*time.Millisecond)
	collector.RecordHTTPRequest("GET", "/health", 204, 10*time.Millisecond)
	collector.RecordHTTPRequest("GET", "/health", 503, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "5xx")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordLLMRequest("score-chunks", "gpt-4o-mini", "success", 500*time.Millisecond, 100, 50, 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("score-chunks", "gpt-4o-mini", "success")))
	assert.Equal(t, 100.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("score-chunks", "gpt-4o-mini", "prompt")))
	assert.Equal(t, 50.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("score-chunks", "gpt-4o-mini", "completion")))
	assert.InDelta(t, 0.01, testutil.ToFloat64(collector.llmCost.WithLabelValues("gpt-4o-mini")), 1e-9)
}

func TestCollector_RecordBackendFetch(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordBackendFetch("WEB", 4, 200*time.Millisecond, nil)
	collector.RecordBackendFetch("WEB", 0, time.Second, errors.New("timeout"))

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.backendFetchesTotal.WithLabelValues("WEB", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.backendFetchesTotal.WithLabelValues("WEB", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.backendFragmentsTotal.WithLabelValues("WEB")))
}

func TestCollector_RecordSynthesis(t *testing.T) {
	collector, reg := newTestCollector(t)

	collector.RecordSynthesis(1, false)
	collector.RecordSynthesis(6, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.synthesisTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.synthesisTotal.WithLabelValues("exhausted")))

	expected := `
# HELP researchflow_synthesis_attempts LLM attempts used per synthesis
# TYPE researchflow_synthesis_attempts histogram
researchflow_synthesis_attempts_bucket{le="1"} 1
researchflow_synthesis_attempts_bucket{le="2"} 1
researchflow_synthesis_attempts_bucket{le="3"} 1
researchflow_synthesis_attempts_bucket{le="4"} 1
researchflow_synthesis_attempts_bucket{le="5"} 1
researchflow_synthesis_attempts_bucket{le="6"} 2
researchflow_synthesis_attempts_bucket{le="+Inf"} 2
researchflow_synthesis_attempts_sum 7
researchflow_synthesis_attempts_count 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "researchflow_synthesis_attempts"))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordCacheHit("search")
	collector.RecordCacheHit("search")
	collector.RecordCacheMiss("search")

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("search")))
}

func TestCollector_RecordDatabase(t *testing.T) {
	collector, _ := newTestCollector(t)

	collector.RecordDBQuery("postgres", "SELECT", 20*time.Millisecond)
	collector.RecordDBConnections("postgres", 10, 5)

	assert.Greater(t, testutil.CollectAndCount(collector.dbQueryDuration), 0)
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("postgres")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("postgres")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector, _ := newTestCollector(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordLLMRequest("generate-report", "gpt-4o", "success", 500*time.Millisecond, 100, 50, 0.01)
			collector.RecordBackendFetch("INTERNAL", 5, 100*time.Millisecond, nil)
			collector.RecordCacheHit("search")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("generate-report", "gpt-4o", "success")))
	assert.Equal(t, 50.0, testutil.ToFloat64(collector.backendFragmentsTotal.WithLabelValues("INTERNAL")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("search")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(200))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(404))
	assert.Equal(t, "5xx", statusCode(500))
	assert.Equal(t, "unknown", statusCode(100))
}
