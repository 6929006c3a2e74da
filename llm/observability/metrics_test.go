package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordedCall struct {
	call, model, status string
	prompt, completion  int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordLLMRequest(call, model, status string, _ time.Duration, prompt, completion int, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{call, model, status, prompt, completion})
}

func newTestMetrics(t *testing.T) (*Metrics, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	m, err := NewMetricsWith(tp, mp)
	require.NoError(t, err)
	return m, spans, reader
}

func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestInstrumentedProvider_Success(t *testing.T) {
	m, spans, reader := newTestMetrics(t)
	rec := &fakeRecorder{}
	inner := mocks.NewMockProvider().WithResponse("ok").WithTokenUsage(1000, 500)

	p := Instrument(inner, m, nil, WithRecorder(rec))
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{Name: "generate-report", Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Message.Content)

	assert.Equal(t, int64(1), sumOf(t, reader, "llm.request.total"))
	assert.Equal(t, int64(1500), sumOf(t, reader, "llm.token.total"))
	assert.Equal(t, int64(0), sumOf(t, reader, "llm.error.total"))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "llm.completion", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, recordedCall{"generate-report", "gpt-4o", "success", 1000, 500}, rec.calls[0])

	summary := p.Costs()
	assert.Equal(t, 1, summary.RequestCount)
	assert.Greater(t, summary.TotalCost, 0.0)
}

func TestInstrumentedProvider_Error(t *testing.T) {
	m, spans, reader := newTestMetrics(t)
	rec := &fakeRecorder{}
	inner := mocks.NewMockProvider().WithError(&llm.Error{Code: llm.ErrRateLimited, Message: "slow"})

	p := Instrument(inner, m, nil, WithRecorder(rec))
	_, err := p.Completion(context.Background(), &llm.ChatRequest{Name: "score-chunks", Model: "gpt-4o-mini"})
	require.Error(t, err)

	assert.Equal(t, int64(1), sumOf(t, reader, "llm.error.total"))
	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "error", rec.calls[0].status)
}

func TestInstrumentedProvider_WithoutMetrics(t *testing.T) {
	inner := mocks.NewMockProvider().WithError(errors.New("down"))
	p := Instrument(inner, nil, nil)

	_, err := p.Completion(context.Background(), &llm.ChatRequest{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, "mock", p.Name())
	assert.Equal(t, 1, p.Costs().RequestCount)
}
