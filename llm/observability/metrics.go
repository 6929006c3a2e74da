package observability

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/researchflow/llm"

// Metrics LLM 调用的 OTel 指标与追踪
type Metrics struct {
	tracer trace.Tracer
	meter  metric.Meter

	requestTotal    metric.Int64Counter
	errorTotal      metric.Int64Counter
	tokenTotal      metric.Int64Counter
	requestDuration metric.Float64Histogram
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics 使用全局 TracerProvider / MeterProvider 创建指标
func NewMetrics() (*Metrics, error) {
	return NewMetricsWith(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// NewMetricsWith 使用指定的 Provider 创建指标（测试中注入 SDK reader）
func NewMetricsWith(tp trace.TracerProvider, mp metric.MeterProvider) (*Metrics, error) {
	m := &Metrics{
		tracer: tp.Tracer(instrumentationName),
		meter:  mp.Meter(instrumentationName),
	}

	var err error
	if m.requestTotal, err = m.meter.Int64Counter("llm.request.total",
		metric.WithDescription("Total number of LLM requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if m.errorTotal, err = m.meter.Int64Counter("llm.error.total",
		metric.WithDescription("Total number of failed LLM requests"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if m.tokenTotal, err = m.meter.Int64Counter("llm.token.total",
		metric.WithDescription("Total tokens consumed"),
		metric.WithUnit("{token}")); err != nil {
		return nil, err
	}
	if m.requestDuration, err = m.meter.Float64Histogram("llm.request.duration",
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 45)); err != nil {
		return nil, err
	}
	if m.activeRequests, err = m.meter.Int64UpDownCounter("llm.request.active",
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return m, nil
}

// Tracer 获取 Tracer
func (m *Metrics) Tracer() trace.Tracer { return m.tracer }

// =============================================================================
// InstrumentedProvider
// =============================================================================

// Recorder 接收每次调用的汇总（Prometheus 收集器实现该接口）
type Recorder interface {
	RecordLLMRequest(call, model, status string, duration time.Duration, promptTokens, completionTokens int, cost float64)
}

// Option 配置 InstrumentedProvider
type Option func(*InstrumentedProvider)

// WithRecorder 同时把调用汇总写入 r
func WithRecorder(r Recorder) Option {
	return func(p *InstrumentedProvider) { p.recorder = r }
}

// WithCostTracker 使用指定的成本追踪器
func WithCostTracker(t *CostTracker) Option {
	return func(p *InstrumentedProvider) { p.costs = t }
}

// InstrumentedProvider 为每次 Completion 打 span、记指标并累计成本。
type InstrumentedProvider struct {
	inner    llm.Provider
	metrics  *Metrics
	recorder Recorder
	costs    *CostTracker
	logger   *zap.Logger
}

// Instrument 包装 p；metrics 为 nil 时只记录成本与 Recorder
func Instrument(p llm.Provider, metrics *Metrics, logger *zap.Logger, opts ...Option) *InstrumentedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	ip := &InstrumentedProvider{
		inner:   p,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "llm_observability")),
	}
	for _, opt := range opts {
		opt(ip)
	}
	if ip.costs == nil {
		ip.costs = NewCostTracker(nil)
	}
	return ip
}

// Name 返回被包装 Provider 的名称
func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

// HealthCheck 透传
func (p *InstrumentedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

// Costs 返回累计成本
func (p *InstrumentedProvider) Costs() CostSummary { return p.costs.Summary() }

// Completion 调用被包装 Provider 并记录观测数据
func (p *InstrumentedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	attrs := []attribute.KeyValue{
		attribute.String("llm.call", req.Name),
		attribute.String("llm.provider", p.inner.Name()),
		attribute.String("llm.model", req.Model),
	}

	var span trace.Span
	if p.metrics != nil {
		ctx, span = p.metrics.tracer.Start(ctx, "llm.completion",
			trace.WithAttributes(append(attrs, attribute.String("tenant.id", req.TenantID))...))
		defer span.End()
		p.metrics.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
		defer p.metrics.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
	}

	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)
	elapsed := time.Since(start)

	status := "success"
	model := req.Model
	var promptTokens, completionTokens int
	if err != nil {
		status = "error"
	} else if resp != nil {
		if resp.Model != "" {
			model = resp.Model
		}
		promptTokens, completionTokens = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	cost := p.costs.Track(model, promptTokens, completionTokens)

	if p.metrics != nil {
		p.record(ctx, span, attrs, status, err, elapsed, promptTokens, completionTokens, cost)
	}
	if p.recorder != nil {
		p.recorder.RecordLLMRequest(req.Name, model, status, elapsed, promptTokens, completionTokens, cost)
	}

	p.logger.Debug("llm call finished",
		zap.String("call", req.Name),
		zap.String("model", model),
		zap.String("status", status),
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("completion_tokens", completionTokens),
		zap.Duration("elapsed", elapsed))
	return resp, err
}

func (p *InstrumentedProvider) record(ctx context.Context, span trace.Span, attrs []attribute.KeyValue,
	status string, err error, elapsed time.Duration, promptTokens, completionTokens int, cost float64) {
	m := p.metrics
	withStatus := metric.WithAttributes(append(attrs, attribute.String("status", status))...)
	m.requestTotal.Add(ctx, 1, withStatus)
	m.requestDuration.Record(ctx, elapsed.Seconds(), withStatus)

	if err != nil {
		code := "unknown"
		var llmErr *llm.Error
		if errors.As(err, &llmErr) {
			code = string(llmErr.Code)
		}
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error_code", code))...))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.code", code))
		return
	}

	if promptTokens+completionTokens > 0 {
		m.tokenTotal.Add(ctx, int64(promptTokens), metric.WithAttributes(append(attrs, attribute.String("type", "prompt"))...))
		m.tokenTotal.Add(ctx, int64(completionTokens), metric.WithAttributes(append(attrs, attribute.String("type", "completion"))...))
	}
	span.SetAttributes(
		attribute.Int("llm.tokens.prompt", promptTokens),
		attribute.Int("llm.tokens.completion", completionTokens),
		attribute.Float64("llm.cost", cost),
		attribute.Float64("llm.duration_ms", float64(elapsed.Milliseconds())))
}

var _ llm.Provider = (*InstrumentedProvider)(nil)
