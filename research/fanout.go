package research

import (
	"context"
	"time"

	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func backendAttr(t types.FragmentType) attribute.KeyValue {
	return attribute.String("research.backend", string(t))
}

// FanOut runs one SafeFetch per query concurrently and concatenates the results
// in query order once every fetch has settled. The result holds at most
// len(queries)*top fragments and is not deduplicated.
func FanOut(ctx context.Context, b Backend, queries []string, top int, logger *zap.Logger) []types.Fragment {
	ctx, span := tracer.Start(ctx, "research.fanout", trace.WithAttributes(
		backendAttr(b.Type()),
		attribute.Int("research.queries", len(queries))))
	defer span.End()

	slots := make([][]types.Fragment, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			slots[i] = truncate(SafeFetch(ctx, b, q, top, logger), top)
			return nil
		})
	}
	_ = g.Wait() // SafeFetch never fails

	out := make([]types.Fragment, 0, len(queries)*max(top, 0))
	for _, s := range slots {
		out = append(out, s...)
	}
	span.SetAttributes(attribute.Int("research.fragments", len(out)))
	return out
}

// =============================================================================
// Orchestrator
// =============================================================================

// BackendPlan says how one backend takes part in a gather.
type BackendPlan struct {
	Backend Backend
	// Queries are used as-is when non-nil; otherwise Family queries are generated.
	Queries []string
	Family  QueryFamily
	// Top is the per-query hit count; 0 means Config.TopEachQuery.
	Top int
}

// GatherRequest is one multi-backend retrieval.
type GatherRequest struct {
	Report  ReportContext
	Section *SectionInfo
	Plans   []BackendPlan
	// TopTotal is how many reranked fragments each backend keeps; 0 means Config.TopTotal.
	TopTotal int
}

// Gather stages that can fail a backend's contribution.
const (
	StageQueryGeneration = "query_generation"
	StageRerank          = "rerank"
)

// BackendFailure records a backend dropped from a gather.
type BackendFailure struct {
	Type  types.FragmentType `json:"type"`
	Stage string             `json:"stage"`
	Err   error              `json:"-"`
}

// GatherResult holds reranked fragments per backend.
type GatherResult struct {
	ByType   map[types.FragmentType][]types.Fragment
	Failures []BackendFailure
}

// All returns every fragment in backend priority order.
func (r *GatherResult) All() []types.Fragment {
	var out []types.Fragment
	for _, t := range types.FragmentTypes {
		out = append(out, r.ByType[t]...)
	}
	return out
}

// Orchestrator runs query generation, fan-out, dedup and rerank per backend.
type Orchestrator struct {
	queries  *QueryGenerator
	reranker *Reranker
	cfg      Config
	observer Observer
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator. observer may be nil.
func NewOrchestrator(queries *QueryGenerator, reranker *Reranker, cfg Config, observer Observer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		queries:  queries,
		reranker: reranker,
		cfg:      cfg.withDefaults(),
		observer: observer,
		logger:   logger.With(zap.String("component", "orchestrator")),
	}
}

type planResult struct {
	fragments []types.Fragment
	failure   *BackendFailure
}

// Gather runs every plan concurrently. Failures are isolated per backend: a
// query generation or rerank error drops that backend's contribution and is
// reported in Failures, and the other backends are unaffected.
func (o *Orchestrator) Gather(ctx context.Context, req GatherRequest) *GatherResult {
	ctx, span := tracer.Start(ctx, "research.gather",
		trace.WithAttributes(attribute.Int("research.backends", len(req.Plans))))
	defer span.End()

	topTotal := req.TopTotal
	if topTotal <= 0 {
		topTotal = o.cfg.TopTotal
	}

	results := make([]planResult, len(req.Plans))
	var g errgroup.Group
	for i, plan := range req.Plans {
		g.Go(func() error {
			results[i] = o.runPlan(ctx, req, plan, topTotal)
			return nil
		})
	}
	_ = g.Wait()

	out := &GatherResult{ByType: make(map[types.FragmentType][]types.Fragment)}
	for _, t := range types.FragmentTypes {
		for i, plan := range req.Plans {
			if plan.Backend.Type() != t {
				continue
			}
			if f := results[i].failure; f != nil {
				out.Failures = append(out.Failures, *f)
				continue
			}
			out.ByType[t] = append(out.ByType[t], results[i].fragments...)
		}
	}
	span.SetAttributes(attribute.Int("research.failures", len(out.Failures)))
	return out
}

func (o *Orchestrator) runPlan(ctx context.Context, req GatherRequest, plan BackendPlan, topTotal int) planResult {
	start := time.Now()
	typ := plan.Backend.Type()
	logger := o.logger.With(zap.String("backend", string(typ)))

	queries := plan.Queries
	if queries == nil {
		var err error
		queries, err = o.queries.Generate(ctx, QueryContext{Report: req.Report, Section: req.Section, Family: plan.Family}, o.cfg.NumberOfQueries)
		if err != nil {
			logger.Warn("query generation failed, dropping backend", zap.Error(err))
			return planResult{failure: &BackendFailure{Type: typ, Stage: StageQueryGeneration, Err: err}}
		}
	}

	top := plan.Top
	if top <= 0 {
		top = o.cfg.TopEachQuery
	}

	raw := FanOut(ctx, Observe(plan.Backend, o.observer), queries, top, logger)
	candidates := Dedup(raw)
	ranked, err := o.reranker.Rerank(ctx, candidates, topTotal, req.Section, req.Report)
	if err != nil {
		logger.Warn("rerank failed, dropping backend", zap.Error(err))
		return planResult{failure: &BackendFailure{Type: typ, Stage: StageRerank, Err: err}}
	}

	logger.Info("backend gathered",
		zap.Int("queries", len(queries)),
		zap.Int("raw", len(raw)),
		zap.Int("deduplicated", len(candidates)),
		zap.Int("kept", len(ranked)),
		zap.Duration("elapsed", time.Since(start)))
	return planResult{fragments: ranked}
}
