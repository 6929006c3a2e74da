package research

import (
	"context"
	"fmt"
	"sort"

	"github.com/BaSui01/researchflow/rag"
	"github.com/BaSui01/researchflow/rag/loader"
	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ResearchRequest starts a report and gathers its evidence.
type ResearchRequest struct {
	ReportInput
	Files []loader.Upload `json:"-"`
}

// ResearchResult is the created report with the fragments gathered for it.
type ResearchResult struct {
	Report    *types.Report                           `json:"report"`
	Fragments map[types.FragmentType][]types.Fragment `json:"fragments"`
	Failures  []BackendFailure                        `json:"failures,omitempty"`
}

// All returns the gathered fragments in backend priority order.
func (r *ResearchResult) All() []types.Fragment {
	return (&GatherResult{ByType: r.Fragments}).All()
}

// InitiateResearch creates a report, embeds any uploaded files, gathers
// reranked fragments from every available backend and persists them under the
// report. The report content is left empty for GenerateReport.
func (s *Service) InitiateResearch(ctx context.Context, req ResearchRequest) (*ResearchResult, error) {
	report, tenant, err := s.createReport(ctx, req.ReportInput)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "research.initiate", trace.WithAttributes(
		attribute.String("research.report_id", report.ID),
		attribute.Int("research.files", len(req.Files))))
	defer span.End()
	ctx = withScope(ctx, report)

	in := planInput{tenant: tenant, urls: ExtractURLs(report.AdditionalInformation)}
	if len(req.Files) > 0 {
		idx, n, err := s.embedUploads(ctx, rag.ReportIndexPath(report.ID), req.Files)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			in.files = idx
		}
	}

	rc := NewReportContext(tenant, report)
	if s.needsRAGQueries(in) {
		in.ragQueries, in.ragErr = s.queries.Generate(ctx, QueryContext{Report: rc, Family: FamilyRAG}, s.cfg.NumberOfQueries)
		if in.ragErr != nil {
			s.logger.Warn("rag query generation failed", zap.String("report_id", report.ID), zap.Error(in.ragErr))
		}
	}

	plans, failures := s.plans(in)
	gathered := s.orchestrator.Gather(ctx, GatherRequest{Report: rc, Plans: plans})
	gathered.Failures = append(failures, gathered.Failures...)

	for _, fs := range gathered.ByType {
		for i := range fs {
			fs[i].ReportID = report.ID
		}
	}
	all := gathered.All()
	if err := s.persist(ctx, report.ID, all); err != nil {
		return nil, err
	}

	s.logger.Info("research initiated",
		zap.String("report_id", report.ID),
		zap.Int("fragments", len(all)),
		zap.Int("failed_backends", len(gathered.Failures)))
	return &ResearchResult{Report: report, Fragments: gathered.ByType, Failures: gathered.Failures}, nil
}

func (s *Service) needsRAGQueries(in planInput) bool {
	return s.index != nil || in.files != nil || (len(in.urls) > 0 && s.contents != nil)
}

// GenerateReport synthesizes the report content. When fragments is empty the
// report's stored fragments are used: up to TopTotal per type, best first.
func (s *Service) GenerateReport(ctx context.Context, reportID string, fragments []types.Fragment) (*SynthesisOutcome, error) {
	report, tenant, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	ctx = withScope(ctx, report)
	if len(fragments) == 0 {
		for _, t := range types.FragmentTypes {
			fs, err := s.fragments.FindByParentAndType(ctx, reportID, t, 0, s.cfg.TopTotal)
			if err != nil {
				return nil, fmt.Errorf("load %s fragments of report %s: %w", t, reportID, err)
			}
			fragments = append(fragments, fs...)
		}
	}
	if len(fragments) == 0 {
		return nil, types.NewValidationError(fmt.Sprintf("report %s has no fragments to synthesize from", reportID))
	}
	return s.synthesizer.Synthesize(ctx, report, NewReportContext(tenant, report), fragments)
}

// RunCustomQuery runs one caller-written query against one backend, reranks
// the hits for the report and stores them. top 0 means CustomQueryTop.
func (s *Service) RunCustomQuery(ctx context.Context, reportID, query string, t types.FragmentType, top int) ([]types.Fragment, error) {
	if query == "" {
		return nil, types.NewValidationError("query is required")
	}
	if top <= 0 {
		top = s.cfg.CustomQueryTop
	}
	report, tenant, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	ctx = withScope(ctx, report)
	backend, err := s.backendFor(t, report, tenant)
	if err != nil {
		return nil, err
	}

	hits := Dedup(SafeFetch(ctx, Observe(backend, s.observer), query, top, s.logger))
	ranked, err := s.reranker.Rerank(ctx, hits, top, nil, NewReportContext(tenant, report))
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, reportID, ranked); err != nil {
		return nil, err
	}
	s.logger.Info("custom query ran",
		zap.String("report_id", reportID),
		zap.String("backend", string(t)),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(ranked)))
	return ranked, nil
}

// topByRelevance merges fragments by llm score, best first, keeping at most n.
func topByRelevance(fs []types.Fragment, n int) []types.Fragment {
	out := append([]types.Fragment(nil), fs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LLMRelevance() > out[j].LLMRelevance() })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
