package research

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/rag"
	"github.com/BaSui01/researchflow/rag/loader"
	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dependencies are the collaborators of a Service. Provider and the
// fragment, report and message stores are required; a nil search client
// disables its backend.
type Dependencies struct {
	Provider llm.Provider
	Embedder rag.Embedder // required only when files are uploaded

	Web      WebSearcher
	Index    IndexSearcher
	Contents ContentsFetcher
	Cache    HitCache // caches web and internal fetches when set

	Fragments FragmentStore
	Reports   ReportStore
	Messages  MessageStore
	Tenants   TenantStore // nil: tenants are known by id only

	Loaders  *loader.LoaderRegistry
	Observer Observer
}

// Service runs the research flows end to end.
type Service struct {
	cfg Config
	llm caller

	queries      *QueryGenerator
	reranker     *Reranker
	orchestrator *Orchestrator
	synthesizer  *Synthesizer

	web      WebSearcher
	index    IndexSearcher
	contents ContentsFetcher
	cache    HitCache

	embedder rag.Embedder
	loaders  *loader.LoaderRegistry
	chunker  *rag.DocumentChunker

	fragments FragmentStore
	reports   ReportStore
	messages  MessageStore
	tenants   TenantStore

	observer Observer

	mu      sync.Mutex
	indexes map[string]*rag.LocalIndex // by identity; one instance per index file

	logger *zap.Logger
}

// NewService wires a Service.
func NewService(cfg Config, deps Dependencies, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var missing []string
	if deps.Provider == nil {
		missing = append(missing, "llm provider")
	}
	if deps.Fragments == nil {
		missing = append(missing, "fragment store")
	}
	if deps.Reports == nil {
		missing = append(missing, "report store")
	}
	if deps.Messages == nil {
		missing = append(missing, "message store")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("research service is missing: %s", strings.Join(missing, ", "))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Loaders == nil {
		deps.Loaders = loader.NewLoaderRegistry()
	}

	queries := NewQueryGenerator(deps.Provider, cfg, logger)
	reranker := NewReranker(deps.Provider, cfg, logger)
	return &Service{
		cfg:          cfg,
		llm:          caller{provider: deps.Provider, timeout: cfg.LLMTimeout, logger: logger.With(zap.String("component", "research_service"))},
		queries:      queries,
		reranker:     reranker,
		orchestrator: NewOrchestrator(queries, reranker, cfg, deps.Observer, logger),
		synthesizer:  NewSynthesizer(deps.Provider, deps.Reports, cfg, deps.Observer, logger),
		web:          deps.Web,
		index:        deps.Index,
		contents:     deps.Contents,
		cache:        deps.Cache,
		embedder:     deps.Embedder,
		loaders:      deps.Loaders,
		chunker:      rag.NewDocumentChunker(rag.DefaultChunkingConfig(), logger),
		fragments:    deps.Fragments,
		reports:      deps.Reports,
		messages:     deps.Messages,
		tenants:      deps.Tenants,
		observer:     deps.Observer,
		indexes:      make(map[string]*rag.LocalIndex),
		logger:       logger.With(zap.String("component", "research_service")),
	}, nil
}

// ReportInput is what a caller supplies to start a report.
type ReportInput struct {
	TenantID              string `json:"tenant_id"`
	Objective             string `json:"report_objective"`
	TargetAudience        string `json:"report_target_audience"`
	AdditionalInformation string `json:"report_additional_information"`
}

// Validate rejects inputs the pipeline cannot research.
func (in ReportInput) Validate() error {
	if strings.TrimSpace(in.Objective) == "" {
		return types.NewValidationError("report objective is required")
	}
	return nil
}

func (in ReportInput) newReport() *types.Report {
	return types.NewReport(in.TenantID, in.Objective, in.TargetAudience, in.AdditionalInformation)
}

// =============================================================================
// Tenants and reports
// =============================================================================

func (s *Service) tenant(ctx context.Context, id string) (types.Tenant, error) {
	if s.tenants == nil || id == "" {
		return types.Tenant{ID: id}, nil
	}
	t, err := s.tenants.FindByID(ctx, id)
	if err != nil {
		return types.Tenant{}, fmt.Errorf("load tenant %s: %w", id, err)
	}
	return *t, nil
}

// loadReport returns the report with the context its prompts need.
func (s *Service) loadReport(ctx context.Context, reportID string) (*types.Report, types.Tenant, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, types.Tenant{}, fmt.Errorf("load report %s: %w", reportID, err)
	}
	tenant, err := s.tenant(ctx, report.TenantID)
	if err != nil {
		return nil, types.Tenant{}, err
	}
	return report, tenant, nil
}

// withScope tags ctx with the ids every stage logs.
func withScope(ctx context.Context, report *types.Report) context.Context {
	ctx = types.WithReportID(ctx, report.ID)
	if report.TenantID != "" {
		ctx = types.WithTenantID(ctx, report.TenantID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ctx = types.WithTraceID(ctx, sc.TraceID().String())
	}
	return ctx
}

func (s *Service) createReport(ctx context.Context, in ReportInput) (*types.Report, types.Tenant, error) {
	if err := in.Validate(); err != nil {
		return nil, types.Tenant{}, err
	}
	tenant, err := s.tenant(ctx, in.TenantID)
	if err != nil {
		return nil, types.Tenant{}, err
	}
	report := in.newReport()
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, types.Tenant{}, fmt.Errorf("create report: %w", err)
	}
	return report, tenant, nil
}

// =============================================================================
// Local indexes
// =============================================================================

// localIndex returns the shared index for identity, opening it on first use.
func (s *Service) localIndex(identity string) (*rag.LocalIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[identity]; ok {
		return idx, nil
	}
	if s.embedder == nil {
		return nil, types.NewValidationError("file search needs an embedding provider")
	}
	idx, err := rag.OpenLocalIndex(s.cfg.IndexRoot, identity, s.embedder, s.logger)
	if err != nil {
		return nil, err
	}
	s.indexes[identity] = idx
	return idx, nil
}

// existingIndex returns the index for identity when it holds documents.
func (s *Service) existingIndex(identity string) *rag.LocalIndex {
	if s.embedder == nil {
		return nil
	}
	idx, err := s.localIndex(identity)
	if err != nil {
		s.logger.Warn("open local index failed", zap.String("index", identity), zap.Error(err))
		return nil
	}
	if idx.Count() == 0 {
		return nil
	}
	return idx
}

// embedUploads chunks every upload and adds the chunks to the index with a
// single save. It returns the number of chunks added.
func (s *Service) embedUploads(ctx context.Context, identity string, uploads []loader.Upload) (*rag.LocalIndex, int, error) {
	idx, err := s.localIndex(identity)
	if err != nil {
		return nil, 0, err
	}
	var docs []rag.Document
	for _, u := range uploads {
		loaded, err := s.loaders.LoadUpload(ctx, u)
		if err != nil {
			return nil, 0, fmt.Errorf("load %s: %w", u.Name, err)
		}
		docs = append(docs, s.chunker.SplitDocuments(loaded)...)
	}
	if len(docs) == 0 {
		return idx, 0, nil
	}
	if err := idx.AddDocuments(ctx, docs, true); err != nil {
		return nil, 0, fmt.Errorf("embed uploads into %s: %w", identity, err)
	}
	s.logger.Info("uploads embedded",
		zap.String("index", identity),
		zap.Int("files", len(uploads)),
		zap.Int("chunks", len(docs)))
	return idx, len(docs), nil
}

// =============================================================================
// Backend plans
// =============================================================================

// planInput says which backends a gather may use.
type planInput struct {
	tenant     types.Tenant
	ragQueries []string // nil when RAG query generation failed
	ragErr     error
	files      DocumentSearcher
	urls       []string
}

// plans builds the backend plans in priority order: internal, web, then file
// when files were uploaded and url when URLs were found. Backends sharing the
// RAG queries are reported as failed when those could not be generated.
func (s *Service) plans(in planInput) ([]BackendPlan, []BackendFailure) {
	var plans []BackendPlan
	var failures []BackendFailure

	shared := func(b Backend) {
		if in.ragErr != nil {
			failures = append(failures, BackendFailure{Type: b.Type(), Stage: StageQueryGeneration, Err: in.ragErr})
			return
		}
		plans = append(plans, BackendPlan{Backend: b, Queries: in.ragQueries, Family: FamilyRAG})
	}

	if s.index != nil {
		shared(s.cached(NewInternalBackend(s.index, in.tenant), in.tenant.SearchService+"/"+in.tenant.SearchIndex))
	}
	if s.web != nil {
		plans = append(plans, BackendPlan{Backend: s.cached(NewWebBackend(s.web), ""), Family: FamilyWeb})
	}
	if in.files != nil {
		shared(NewFileBackend(in.files))
	}
	if len(in.urls) > 0 && s.contents != nil {
		shared(NewURLBackend(s.contents, in.urls))
	}
	return plans, failures
}

func (s *Service) cached(b Backend, scope string) Backend {
	if s.cache == nil {
		return b
	}
	return NewCachedBackend(b, s.cache, scope, s.observer, s.logger)
}

// backendFor builds the single backend RunCustomQuery uses for t.
func (s *Service) backendFor(t types.FragmentType, report *types.Report, tenant types.Tenant) (Backend, error) {
	switch t {
	case types.FragmentInternal:
		if s.index != nil {
			return s.cached(NewInternalBackend(s.index, tenant), tenant.SearchService+"/"+tenant.SearchIndex), nil
		}
	case types.FragmentWeb:
		if s.web != nil {
			return s.cached(NewWebBackend(s.web), ""), nil
		}
	case types.FragmentFile:
		if idx := s.existingIndex(rag.ReportIndexPath(report.ID)); idx != nil {
			return NewFileBackend(idx), nil
		}
		return nil, types.NewValidationError(fmt.Sprintf("report %s has no uploaded files", report.ID))
	case types.FragmentURL:
		urls := ExtractURLs(report.AdditionalInformation)
		if len(urls) == 0 {
			return nil, types.NewValidationError(fmt.Sprintf("report %s has no urls in its additional information", report.ID))
		}
		if s.contents != nil {
			return NewURLBackend(s.contents, urls), nil
		}
	}
	return nil, types.NewValidationError(fmt.Sprintf("%s search is not configured", t))
}

// persist stamps fragments with the report id and stores them.
func (s *Service) persist(ctx context.Context, reportID string, fs []types.Fragment) error {
	if len(fs) == 0 {
		return nil
	}
	for i := range fs {
		fs[i].ReportID = reportID
	}
	if err := s.fragments.AddAll(ctx, fs); err != nil {
		return fmt.Errorf("persist %d fragments of report %s: %w", len(fs), reportID, err)
	}
	return nil
}
