package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/rag"
	"github.com/BaSui01/researchflow/rag/loader"
	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Outline
// =============================================================================

type outlineReply struct {
	Outlines []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"outlines"`
}

// GenerateTemplate proposes an outline of research sections for the input.
// sectionCount 0 means Config.SectionCount.
func (s *Service) GenerateTemplate(ctx context.Context, in ReportInput, sectionCount int) ([]types.Section, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if sectionCount <= 0 {
		sectionCount = s.cfg.SectionCount
	}
	tenant, err := s.tenant(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	return s.outline(ctx, NewReportContext(tenant, in.newReport()), sectionCount)
}

func (s *Service) outline(ctx context.Context, rc ReportContext, sectionCount int) ([]types.Section, error) {
	var reply outlineReply
	err := s.llm.json(ctx, &llm.ChatRequest{
		Name:     "generate-template",
		Model:    s.cfg.FastModel,
		Messages: llm.UserPrompt(templatePrompt(rc, sectionCount)),
	}, &reply)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "generate outline").WithCause(err)
	}

	sections := make([]types.Section, 0, len(reply.Outlines))
	for _, o := range reply.Outlines {
		title := strings.TrimSpace(o.Title)
		if title == "" {
			continue
		}
		sections = append(sections, types.Section{Title: title, Description: strings.TrimSpace(o.Description), Research: true})
	}
	if len(sections) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "generate-template returned no sections")
	}
	return sections, nil
}

// =============================================================================
// Sections
// =============================================================================

// SectionDraft is one written section with the fragments it was written from.
type SectionDraft struct {
	Section   types.Section    `json:"section"`
	Fragments []types.Fragment `json:"fragments"`
	Failures  []BackendFailure `json:"failures,omitempty"`

	// Gathered holds every fragment the section's backends returned; Fragments
	// is its TopTotal best.
	Gathered []types.Fragment `json:"-"`
}

// GenerateSectionFragments gathers evidence scoped to one section: section
// queries for every backend, section-aware rerank, then the TopTotal best
// fragments across backends.
func (s *Service) GenerateSectionFragments(ctx context.Context, report *types.Report, section types.Section) ([]types.Fragment, []BackendFailure, error) {
	tenant, err := s.tenant(ctx, report.TenantID)
	if err != nil {
		return nil, nil, err
	}
	fragments, _, failures := s.sectionFragments(withScope(ctx, report), report, tenant, section)
	return fragments, failures, nil
}

// sectionFragments returns the TopTotal best fragments and everything gathered.
func (s *Service) sectionFragments(ctx context.Context, report *types.Report, tenant types.Tenant, section types.Section) (best, all []types.Fragment, failures []BackendFailure) {
	info := &SectionInfo{Title: section.Title, Description: section.Description}
	rc := NewReportContext(tenant, report)

	in := planInput{tenant: tenant, urls: ExtractURLs(report.AdditionalInformation)}
	if idx := s.existingIndex(rag.ReportIndexPath(report.ID)); idx != nil {
		in.files = idx
	}
	if s.needsRAGQueries(in) {
		in.ragQueries, in.ragErr = s.queries.Generate(ctx, QueryContext{Report: rc, Section: info, Family: FamilyRAG}, s.cfg.NumberOfQueries)
	}

	plans, failures := s.plans(in)
	gathered := s.orchestrator.Gather(ctx, GatherRequest{Report: rc, Section: info, Plans: plans})
	failures = append(failures, gathered.Failures...)

	all = gathered.All()
	for i := range all {
		all[i].ReportID = report.ID
	}
	return topByRelevance(all, s.cfg.TopTotal), all, failures
}

// GenerateSection gathers evidence for a research section and writes it.
// Sections without research come back with empty content.
func (s *Service) GenerateSection(ctx context.Context, report *types.Report, section types.Section) (*SectionDraft, error) {
	tenant, err := s.tenant(ctx, report.TenantID)
	if err != nil {
		return nil, err
	}
	return s.section(withScope(ctx, report), report, tenant, section)
}

func (s *Service) section(ctx context.Context, report *types.Report, tenant types.Tenant, section types.Section) (*SectionDraft, error) {
	draft := &SectionDraft{Section: section}
	if !section.Research {
		draft.Section.Content = ""
		return draft, nil
	}

	ctx, span := tracer.Start(ctx, "research.section",
		trace.WithAttributes(attribute.String("research.section", section.Title)))
	defer span.End()

	fragments, gathered, failures := s.sectionFragments(ctx, report, tenant, section)
	draft.Fragments = fragments
	draft.Gathered = gathered
	draft.Failures = failures

	info := &SectionInfo{Title: section.Title, Description: section.Description}
	var reply contentReply
	err := s.llm.json(ctx, &llm.ChatRequest{
		Name:        "generate-section-content",
		Model:       s.cfg.FastModel,
		Messages:    llm.UserPrompt(sectionPrompt(NewReportContext(tenant, report), info, promptItems(fragments))),
		Temperature: llm.Temperature(0),
	}, &reply)
	if err != nil {
		span.RecordError(err)
		return nil, types.NewError(types.ErrUpstreamError, fmt.Sprintf("write section %q", section.Title)).WithCause(err)
	}
	if reply.Content == nil || strings.TrimSpace(*reply.Content) == "" {
		return nil, types.NewError(types.ErrMalformedSynthesisOutput, fmt.Sprintf("section %q reply has no content", section.Title))
	}
	// Markers stay in place; the reviewer and the final extraction need them.
	draft.Section.Content = *reply.Content
	return draft, nil
}

// =============================================================================
// Sectioned report
// =============================================================================

// ReportV2Request writes a report section by section. Without an outline one
// is generated and framed by an introduction and a conclusion.
type ReportV2Request struct {
	ReportInput
	Outline      []types.Section `json:"outline,omitempty"`
	SectionCount int             `json:"section_count,omitempty"`
	Files        []loader.Upload `json:"-"`
}

// SectionFailure names a section that could not be written.
type SectionFailure struct {
	Title string `json:"title"`
	Err   error  `json:"-"`
}

// ReportV2Result is the reviewed report with its per-section drafts.
type ReportV2Result struct {
	Report   *types.Report    `json:"report"`
	Sections []types.Section  `json:"sections"`
	Failed   []SectionFailure `json:"failed,omitempty"`
}

type reviewReply struct {
	Content string `json:"content"`
}

// GenerateReportV2 creates a report, writes its research sections in
// parallel, has the reviewer merge them and stores the result. A section that
// fails is left empty and listed in Failed; the others are unaffected.
func (s *Service) GenerateReportV2(ctx context.Context, req ReportV2Request) (*ReportV2Result, error) {
	report, tenant, err := s.createReport(ctx, req.ReportInput)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "research.report_v2",
		trace.WithAttributes(attribute.String("research.report_id", report.ID)))
	defer span.End()
	ctx = withScope(ctx, report)

	rc := NewReportContext(tenant, report)
	outline := append([]types.Section(nil), req.Outline...)
	generated := len(outline) == 0
	if generated {
		count := req.SectionCount
		if count <= 0 {
			count = s.cfg.SectionCount
		}
		if outline, err = s.outline(ctx, rc, count); err != nil {
			return nil, err
		}
	}

	if len(req.Files) > 0 {
		if _, _, err := s.embedUploads(ctx, rag.ReportIndexPath(report.ID), req.Files); err != nil {
			return nil, err
		}
	}

	drafts := make([]*SectionDraft, len(outline))
	errs := make([]error, len(outline))
	var g errgroup.Group
	for i, section := range outline {
		g.Go(func() error {
			drafts[i], errs[i] = s.section(ctx, report, tenant, section)
			return nil
		})
	}
	_ = g.Wait()

	result := &ReportV2Result{Report: report}
	sections := make([]types.Section, 0, len(outline)+2)
	var fragments, gathered []types.Fragment
	for i, section := range outline {
		if errs[i] != nil {
			s.logger.Warn("section failed",
				zap.String("report_id", report.ID),
				zap.String("section", section.Title),
				zap.Error(errs[i]))
			result.Failed = append(result.Failed, SectionFailure{Title: section.Title, Err: errs[i]})
			section.Content = ""
			sections = append(sections, section)
			continue
		}
		sections = append(sections, drafts[i].Section)
		fragments = append(fragments, drafts[i].Fragments...)
		gathered = append(gathered, drafts[i].Gathered...)
	}
	if err := s.persist(ctx, report.ID, gathered); err != nil {
		return nil, err
	}

	if generated {
		sections = append([]types.Section{introductionSection()}, sections...)
		sections = append(sections, conclusionSection())
	}
	result.Sections = sections

	reviewed, err := s.review(ctx, rc, sections)
	if err != nil {
		return nil, err
	}
	ext := ExtractCitations(reviewed)
	report.ApplySynthesis(fragments, ext.Content, ext.Citations)
	if err := s.reports.Update(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report %s: %w", report.ID, err)
	}

	s.logger.Info("sectioned report written",
		zap.String("report_id", report.ID),
		zap.Int("sections", len(sections)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("fragments", len(fragments)),
		zap.Int("citations", len(report.Citations)))
	return result, nil
}

// review merges the drafts. A reply that is not the expected JSON object is
// taken as the report text itself.
func (s *Service) review(ctx context.Context, rc ReportContext, sections []types.Section) (string, error) {
	req := &llm.ChatRequest{
		Name:           "review-sections",
		Model:          s.cfg.FastModel,
		Messages:       llm.UserPrompt(reviewPrompt(rc, sections)),
		Temperature:    llm.Temperature(0),
		ResponseFormat: llm.JSONObject,
	}
	raw, err := s.llm.text(ctx, req)
	if err != nil {
		return "", types.NewError(types.ErrUpstreamError, "review sections").WithCause(err)
	}
	var reply reviewReply
	if err := decodeJSON(raw, &reply); err == nil && strings.TrimSpace(reply.Content) != "" {
		return reply.Content, nil
	}
	if strings.TrimSpace(raw) == "" {
		return "", types.NewError(types.ErrMalformedSynthesisOutput, "review-sections returned nothing")
	}
	return raw, nil
}
