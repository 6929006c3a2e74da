package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
)

// QueryFamily selects the phrasing of generated queries.
type QueryFamily string

const (
	// FamilyWeb phrases queries for a web search engine.
	FamilyWeb QueryFamily = "web"
	// FamilyRAG phrases queries for semantic retrieval; shared by the internal,
	// file and url backends.
	FamilyRAG QueryFamily = "rag"
)

// QueryContext is everything a query prompt is built from.
type QueryContext struct {
	Report  ReportContext
	Section *SectionInfo // nil or empty title: whole-report scope
	Family  QueryFamily
}

// QueryGenerator turns report context into search queries with one LLM call.
type QueryGenerator struct {
	llm    caller
	model  string
	logger *zap.Logger
}

// NewQueryGenerator creates a generator on the fast model.
func NewQueryGenerator(provider llm.Provider, cfg Config, logger *zap.Logger) *QueryGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	logger = logger.With(zap.String("component", "query_generator"))
	return &QueryGenerator{
		llm:    caller{provider: provider, timeout: cfg.LLMTimeout, logger: logger},
		model:  cfg.FastModel,
		logger: logger,
	}
}

type queriesReply struct {
	Queries []string `json:"queries"`
}

// Generate returns at most count queries. Any failure is a QUERY_GENERATION error.
func (g *QueryGenerator) Generate(ctx context.Context, qc QueryContext, count int) ([]string, error) {
	if count <= 0 {
		return []string{}, nil
	}

	name := "generate-queries"
	if qc.Section.hasContext() {
		name = "generate-section-queries"
	}

	var reply queriesReply
	err := g.llm.json(ctx, &llm.ChatRequest{
		Name:     name,
		Model:    g.model,
		Messages: llm.UserPrompt(queryPrompt(qc, count)),
	}, &reply)
	if err != nil {
		return nil, types.NewError(types.ErrQueryGeneration,
			fmt.Sprintf("generate %s queries", qc.Family)).WithCause(err)
	}

	queries := make([]string, 0, count)
	for _, q := range reply.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
		if len(queries) == count {
			break
		}
	}
	g.logger.Debug("queries generated",
		zap.String("family", string(qc.Family)),
		zap.Bool("section", qc.Section.hasContext()),
		zap.Strings("queries", queries))
	return queries, nil
}
