package research

import (
	"context"
	"fmt"
	"sort"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reranker scores fragments with the LLM in batches and keeps the best.
type Reranker struct {
	llm       caller
	model     string
	batchSize int
	waveSize  int
	logger    *zap.Logger
}

// NewReranker creates a reranker on the fast model.
func NewReranker(provider llm.Provider, cfg Config, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	logger = logger.With(zap.String("component", "reranker"))
	return &Reranker{
		llm:       caller{provider: provider, timeout: cfg.LLMTimeout, logger: logger},
		model:     cfg.FastModel,
		batchSize: cfg.BatchSize,
		waveSize:  cfg.WaveSize,
		logger:    logger,
	}
}

// scored is one (1-based global id, score) pair returned by a batch.
type scored struct {
	id    int
	score float64
}

type chunkScore struct {
	ID                   int      `json:"id"`
	Score                *float64 `json:"score"`
	ReportRelevanceScore *float64 `json:"report_relevance_score"`
	SectionRelevance     *float64 `json:"section_relevance_score"`
}

type scoreReply struct {
	Chunks []chunkScore `json:"chunks"`
}

// Rerank dedups fragments, scores them in batches of BatchSize with at most
// WaveSize concurrent calls, and returns the top highest-scoring fragments with
// LLMScore set, in non-increasing score order. Equal scores keep batch order.
// Section-scoped calls rank by the section relevance score.
func (r *Reranker) Rerank(ctx context.Context, fragments []types.Fragment, top int, section *SectionInfo, rc ReportContext) ([]types.Fragment, error) {
	candidates := Dedup(fragments)
	if len(candidates) == 0 || top <= 0 {
		return []types.Fragment{}, nil
	}

	ctx, span := tracer.Start(ctx, "research.rerank", trace.WithAttributes(
		attribute.Int("research.candidates", len(candidates)),
		attribute.Int("research.top", top),
		attribute.Bool("research.section_scoped", section.scoped())))
	defer span.End()

	batches := (len(candidates) + r.batchSize - 1) / r.batchSize
	slots := make([][]scored, batches)

	for wave := 0; wave < batches; wave += r.waveSize {
		end := min(wave+r.waveSize, batches)
		var g errgroup.Group
		for b := wave; b < end; b++ {
			start := b * r.batchSize
			batch := candidates[start:min(start+r.batchSize, len(candidates))]
			g.Go(func() error {
				res, err := r.scoreBatch(ctx, batch, start, section, rc)
				if err != nil {
					return err
				}
				slots[b] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			span.RecordError(err)
			return nil, types.NewError(types.ErrRerank, "score fragment batch").WithCause(err)
		}
	}

	var flat []scored
	for _, s := range slots {
		flat = append(flat, s...)
	}
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].score > flat[j].score })

	out := make([]types.Fragment, 0, min(top, len(candidates)))
	taken := make(map[int]struct{}, len(flat))
	for _, s := range flat {
		if len(out) == top {
			break
		}
		if _, dup := taken[s.id]; dup {
			continue
		}
		taken[s.id] = struct{}{}
		f := candidates[s.id-1]
		f.LLMScore = types.LLMScore(s.score)
		out = append(out, f)
	}

	r.logger.Debug("rerank finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("batches", batches),
		zap.Int("kept", len(out)))
	return out, nil
}

// scoreBatch asks for scores of one batch; ids are offset+i+1. Replies with
// unknown ids or without the ranking score are skipped.
func (r *Reranker) scoreBatch(ctx context.Context, batch []types.Fragment, offset int, section *SectionInfo, rc ReportContext) ([]scored, error) {
	items := make([]scoreItem, len(batch))
	for i, f := range batch {
		items[i] = scoreItem{ID: offset + i + 1, Content: f.Content}
	}

	name := "score-chunks"
	if section.scoped() {
		name = "score-section-chunks"
	}

	var reply scoreReply
	err := r.llm.json(ctx, &llm.ChatRequest{
		Name:        name,
		Model:       r.model,
		Messages:    llm.UserPrompt(scorePrompt(rc, section, items)),
		Temperature: llm.Temperature(0),
	}, &reply)
	if err != nil {
		return nil, err
	}

	lo, hi := offset+1, offset+len(batch)
	out := make([]scored, 0, len(reply.Chunks))
	for _, c := range reply.Chunks {
		value := c.Score
		if section.scoped() {
			value = c.SectionRelevance
		}
		if c.ID < lo || c.ID > hi || value == nil {
			r.logger.Debug("ignoring unusable chunk score", zap.String("call", name), zap.Int("id", c.ID))
			continue
		}
		out = append(out, scored{id: c.ID, score: *value})
	}
	if len(out) < len(batch) {
		r.logger.Warn("batch partially scored",
			zap.String("call", name),
			zap.String("ids", fmt.Sprintf("%d-%d", lo, hi)),
			zap.Int("scored", len(out)))
	}
	return out, nil
}
