package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FragmentType tags which retrieval backend produced a fragment.
type FragmentType string

const (
	FragmentInternal FragmentType = "INTERNAL"
	FragmentWeb      FragmentType = "WEB"
	FragmentFile     FragmentType = "FILE"
	FragmentURL      FragmentType = "URL"
)

// FragmentTypes lists every type in backend priority order.
var FragmentTypes = []FragmentType{FragmentInternal, FragmentWeb, FragmentFile, FragmentURL}

// ParseFragmentType accepts the type name in any case.
func ParseFragmentType(s string) (FragmentType, error) {
	t := FragmentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range FragmentTypes {
		if t == known {
			return t, nil
		}
	}
	return "", NewValidationError(fmt.Sprintf("unknown fragment type %q", s))
}

// ScoreKind says what a score measures. Scores of different kinds are not comparable.
type ScoreKind string

const (
	// ScoreVector is a backend-native similarity (e.g. a semantic reranker score).
	ScoreVector ScoreKind = "vector"
	// ScoreLLM is a relevance score assigned by the reranker.
	ScoreLLM ScoreKind = "llm"
)

// Score is a tagged relevance value.
type Score struct {
	Kind  ScoreKind `json:"kind"`
	Value float64   `json:"value"`
}

// VectorScore builds a backend-native score.
func VectorScore(v float64) *Score { return &Score{Kind: ScoreVector, Value: v} }

// LLMScore builds a reranker-assigned score.
func LLMScore(v float64) *Score { return &Score{Kind: ScoreLLM, Value: v} }

// Comparable reports whether s and o measure the same thing.
func (s *Score) Comparable(o *Score) bool {
	return s != nil && o != nil && s.Kind == o.Kind
}

// Less orders two scores of the same kind. Incomparable scores are never less.
func (s *Score) Less(o *Score) bool {
	if !s.Comparable(o) {
		return false
	}
	return s.Value < o.Value
}

// FragmentKey is the dedup identity of a fragment.
type FragmentKey struct {
	Content string
	Source  string
}

// Fragment is one retrieved evidence snippet with provenance.
type Fragment struct {
	ID          string       `json:"id"`
	Type        FragmentType `json:"type"`
	ReportID    string       `json:"report_id,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
	Query       string       `json:"query"`
	Content     string       `json:"content"`
	Source      string       `json:"source"`
	Caption     string       `json:"caption,omitempty"`
	Highlights  string       `json:"highlights,omitempty"`
	VectorScore *Score       `json:"vector_score,omitempty"`
	LLMScore    *Score       `json:"llm_score,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewFragment creates a fragment with a fresh id. Caption and highlights default to
// the content, which is what web, file and url hits carry.
func NewFragment(t FragmentType, query, content, source string) Fragment {
	return Fragment{
		ID:         uuid.NewString(),
		Type:       t,
		Query:      query,
		Content:    content,
		Source:     source,
		Caption:    content,
		Highlights: content,
		CreatedAt:  time.Now(),
	}
}

// Key returns the (content, source) identity.
func (f Fragment) Key() FragmentKey {
	return FragmentKey{Content: f.Content, Source: f.Source}
}

// LLMRelevance returns the reranker score, or 0 when the fragment was not reranked.
func (f Fragment) LLMRelevance() float64 {
	if f.LLMScore == nil || f.LLMScore.Kind != ScoreLLM {
		return 0
	}
	return f.LLMScore.Value
}

// FragmentIDs returns the ids of fs in order.
func FragmentIDs(fs []Fragment) []string {
	ids := make([]string, len(fs))
	for i, f := range fs {
		ids[i] = f.ID
	}
	return ids
}
