package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseFragmentType(t *testing.T) {
	got, err := ParseFragmentType(" web ")
	require.NoError(t, err)
	assert.Equal(t, FragmentWeb, got)

	_, err = ParseFragmentType("intranet")
	assert.True(t, IsErrorCode(err, ErrValidation))
}

func TestScore_KindsAreNotCompared(t *testing.T) {
	v := VectorScore(3.2)
	l := LLMScore(90)

	assert.False(t, v.Comparable(l))
	assert.False(t, v.Less(l))
	assert.False(t, l.Less(v))
	assert.True(t, LLMScore(10).Less(l))

	var none *Score
	assert.False(t, none.Comparable(l))
}

func TestFragment_LLMRelevance(t *testing.T) {
	f := NewFragment(FragmentInternal, "q", "c", "s")
	assert.Equal(t, 0.0, f.LLMRelevance())

	f.VectorScore = VectorScore(2.5)
	assert.Equal(t, 0.0, f.LLMRelevance(), "vector score must not leak into llm relevance")

	f.LLMScore = LLMScore(77)
	assert.Equal(t, 77.0, f.LLMRelevance())
	assert.Equal(t, "c", f.Caption)
	assert.NotEmpty(t, f.ID)
}

func TestReport_ApplySynthesisKeepsCitationsSubset(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "offered")
		offered := make([]Fragment, n)
		for i := range offered {
			offered[i] = NewFragment(FragmentWeb, "q", rapid.String().Draw(rt, "content"), "src")
		}
		ids := FragmentIDs(offered)
		citations := rapid.SliceOf(rapid.OneOf(
			rapid.Just("invented"),
			rapid.SampledFrom(append(ids, "other")),
		)).Draw(rt, "citations")

		r := NewReport("tenant", "objective", "audience", "")
		r.ApplySynthesis(offered, "text", citations)

		if err := r.Validate(); err != nil {
			rt.Fatalf("invariant broken: %v", err)
		}
		if len(r.ChunkIDs) != n {
			rt.Fatalf("chunk ids: got %d want %d", len(r.ChunkIDs), n)
		}
	})
}

func TestReport_CloneIsDeep(t *testing.T) {
	r := NewReport("t", "o", "a", "i")
	r.Citations = []string{"a"}
	c := r.Clone()
	c.Citations[0] = "b"
	assert.Equal(t, "a", r.Citations[0])

	var nilReport *Report
	assert.Nil(t, nilReport.Clone())
}

func TestReport_ClonePreservesEmptyAndNil(t *testing.T) {
	r := NewReport("t", "o", "a", "i")
	r.Citations = []string{}
	r.ChunkIDs = nil

	c := r.Clone()
	assert.NotNil(t, c.Citations)
	assert.Empty(t, c.Citations)
	assert.Nil(t, c.ChunkIDs)
	assert.Equal(t, r, c)
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hello", 0))
	assert.Error(t, ValidateMessageContent("", 0))

	long := make([]rune, MaxMessageLength+1)
	for i := range long {
		long[i] = '界'
	}
	err := ValidateMessageContent(string(long), 0)
	assert.True(t, IsErrorCode(err, ErrValidation))
	assert.NoError(t, ValidateMessageContent(string(long[:MaxMessageLength]), 0))
	assert.Error(t, ValidateMessageContent("abcdef", 5))
}
