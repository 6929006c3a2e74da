package research

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		content   string
		citations []string
	}{
		{
			name:      "single marker",
			text:      "A.<citation>id1</citation> B.",
			content:   "A. B.",
			citations: []string{"id1"},
		},
		{
			name:      "first occurrence order",
			text:      "x<citation>b</citation><citation>a</citation> y<citation>b</citation>",
			content:   "x y",
			citations: []string{"b", "a"},
		},
		{
			name:      "ids are trimmed and empty ids skipped",
			text:      "z <citation> c1 </citation><citation></citation>",
			content:   "z",
			citations: []string{"c1"},
		},
		{
			name:      "no markers",
			text:      "  plain text \n",
			content:   "plain text",
			citations: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractCitations(tt.text)
			assert.Equal(t, tt.content, got.Content)
			assert.Equal(t, tt.citations, got.Citations)
		})
	}
}

func TestExtractCitations_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ids := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z0-9-]{1,12}`), func(s string) string { return s }).Draw(rt, "ids")

		var sb strings.Builder
		sb.WriteString("Intro.")
		for i, id := range ids {
			sb.WriteString(" Sentence")
			sb.WriteString(CitationMarker(id))
			if i%2 == 0 {
				// repeat to check dedup keeps the first position
				sb.WriteString(CitationMarker(id))
			}
		}

		got := ExtractCitations(sb.String())
		require.Len(rt, got.Citations, len(ids))
		for i, id := range ids {
			assert.Equal(rt, id, got.Citations[i])
		}
		assert.NotContains(rt, got.Content, "<citation>")
		assert.NotContains(rt, got.Content, "</citation>")
	})
}
