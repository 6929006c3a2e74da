package rag

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDocumentChunker_Defaults(t *testing.T) {
	c := NewDocumentChunker(ChunkingConfig{}, nil)
	assert.Equal(t, 1000, c.config.ChunkSize)
	assert.Zero(t, c.config.ChunkOverlap)
}

func TestDocumentChunker_PrefersParagraphs(t *testing.T) {
	c := NewDocumentChunker(ChunkingConfig{ChunkSize: 25}, nil)
	text := "first paragraph here.\n\nsecond paragraph here.\n\nthird."

	chunks := c.SplitText(text)
	assert.Equal(t, []string{"first paragraph here.", "second paragraph here.", "third."}, chunks)
}

func TestDocumentChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewDocumentChunker(DefaultChunkingConfig(), nil)
	assert.Equal(t, []string{"hello world"}, c.SplitText("  hello world \n"))
	assert.Empty(t, c.SplitText("   \n\n "))
}

func TestDocumentChunker_LongWordHardSplit(t *testing.T) {
	c := NewDocumentChunker(ChunkingConfig{ChunkSize: 4}, nil)
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, c.SplitText("abcdefghij"))
}

func TestDocumentChunker_Overlap(t *testing.T) {
	c := NewDocumentChunker(ChunkingConfig{ChunkSize: 11, ChunkOverlap: 5}, nil)
	chunks := c.SplitText("aaaa bbbb cccc dddd")
	assert.Equal(t, []string{"aaaa bbbb", "bbbb cccc", "cccc dddd"}, chunks)
}

func TestDocumentChunker_SplitDocumentsKeepsMetadata(t *testing.T) {
	c := NewDocumentChunker(ChunkingConfig{ChunkSize: 10}, nil)
	out := c.SplitDocuments([]Document{doc("notes.txt", "alpha beta gamma delta")})

	require.NotEmpty(t, out)
	for i, d := range out {
		assert.Equal(t, "notes.txt", d.Source())
		assert.Equal(t, i, d.Metadata["chunk"])
	}
	assert.Equal(t, "notes.txt#0", out[0].ID)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestDocumentChunker_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 40).Draw(rt, "size")
		text := rapid.StringMatching(`[a-z研 \n]{0,200}`).Draw(rt, "text")

		chunks := NewDocumentChunker(ChunkingConfig{ChunkSize: size}, nil).SplitText(text)

		for _, ch := range chunks {
			if runeLen(ch) > size {
				rt.Fatalf("chunk %q longer than %d", ch, size)
			}
			if strings.TrimSpace(ch) == "" {
				rt.Fatalf("blank chunk emitted")
			}
		}
		// without overlap no content is lost or duplicated
		if got, want := stripSpace(strings.Join(chunks, "")), stripSpace(text); got != want {
			rt.Fatalf("content mismatch: got %q want %q", got, want)
		}
	})
}
