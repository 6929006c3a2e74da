package loader

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/researchflow/rag"
)

// TextLoader loads plain text files as a single Document.
type TextLoader struct{}

// NewTextLoader creates a TextLoader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// LoadBytes returns data as a single Document. Invalid UTF-8 is rejected.
func (l *TextLoader) LoadBytes(ctx context.Context, name string, data []byte) ([]rag.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text loader: %s is not valid UTF-8 text", name)
	}

	doc := rag.Document{
		ID:      name,
		Content: strings.ReplaceAll(string(data), "\x00", ""),
		Metadata: map[string]any{
			"source":       name,
			"content_type": "text/plain",
			"loader":       "text",
		},
	}

	return []rag.Document{doc}, nil
}

// SupportedTypes returns the extensions handled by TextLoader.
func (l *TextLoader) SupportedTypes() []string {
	return []string{".txt", ".text", ".md", ".markdown", ".log"}
}
