package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/BaSui01/researchflow/rag"
)

// Upload is a file supplied with a research or chat request.
type Upload struct {
	Name string
	Data []byte
}

// ReadUpload reads a file from disk into an Upload named by its base name.
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return Upload{Name: filepath.Base(path), Data: data}, nil
}

// DocumentLoader converts raw file bytes into documents.
type DocumentLoader interface {
	// LoadBytes parses data that came from a file called name.
	LoadBytes(ctx context.Context, name string, data []byte) ([]rag.Document, error)

	// SupportedTypes returns the file extensions this loader handles (e.g. ".txt").
	SupportedTypes() []string
}

// LoaderRegistry routes loads to the appropriate DocumentLoader based on file extension.
type LoaderRegistry struct {
	mu      sync.RWMutex
	loaders map[string]DocumentLoader // extension (lowercase, with dot) -> loader
}

// NewLoaderRegistry creates a registry pre-populated with the text loader.
func NewLoaderRegistry() *LoaderRegistry {
	r := &LoaderRegistry{
		loaders: make(map[string]DocumentLoader),
	}
	text := NewTextLoader()
	for _, ext := range text.SupportedTypes() {
		r.loaders[ext] = text
	}
	return r
}

// Register adds or replaces a loader for the given file extension.
// ext should include the leading dot (e.g. ".log").
func (r *LoaderRegistry) Register(ext string, loader DocumentLoader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[strings.ToLower(ext)] = loader
}

// LoadUpload determines the loader from the upload's extension and delegates to it.
func (r *LoaderRegistry) LoadUpload(ctx context.Context, u Upload) ([]rag.Document, error) {
	ext := strings.ToLower(filepath.Ext(u.Name))
	if ext == "" {
		return nil, fmt.Errorf("loader: cannot determine file type for %q (no extension)", u.Name)
	}

	r.mu.RLock()
	l, ok := r.loaders[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("loader: no loader registered for extension %q", ext)
	}

	return l.LoadBytes(ctx, u.Name, u.Data)
}

// Load reads a file from disk and loads it.
func (r *LoaderRegistry) Load(ctx context.Context, path string) ([]rag.Document, error) {
	u, err := ReadUpload(path)
	if err != nil {
		return nil, err
	}
	return r.LoadUpload(ctx, u)
}

// SupportedTypes returns all registered extensions, sorted.
func (r *LoaderRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
