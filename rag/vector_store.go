package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Embedder 生成查询与文档嵌入，embedding.Provider 满足该接口.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
	Distance float64  `json:"distance"`
}

const indexFileName = "index.json"

// ReportIndexPath 返回报告上传文件的索引标识.
func ReportIndexPath(reportID string) string {
	return filepath.Join("reports", reportID)
}

// ChatIndexPath 返回聊天会话上传文件的索引标识.
func ChatIndexPath(chatType, sessionID string) string {
	return filepath.Join("chat", chatType, sessionID)
}

// ErrInvalidIdentity 标识段会逃出索引根目录.
var ErrInvalidIdentity = errors.New("invalid index identity")

// ValidateIdentityPart 检查报告 id、会话 id 等单个标识段：非空、
// 不含路径分隔符且不是 "." 或 "..".
func ValidateIdentityPart(part string) error {
	switch {
	case strings.TrimSpace(part) == "", part == ".", part == "..",
		strings.ContainsAny(part, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidIdentity, part)
	}
	return nil
}

// ====== 本地持久化向量索引 ======

// LocalIndex 是按标识隔离、持久化为 JSON 的内存向量索引。
// 读写由 RWMutex 保护：搜索并发进行，写入与保存串行。
type LocalIndex struct {
	dir       string
	embedder  Embedder
	documents []Document
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewLocalIndex 创建位于 <root>/<identity> 的空索引.
func NewLocalIndex(root, identity string, embedder Embedder, logger *zap.Logger) *LocalIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalIndex{
		dir:       filepath.Join(root, identity),
		embedder:  embedder,
		documents: make([]Document, 0),
		logger:    logger.With(zap.String("component", "local_index"), zap.String("identity", identity)),
	}
}

// OpenLocalIndex 加载已保存的索引；文件不存在时返回空索引.
func OpenLocalIndex(root, identity string, embedder Embedder, logger *zap.Logger) (*LocalIndex, error) {
	if !filepath.IsLocal(identity) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentity, identity)
	}
	idx := NewLocalIndex(root, identity, embedder, logger)

	data, err := os.ReadFile(idx.path())
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", idx.path(), err)
	}
	if err := json.Unmarshal(data, &idx.documents); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", idx.path(), err)
	}

	idx.logger.Debug("local index loaded", zap.Int("documents", len(idx.documents)))
	return idx, nil
}

func (s *LocalIndex) path() string { return filepath.Join(s.dir, indexFileName) }

// Dir 返回索引目录.
func (s *LocalIndex) Dir() string { return s.dir }

// AddDocuments 嵌入并追加文档，save 为 true 时随后落盘一次.
// 嵌入在锁外完成。
func (s *LocalIndex) AddDocuments(ctx context.Context, docs []Document, save bool) error {
	if len(docs) == 0 {
		if save {
			return s.Save()
		}
		return nil
	}

	pending := make([]string, 0, len(docs))
	pendingIdx := make([]int, 0, len(docs))
	for i, doc := range docs {
		if doc.Embedding == nil {
			pending = append(pending, doc.Content)
			pendingIdx = append(pendingIdx, i)
		}
	}
	if len(pending) > 0 {
		if s.embedder == nil {
			return fmt.Errorf("local index: %d documents need embeddings but no embedder is configured", len(pending))
		}
		vecs, err := s.embedder.EmbedDocuments(ctx, pending)
		if err != nil {
			return fmt.Errorf("embed documents: %w", err)
		}
		if len(vecs) != len(pending) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(vecs), len(pending))
		}
		for j, i := range pendingIdx {
			docs[i].Embedding = vecs[j]
		}
	}

	s.mu.Lock()
	s.documents = append(s.documents, docs...)
	total := len(s.documents)
	s.mu.Unlock()

	s.logger.Info("documents added to local index",
		zap.Int("count", len(docs)),
		zap.Int("total", total))

	if save {
		return s.Save()
	}
	return nil
}

// Save 将索引原子写入 <dir>/index.json.
func (s *LocalIndex) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(s.documents)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, indexFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// SimilaritySearch 返回与查询余弦相似度最高的 k 个文档.
func (s *LocalIndex) SimilaritySearch(ctx context.Context, query string, k int) ([]VectorSearchResult, error) {
	if k <= 0 {
		return []VectorSearchResult{}, nil
	}
	if s.embedder == nil {
		return nil, errors.New("local index: no embedder configured")
	}
	queryEmbedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.Search(queryEmbedding, k), nil
}

// Search 按给定向量检索 Top-K.
func (s *LocalIndex) Search(queryEmbedding []float64, k int) []VectorSearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]VectorSearchResult, 0, len(s.documents))
	for _, doc := range s.documents {
		if doc.Embedding == nil {
			continue
		}
		similarity := cosineSimilarity(queryEmbedding, doc.Embedding)
		results = append(results, VectorSearchResult{
			Document: doc,
			Score:    similarity,
			Distance: 1.0 - similarity,
		})
	}

	sortByScore(results)
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

// Count 返回文档数量
func (s *LocalIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// 功用函数

// cosineSimilarity 计算余弦相似度，维度不一致或零向量返回 0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortByScore 按分数降序排序，分数相同保持插入顺序
func sortByScore(results []VectorSearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
