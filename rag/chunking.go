package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// ChunkingConfig 分块配置，长度以字符（rune）计.
type ChunkingConfig struct {
	ChunkSize    int      `json:"chunk_size"`    // 块大小
	ChunkOverlap int      `json:"chunk_overlap"` // 重叠大小
	Separators   []string `json:"separators"`    // 分隔符优先级，"" 表示按字符切分
}

// DefaultChunkingConfig 上传文件的默认分块配置
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    1000,
		ChunkOverlap: 0,
		Separators:   []string{"\n\n", "\n", " ", ""},
	}
}

// DocumentChunker 递归字符分块器：优先在段落、行、单词边界切分
type DocumentChunker struct {
	config ChunkingConfig
	logger *zap.Logger
}

// NewDocumentChunker 创建文档分块器
func NewDocumentChunker(config ChunkingConfig, logger *zap.Logger) *DocumentChunker {
	def := DefaultChunkingConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = 0
	}
	if len(config.Separators) == 0 {
		config.Separators = def.Separators
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentChunker{config: config, logger: logger}
}

// SplitText 切分文本，每块不超过 ChunkSize 个字符，空白块被丢弃
func (c *DocumentChunker) SplitText(text string) []string {
	return c.split(text, c.config.Separators)
}

// SplitDocuments 切分文档；每块继承原文档 metadata 并记录 chunk 序号
func (c *DocumentChunker) SplitDocuments(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		for i, chunk := range c.SplitText(doc.Content) {
			meta := make(map[string]any, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["chunk"] = i
			out = append(out, Document{
				ID:       fmt.Sprintf("%s#%d", doc.ID, i),
				Content:  chunk,
				Metadata: meta,
			})
		}
	}
	c.logger.Debug("documents chunked",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(out)),
		zap.Int("chunk_size", c.config.ChunkSize))
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// split 选择文本中出现的第一个分隔符切分，超长片段用下一级分隔符递归
func (c *DocumentChunker) split(text string, separators []string) []string {
	sep, rest := "", []string(nil)
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep, rest = s, separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = hardSplit(text, c.config.ChunkSize)
	} else {
		pieces = strings.SplitAfter(text, sep)
	}

	var chunks []string
	var current []string
	currentLen := 0
	flush := func() {
		if s := strings.TrimSpace(strings.Join(current, "")); s != "" {
			chunks = append(chunks, s)
		}
		// 保留末尾若干完整片段作为下一块的重叠
		keep, kept := len(current), 0
		for keep > 0 && kept+runeLen(current[keep-1]) <= c.config.ChunkOverlap {
			keep--
			kept += runeLen(current[keep])
		}
		current = append([]string(nil), current[keep:]...)
		currentLen = kept
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if n > c.config.ChunkSize {
			flush()
			current, currentLen = nil, 0
			if len(rest) > 0 {
				chunks = append(chunks, c.split(piece, rest)...)
			} else {
				for _, p := range hardSplit(piece, c.config.ChunkSize) {
					if s := strings.TrimSpace(p); s != "" {
						chunks = append(chunks, s)
					}
				}
			}
			continue
		}
		if currentLen+n > c.config.ChunkSize {
			flush()
			for currentLen+n > c.config.ChunkSize && len(current) > 0 {
				currentLen -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentLen += n
	}
	if len(current) > 0 {
		if s := strings.TrimSpace(strings.Join(current, "")); s != "" {
			chunks = append(chunks, s)
		}
	}
	return chunks
}

// hardSplit 按固定字符数切分
func hardSplit(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
	}
	return out
}
