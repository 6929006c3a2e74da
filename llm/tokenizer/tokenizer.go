package tokenizer

import (
	"strings"

	"go.uber.org/zap"
)

// Tokenizer 是统一的 Token 计数接口.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// ForModel 返回模型对应的分词器。
// OpenAI 家族模型使用 tiktoken；tiktoken 编码不可用时回退到估算器。
func ForModel(model string, logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, ok := lookupEncoding(model); ok {
		t := NewTiktokenTokenizer(model)
		err := t.init()
		if err == nil {
			return t
		}
		logger.Warn("tiktoken unavailable, falling back to estimator",
			zap.String("model", model), zap.Error(err))
	}
	return NewEstimatorTokenizer(model, 0)
}

// FitWithin 按顺序保留 parts 中能放进 budget 的前缀，返回保留的数量。
// 每个 part 额外计 sepTokens 个分隔符 token。budget <= 0 表示不限制。
func FitWithin(t Tokenizer, parts []string, budget, sepTokens int) (int, error) {
	if budget <= 0 {
		return len(parts), nil
	}
	used := 0
	for i, p := range parts {
		n, err := t.CountTokens(p)
		if err != nil {
			return 0, err
		}
		used += n + sepTokens
		if used > budget {
			return i, nil
		}
	}
	return len(parts), nil
}

func hasPrefixModel(model, prefix string) bool {
	return strings.HasPrefix(model, prefix)
}
