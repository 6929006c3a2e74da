package research

import (
	"fmt"
	"time"

	"github.com/BaSui01/researchflow/types"
)

// Config holds the pipeline knobs.
type Config struct {
	TopTotal             int           `json:"top_total" yaml:"top_total"`                           // fragments kept per backend after rerank
	TopEachQuery         int           `json:"top_each_query" yaml:"top_each_query"`                 // hits requested per query
	NumberOfQueries      int           `json:"number_of_queries" yaml:"number_of_queries"`           // queries generated per family
	BatchSize            int           `json:"batch_size" yaml:"batch_size"`                         // fragments per rerank call
	WaveSize             int           `json:"wave_size" yaml:"wave_size"`                           // concurrent rerank calls
	MaxSynthesisAttempts int           `json:"max_synthesis_attempts" yaml:"max_synthesis_attempts"` // total, not retries
	RetryDelay           time.Duration `json:"retry_delay" yaml:"retry_delay"`                       // 0 retries immediately
	LLMTimeout           time.Duration `json:"llm_timeout" yaml:"llm_timeout"`
	SectionCount         int           `json:"section_count" yaml:"section_count"`
	MaxMessageLength     int           `json:"max_message_length" yaml:"max_message_length"`
	MaxPromptTokens      int           `json:"max_prompt_tokens" yaml:"max_prompt_tokens"` // 0 disables the budget
	CustomQueryTop       int           `json:"custom_query_top" yaml:"custom_query_top"`
	IndexRoot            string        `json:"index_root" yaml:"index_root"`
	FastModel            string        `json:"fast_model" yaml:"fast_model"`
	SmartModel           string        `json:"smart_model" yaml:"smart_model"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TopTotal:             5,
		TopEachQuery:         5,
		NumberOfQueries:      3,
		BatchSize:            10,
		WaveSize:             5,
		MaxSynthesisAttempts: 6,
		RetryDelay:           0,
		LLMTimeout:           45 * time.Second,
		SectionCount:         4,
		MaxMessageLength:     types.MaxMessageLength,
		CustomQueryTop:       10,
		IndexRoot:            "data/indexes",
		FastModel:            "gpt-4o-mini",
		SmartModel:           "gpt-4o",
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	positive := map[string]int{
		"top_total":              c.TopTotal,
		"top_each_query":         c.TopEachQuery,
		"number_of_queries":      c.NumberOfQueries,
		"batch_size":             c.BatchSize,
		"wave_size":              c.WaveSize,
		"max_synthesis_attempts": c.MaxSynthesisAttempts,
		"section_count":          c.SectionCount,
		"max_message_length":     c.MaxMessageLength,
		"custom_query_top":       c.CustomQueryTop,
	}
	for name, v := range positive {
		if v <= 0 {
			return types.NewValidationError(fmt.Sprintf("research.%s must be positive, got %d", name, v))
		}
	}
	if c.RetryDelay < 0 {
		return types.NewValidationError("research.retry_delay must not be negative")
	}
	if c.LLMTimeout <= 0 {
		return types.NewValidationError("research.llm_timeout must be positive")
	}
	if c.MaxPromptTokens < 0 {
		return types.NewValidationError("research.max_prompt_tokens must not be negative")
	}
	return nil
}

// withDefaults fills zero values so partially built configs still run.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TopTotal <= 0 {
		c.TopTotal = d.TopTotal
	}
	if c.TopEachQuery <= 0 {
		c.TopEachQuery = d.TopEachQuery
	}
	if c.NumberOfQueries <= 0 {
		c.NumberOfQueries = d.NumberOfQueries
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.WaveSize <= 0 {
		c.WaveSize = d.WaveSize
	}
	if c.MaxSynthesisAttempts <= 0 {
		c.MaxSynthesisAttempts = d.MaxSynthesisAttempts
	}
	if c.LLMTimeout <= 0 {
		c.LLMTimeout = d.LLMTimeout
	}
	if c.SectionCount <= 0 {
		c.SectionCount = d.SectionCount
	}
	if c.MaxMessageLength <= 0 {
		c.MaxMessageLength = d.MaxMessageLength
	}
	if c.CustomQueryTop <= 0 {
		c.CustomQueryTop = d.CustomQueryTop
	}
	if c.IndexRoot == "" {
		c.IndexRoot = d.IndexRoot
	}
	return c
}
