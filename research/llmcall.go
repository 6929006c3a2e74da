package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
)

// caller applies the per-call timeout and JSON decoding shared by every stage.
type caller struct {
	provider llm.Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// text runs one completion and returns the raw reply.
func (c caller) text(ctx context.Context, req *llm.ChatRequest) (string, error) {
	if req.Timeout == 0 {
		req.Timeout = c.timeout
	}
	logger := c.logger.With(scopeFields(ctx)...)
	start := time.Now()
	out, err := llm.Invoke(ctx, c.provider, req)
	if err != nil {
		logger.Debug("llm call failed",
			zap.String("call", req.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	logger.Debug("llm call finished",
		zap.String("call", req.Name),
		zap.Int("reply_chars", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// json runs one completion in JSON-object mode and decodes the reply into out.
func (c caller) json(ctx context.Context, req *llm.ChatRequest, out any) error {
	req.ResponseFormat = llm.JSONObject
	reply, err := c.text(ctx, req)
	if err != nil {
		return err
	}
	if err := decodeJSON(reply, out); err != nil {
		return fmt.Errorf("%s returned malformed JSON: %w", req.Name, err)
	}
	return nil
}

// decodeJSON accepts a bare object or one wrapped in a markdown code fence.
func decodeJSON(reply string, out any) error {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return json.Unmarshal([]byte(s), out)
}

// scopeFields returns the request ids carried by ctx as log fields.
func scopeFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := types.TraceID(ctx); ok {
		fields = append(fields, zap.String("trace_id", id))
	}
	if id, ok := types.TenantID(ctx); ok {
		fields = append(fields, zap.String("tenant_id", id))
	}
	if id, ok := types.ReportID(ctx); ok {
		fields = append(fields, zap.String("report_id", id))
	}
	if id, ok := types.SessionID(ctx); ok {
		fields = append(fields, zap.String("session_id", id))
	}
	return fields
}
