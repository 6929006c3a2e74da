package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/rag"
	"github.com/BaSui01/researchflow/rag/loader"
	"github.com/BaSui01/researchflow/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ChatReport is the chat type of sessions about a finished report.
const ChatReport = "report"

// ChatWithReport answers a question about a report. The user message is
// validated before anything is stored; both turns are appended to the session.
// Chunks cited by the report and, when the session uploaded files, the
// closest file chunks ground the answer.
func (s *Service) ChatWithReport(ctx context.Context, reportID, sessionID, content string) (*types.Message, error) {
	if err := validateSession(ChatReport, sessionID); err != nil {
		return nil, err
	}
	if err := types.ValidateMessageContent(content, s.cfg.MaxMessageLength); err != nil {
		return nil, err
	}
	report, tenant, err := s.loadReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "research.chat", trace.WithAttributes(
		attribute.String("research.report_id", reportID),
		attribute.String("research.session_id", sessionID)))
	defer span.End()
	ctx = types.WithSessionID(withScope(ctx, report), sessionID)

	if err := s.messages.AddMessage(ctx, types.NewMessage(sessionID, types.RoleUser, types.MessageReport, content)); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}
	history, err := s.messages.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	chunks, err := s.chatChunks(ctx, report, sessionID, content)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: chatSystemPrompt(NewReportContext(tenant, report), report, chunks),
	})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	answer, err := s.llm.text(ctx, &llm.ChatRequest{
		Name:     "chat-with-report",
		Model:    s.cfg.SmartModel,
		Messages: messages,
		TenantID: report.TenantID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, types.NewError(types.ErrUpstreamError, "chat with report").WithCause(err)
	}

	reply := types.NewMessage(sessionID, types.RoleAssistant, types.MessageReport, answer)
	if err := s.messages.AddMessage(ctx, reply); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	s.logger.Info("chat answered",
		zap.String("report_id", reportID),
		zap.String("session_id", sessionID),
		zap.Int("history", len(history)),
		zap.Int("chunks", len(chunks)))
	return reply, nil
}

func (s *Service) chatChunks(ctx context.Context, report *types.Report, sessionID, question string) ([]chatChunk, error) {
	cited, err := s.fragments.FindByIDs(ctx, report.Citations)
	if err != nil {
		return nil, fmt.Errorf("load cited fragments of report %s: %w", report.ID, err)
	}
	chunks := make([]chatChunk, 0, len(cited))
	for _, f := range cited {
		chunks = append(chunks, chatChunk{ID: f.ID, Source: f.Source, Content: f.Content})
	}

	idx := s.existingIndex(rag.ChatIndexPath(ChatReport, sessionID))
	if idx == nil {
		return chunks, nil
	}
	hits, err := idx.SimilaritySearch(ctx, question, s.cfg.TopEachQuery)
	if err != nil {
		s.logger.Warn("chat file search failed", zap.String("session_id", sessionID), zap.Error(err))
		return chunks, nil
	}
	for _, h := range hits {
		chunks = append(chunks, chatChunk{ID: h.Document.ID, Source: h.Document.Source(), Content: h.Document.Content})
	}
	return chunks, nil
}

// UploadChatFiles embeds files into a chat session's index and returns the
// number of chunks added.
func (s *Service) UploadChatFiles(ctx context.Context, chatType, sessionID string, uploads []loader.Upload) (int, error) {
	if chatType == "" {
		chatType = ChatReport
	}
	if err := validateSession(chatType, sessionID); err != nil {
		return 0, err
	}
	if len(uploads) == 0 {
		return 0, types.NewValidationError("no files to upload")
	}
	_, n, err := s.embedUploads(types.WithSessionID(ctx, sessionID), rag.ChatIndexPath(chatType, sessionID), uploads)
	return n, err
}

// validateSession rejects chat types and session ids that cannot name an
// index directory under IndexRoot.
func validateSession(chatType, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return types.NewValidationError("session id is required")
	}
	if err := rag.ValidateIdentityPart(sessionID); err != nil {
		return types.NewValidationError("invalid session id").WithCause(err)
	}
	if err := rag.ValidateIdentityPart(chatType); err != nil {
		return types.NewValidationError("invalid chat type").WithCause(err)
	}
	return nil
}
