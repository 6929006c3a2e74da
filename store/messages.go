package store

import (
	"context"
	"fmt"

	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageRepository persists chat messages.
type MessageRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// AddMessage inserts m.
func (s *MessageRepository) AddMessage(ctx context.Context, m *types.Message) error {
	model := toMessageModel(m)
	if err := withContext(ctx, s.db).Create(&model).Error; err != nil {
		return fmt.Errorf("add message to session %s: %w", m.SessionID, err)
	}
	return nil
}

// FindBySessionID returns a session's messages by creation time ascending.
func (s *MessageRepository) FindBySessionID(ctx context.Context, sessionID string) ([]types.Message, error) {
	var models []messageModel
	err := withContext(ctx, s.db).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("find messages of session %s: %w", sessionID, err)
	}
	out := make([]types.Message, len(models))
	for i, m := range models {
		out[i] = m.toMessage()
	}
	return out, nil
}
