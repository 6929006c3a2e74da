package store

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReportRepository persists reports.
type ReportRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Create inserts r.
func (s *ReportRepository) Create(ctx context.Context, r *types.Report) error {
	m := toReportModel(r)
	if err := withContext(ctx, s.db).Create(&m).Error; err != nil {
		return fmt.Errorf("create report %s: %w", r.ID, err)
	}
	r.CreatedAt, r.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

// Update overwrites the mutable columns of r. A missing report is ErrNotFound.
func (s *ReportRepository) Update(ctx context.Context, r *types.Report) error {
	m := toReportModel(r)
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	res := withContext(ctx, s.db).
		Model(&reportModel{}).
		Where("id = ?", r.ID).
		Select("objective", "target_audience", "additional_information", "content", "citations", "chunk_ids", "updated_at").
		Updates(&m)
	if res.Error != nil {
		return fmt.Errorf("update report %s: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewNotFoundError("report", r.ID)
	}
	s.logger.Debug("report updated",
		zap.String("report_id", r.ID),
		zap.Int("citations", len(r.Citations)),
		zap.Int("chunks", len(r.ChunkIDs)))
	return nil
}

// FindByID loads one report.
func (s *ReportRepository) FindByID(ctx context.Context, id string) (*types.Report, error) {
	var m reportModel
	if err := withContext(ctx, s.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err, "report", id)
	}
	return m.toReport(), nil
}
