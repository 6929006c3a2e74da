package store

import (
	"context"
	"fmt"

	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const insertBatchSize = 100

// FragmentRepository persists retrieved fragments.
type FragmentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Add inserts one fragment.
func (s *FragmentRepository) Add(ctx context.Context, f *types.Fragment) error {
	m := toFragmentModel(f)
	if err := withContext(ctx, s.db).Create(&m).Error; err != nil {
		return fmt.Errorf("add fragment %s: %w", f.ID, err)
	}
	return nil
}

// AddAll inserts fs in batches inside one transaction.
func (s *FragmentRepository) AddAll(ctx context.Context, fs []types.Fragment) error {
	if len(fs) == 0 {
		return nil
	}
	models := make([]fragmentModel, len(fs))
	for i := range fs {
		models[i] = toFragmentModel(&fs[i])
	}
	err := withContext(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("add %d fragments: %w", len(fs), err)
	}
	s.logger.Debug("fragments stored", zap.Int("count", len(fs)))
	return nil
}

// FindByID loads one fragment.
func (s *FragmentRepository) FindByID(ctx context.Context, id string) (*types.Fragment, error) {
	var m fragmentModel
	if err := withContext(ctx, s.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err, "fragment", id)
	}
	f := m.toFragment()
	return &f, nil
}

// FindByIDs returns the fragments that exist, in the order of ids.
func (s *FragmentRepository) FindByIDs(ctx context.Context, ids []string) ([]types.Fragment, error) {
	if len(ids) == 0 {
		return []types.Fragment{}, nil
	}
	var models []fragmentModel
	if err := withContext(ctx, s.db).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find fragments: %w", err)
	}
	byID := make(map[string]fragmentModel, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	out := make([]types.Fragment, 0, len(models))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, m.toFragment())
			delete(byID, id)
		}
	}
	return out, nil
}

// FindByParentAndType pages a report's fragments of one type by llm score, best
// first. Unscored fragments rank as 0.
func (s *FragmentRepository) FindByParentAndType(ctx context.Context, reportID string, t types.FragmentType, skip, limit int) ([]types.Fragment, error) {
	q := withContext(ctx, s.db).
		Where("report_id = ? AND type = ?", reportID, string(t)).
		Order("COALESCE(llm_score, 0) DESC").
		Order("created_at ASC").
		Order("id ASC")
	return s.find(page(q, skip, limit))
}

// FindByReport pages all fragments of a report in insertion order.
func (s *FragmentRepository) FindByReport(ctx context.Context, reportID string, skip, limit int) ([]types.Fragment, error) {
	q := withContext(ctx, s.db).
		Where("report_id = ?", reportID).
		Order("created_at ASC").
		Order("id ASC")
	return s.find(page(q, skip, limit))
}

func (s *FragmentRepository) find(q *gorm.DB) ([]types.Fragment, error) {
	var models []fragmentModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find fragments: %w", err)
	}
	out := make([]types.Fragment, len(models))
	for i, m := range models {
		out[i] = m.toFragment()
	}
	return out, nil
}
