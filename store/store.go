package store

import (
	"context"
	"errors"
	"math"

	"github.com/BaSui01/researchflow/research"
	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	_ research.ReportStore   = (*ReportRepository)(nil)
	_ research.FragmentStore = (*FragmentRepository)(nil)
	_ research.MessageStore  = (*MessageRepository)(nil)
	_ research.TenantStore   = (*TenantRepository)(nil)
)

// Store bundles the gorm repositories the research service needs.
type Store struct {
	Reports   *ReportRepository
	Fragments *FragmentRepository
	Messages  *MessageRepository
	Tenants   *TenantRepository
}

// New creates every repository on db.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "store"))
	return &Store{
		Reports:   &ReportRepository{db: db, logger: logger},
		Fragments: &FragmentRepository{db: db, logger: logger},
		Messages:  &MessageRepository{db: db, logger: logger},
		Tenants:   &TenantRepository{db: db, logger: logger},
	}
}

// AutoMigrate creates the tables from the models. Deployed databases use the
// versioned SQL in internal/migration instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&tenantModel{}, &reportModel{}, &fragmentModel{}, &messageModel{})
}

// notFound 将 gorm 未找到错误映射为 types.ErrNotFound
func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewNotFoundError(kind, id)
	}
	return err
}

// page 应用分页；limit <= 0 表示不限
func page(q *gorm.DB, skip, limit int) *gorm.DB {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		if skip == 0 {
			return q
		}
		limit = math.MaxInt32
	}
	return q.Offset(skip).Limit(limit)
}

func withContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx)
}
