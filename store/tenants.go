package store

import (
	"context"
	"fmt"

	"github.com/BaSui01/researchflow/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TenantRepository resolves organizations.
type TenantRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// FindByID loads one tenant.
func (s *TenantRepository) FindByID(ctx context.Context, id string) (*types.Tenant, error) {
	var m tenantModel
	if err := withContext(ctx, s.db).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err, "tenant", id)
	}
	return m.toTenant(), nil
}

// Upsert creates or replaces a tenant, used when seeding from configuration.
func (s *TenantRepository) Upsert(ctx context.Context, t types.Tenant) error {
	m := tenantModel{
		ID:            t.ID,
		Name:          t.Name,
		OrgInfo:       t.OrgInfo,
		SearchService: t.SearchService,
		SearchIndex:   t.SearchIndex,
	}
	err := withContext(ctx, s.db).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert tenant %s: %w", t.ID, err)
	}
	s.logger.Info("tenant stored", zap.String("tenant_id", t.ID))
	return nil
}
