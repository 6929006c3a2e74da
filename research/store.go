package research

import (
	"context"

	"github.com/BaSui01/researchflow/types"
)

// Persistence collaborators. The store package provides gorm implementations;
// missing rows are reported as types.ErrNotFound errors.

// FragmentStore persists retrieved fragments.
type FragmentStore interface {
	Add(ctx context.Context, f *types.Fragment) error
	AddAll(ctx context.Context, fs []types.Fragment) error
	FindByID(ctx context.Context, id string) (*types.Fragment, error)
	// FindByIDs returns the fragments that exist, in the order of ids.
	FindByIDs(ctx context.Context, ids []string) ([]types.Fragment, error)
	// FindByParentAndType pages a report's fragments of one type by llm score, best first.
	FindByParentAndType(ctx context.Context, reportID string, t types.FragmentType, skip, limit int) ([]types.Fragment, error)
	FindByReport(ctx context.Context, reportID string, skip, limit int) ([]types.Fragment, error)
}

// ReportUpdater is the only store call synthesis needs.
type ReportUpdater interface {
	Update(ctx context.Context, r *types.Report) error
}

// ReportStore persists reports.
type ReportStore interface {
	ReportUpdater
	Create(ctx context.Context, r *types.Report) error
	FindByID(ctx context.Context, id string) (*types.Report, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	AddMessage(ctx context.Context, m *types.Message) error
	// FindBySessionID returns a session's messages by creation time ascending.
	FindBySessionID(ctx context.Context, sessionID string) ([]types.Message, error)
}

// TenantStore resolves the organization a report belongs to.
type TenantStore interface {
	FindByID(ctx context.Context, id string) (*types.Tenant, error)
}
