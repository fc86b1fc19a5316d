package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/smeta/internal/domain"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

type EstimateRepo interface {
	Create(ctx context.Context, e *domain.Estimate) error
	GetByID(ctx context.Context, id string) (*domain.Estimate, error)
	List(ctx context.Context) ([]*domain.Estimate, error)
	Delete(ctx context.Context, id string) error
	// SwapSnapshotPointer replaces the snapshot pointer only while it still
	// equals expectedPath. Returns false when another writer got there first.
	SwapSnapshotPointer(ctx context.Context, id, expectedPath, newPath string, at time.Time) (bool, error)
}

type SectionRepo interface {
	Create(ctx context.Context, s *domain.Section) error
	GetByID(ctx context.Context, id string) (*domain.Section, error)
	ListByEstimate(ctx context.Context, estimateID string) ([]*domain.Section, error)
	// ListByParent returns one sibling scope ordered by sort_order.
	// A nil parentID selects the estimate's top-level sections.
	ListByParent(ctx context.Context, estimateID string, parentID *string) ([]*domain.Section, error)
	Update(ctx context.Context, s *domain.Section) error
	UpdateNumbering(ctx context.Context, id string, sortOrder int, number string) error
	Delete(ctx context.Context, id string) error
}

type LineItemRepo interface {
	Create(ctx context.Context, item *domain.LineItem) error
	GetByID(ctx context.Context, id string) (*domain.LineItem, error)
	ListByEstimate(ctx context.Context, estimateID string) ([]*domain.LineItem, error)
	ListUnclassified(ctx context.Context, estimateID string) ([]*domain.LineItem, error)
	NextSortOrder(ctx context.Context, estimateID string, sectionID, parentItemID *string) (int, error)
	Update(ctx context.Context, item *domain.LineItem) error
	Delete(ctx context.Context, id string) error
}

type ResourceRepo interface {
	Create(ctx context.Context, r *domain.ItemResource) error
	ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemResource, error)
	Delete(ctx context.Context, id string) error
}

type TotalRepo interface {
	Create(ctx context.Context, t *domain.ItemTotal) error
	ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemTotal, error)
	Delete(ctx context.Context, id string) error
}

type SubWorkRepo interface {
	Create(ctx context.Context, w *domain.ItemSubWork) error
	ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemSubWork, error)
	Delete(ctx context.Context, id string) error
}

type UnitRepo interface {
	GetOrCreate(ctx context.Context, symbol string) (*domain.Unit, error)
	ListByIDs(ctx context.Context, ids []string) (map[string]domain.Unit, error)
}

type WorkTypeRepo interface {
	GetOrCreate(ctx context.Context, name string) (*domain.WorkType, error)
	ListByIDs(ctx context.Context, ids []string) (map[string]domain.WorkType, error)
}

type NormativeRepo interface {
	Upsert(ctx context.Context, entries []domain.NormativeEntry) error
	// BulkLookupByCode resolves every known code in one round trip per
	// id chunk. Unknown codes are simply absent from the result.
	BulkLookupByCode(ctx context.Context, codes []string) ([]domain.NormativeEntry, error)
}

type ImportSessionRepo interface {
	Create(ctx context.Context, s *domain.ImportSession) error
	GetByID(ctx context.Context, id string) (*domain.ImportSession, error)
	GetStatus(ctx context.Context, id string) (domain.ImportStatus, error)
	Update(ctx context.Context, s *domain.ImportSession) error
	// MarkFailed moves a non-terminal session to failed. Returns false when
	// the session had already finished.
	MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error)
}
