package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/smeta/internal/domain"
)

// Estimate options
type EstimateOption func(*domain.Estimate)

func WithOrganization(orgID string) EstimateOption {
	return func(e *domain.Estimate) {
		e.OrganizationID = orgID
	}
}

func WithSnapshotPath(path string) EstimateOption {
	return func(e *domain.Estimate) {
		e.SnapshotPath = path
	}
}

func NewTestEstimate(name string, opts ...EstimateOption) *domain.Estimate {
	now := time.Now().UTC()
	e := &domain.Estimate{
		ID:             uuid.New().String(),
		OrganizationID: "org-test",
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Section options
type SectionOption func(*domain.Section)

func WithParentSection(id string) SectionOption {
	return func(s *domain.Section) {
		s.ParentSectionID = &id
	}
}

func WithSortOrder(order int) SectionOption {
	return func(s *domain.Section) {
		s.SortOrder = order
	}
}

func WithSectionNumber(number string) SectionOption {
	return func(s *domain.Section) {
		s.SectionNumber = number
	}
}

func NewTestSection(estimateID, name string, opts ...SectionOption) *domain.Section {
	now := time.Now().UTC()
	s := &domain.Section{
		ID:         uuid.New().String(),
		EstimateID: estimateID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LineItem options
type LineItemOption func(*domain.LineItem)

func InSection(id string) LineItemOption {
	return func(i *domain.LineItem) {
		i.SectionID = &id
	}
}

func WithParentItem(id string) LineItemOption {
	return func(i *domain.LineItem) {
		i.ParentItemID = &id
	}
}

func WithCode(code string) LineItemOption {
	return func(i *domain.LineItem) {
		i.Code = code
	}
}

func WithItemSortOrder(order int) LineItemOption {
	return func(i *domain.LineItem) {
		i.SortOrder = order
	}
}

func WithPrice(p float64) LineItemOption {
	return func(i *domain.LineItem) {
		i.Price = &p
	}
}

func WithUnit(id string) LineItemOption {
	return func(i *domain.LineItem) {
		i.UnitID = &id
	}
}

func WithClassification(r domain.ClassificationResult) LineItemOption {
	return func(i *domain.LineItem) {
		i.ApplyClassification(r)
	}
}

// NewTestLineItem returns an unclassified item with quantity 1.
func NewTestLineItem(estimateID, name string, opts ...LineItemOption) *domain.LineItem {
	now := time.Now().UTC()
	i := &domain.LineItem{
		ID:         uuid.New().String(),
		EstimateID: estimateID,
		Name:       name,
		Quantity:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	i.ApplyClassification(domain.Unclassified())
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func NewTestImportSession(estimateID, fileName string) *domain.ImportSession {
	now := time.Now().UTC()
	return &domain.ImportSession{
		ID:         uuid.New().String(),
		EstimateID: estimateID,
		FileName:   fileName,
		Status:     domain.ImportPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
