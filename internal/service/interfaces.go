package service

import (
	"context"
	"errors"
	"io"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

var (
	// ErrNoSnapshot is returned when an estimate has never been snapshotted.
	ErrNoSnapshot = errors.New("estimate has no snapshot yet")

	// ErrImportFinished rejects cancelling a session that already ended.
	ErrImportFinished = errors.New("import session already finished")

	// ErrSnapshotRace is returned when the pointer moved under a generator.
	ErrSnapshotRace = errors.New("snapshot pointer changed concurrently")
)

type EstimateService interface {
	Create(ctx context.Context, organizationID, name string) (*domain.Estimate, error)
	GetByID(ctx context.Context, id string) (*domain.Estimate, error)
	List(ctx context.Context) ([]*domain.Estimate, error)
	Delete(ctx context.Context, id string) error
}

// CreateSectionInput describes a new section. A nil Order appends.
type CreateSectionInput struct {
	EstimateID string
	ParentID   *string
	Name       string
	Order      *int
}

// CreateLineItemInput describes a new line item. Items are classified on
// creation the same way imported rows are.
type CreateLineItemInput struct {
	EstimateID   string
	SectionID    *string
	ParentItemID *string
	Number       string
	Code         string
	Name         string
	Unit         string
	Quantity     float64
	Price        *float64
}

type StructureService interface {
	CreateSection(ctx context.Context, in CreateSectionInput) (*domain.Section, error)
	// MoveSection changes parent and/or position. A nil parent moves to the top level.
	MoveSection(ctx context.Context, id string, parentID *string, order int) (*domain.Section, error)
	RenameSection(ctx context.Context, id, name string) error
	DeleteSection(ctx context.Context, id string) error
	ListSections(ctx context.Context, estimateID string) ([]*domain.Section, error)
	CreateLineItem(ctx context.Context, in CreateLineItemInput) (*domain.LineItem, error)
	RenumberAll(ctx context.Context, estimateID string) error
}

type ImportService interface {
	// Start records a pending session and schedules Run in the background.
	Start(ctx context.Context, estimateID, path string) (*domain.ImportSession, error)
	Run(ctx context.Context, sessionID string) (*domain.ImportSession, error)
	Cancel(ctx context.Context, sessionID string) error
	Status(ctx context.Context, sessionID string) (*domain.ImportSession, error)
	ListUnclassified(ctx context.Context, estimateID string) ([]*domain.LineItem, error)
	// ResolveItem records a reviewer's label for an item.
	ResolveItem(ctx context.Context, itemID string, label domain.Label) (*domain.LineItem, error)
}

type SnapshotService interface {
	Generate(ctx context.Context, estimateID string) (string, error)
	Load(ctx context.Context, estimateID string) (*snapshot.Payload, error)
	Enqueue(estimateID string)
}

type NormativeService interface {
	// LoadCSV upserts code,type[,name] rows and returns how many were read.
	LoadCSV(ctx context.Context, r io.Reader) (int, error)
}

// SnapshotScheduler is the fire-and-forget hook mutations call after commit.
type SnapshotScheduler interface {
	Enqueue(estimateID string)
}
