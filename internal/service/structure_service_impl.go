package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/smeta/internal/classify"
	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/numbering"
	"github.com/alexanderramin/smeta/internal/repository"
)

// structureService runs every section mutation and its renumbering pass in
// one transaction, then schedules a snapshot once the transaction commits.
type structureService struct {
	sections  repository.SectionRepo
	uow       db.UnitOfWork
	pipeline  *classify.Pipeline
	snapshots SnapshotScheduler
}

// NewStructureService wires the structure flow. pipeline may be nil, in
// which case new items start unclassified.
func NewStructureService(sections repository.SectionRepo, uow db.UnitOfWork, pipeline *classify.Pipeline, snapshots SnapshotScheduler) StructureService {
	return &structureService{sections: sections, uow: uow, pipeline: pipeline, snapshots: snapshots}
}

func (s *structureService) scheduleSnapshot(ctx context.Context, estimateID string) {
	if s.snapshots == nil {
		return
	}
	db.AfterCommit(ctx, func() { s.snapshots.Enqueue(estimateID) })
}

func (s *structureService) CreateSection(ctx context.Context, in CreateSectionInput) (*domain.Section, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("section name is required")
	}
	now := time.Now().UTC()
	sec := &domain.Section{
		ID:              uuid.New().String(),
		EstimateID:      in.EstimateID,
		ParentSectionID: in.ParentID,
		Name:            name,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteEstimateRepo(tx).GetByID(ctx, in.EstimateID); err != nil {
			return err
		}
		txSections := repository.NewSQLiteSectionRepo(tx)
		engine := numbering.New(txSections)

		plan, err := engine.Creating(ctx, sec, in.Order)
		if err != nil {
			return err
		}
		if err := txSections.Create(ctx, sec); err != nil {
			return err
		}
		if err := engine.Created(ctx, sec, plan); err != nil {
			return err
		}
		// Reload: a renumber pass may have moved the section's final position.
		fresh, err := txSections.GetByID(ctx, sec.ID)
		if err != nil {
			return err
		}
		*sec = *fresh
		s.scheduleSnapshot(ctx, sec.EstimateID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *structureService) MoveSection(ctx context.Context, id string, parentID *string, order int) (*domain.Section, error) {
	var moved *domain.Section
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSections := repository.NewSQLiteSectionRepo(tx)
		engine := numbering.New(txSections)

		before, err := txSections.GetByID(ctx, id)
		if err != nil {
			return err
		}
		after := *before
		after.ParentSectionID = parentID
		after.SortOrder = order
		after.UpdatedAt = time.Now().UTC()

		plan, err := engine.Updating(ctx, before, &after)
		if err != nil {
			return err
		}
		if !plan.Renumber() {
			moved = before
			return nil
		}
		if err := txSections.Update(ctx, &after); err != nil {
			return err
		}
		if err := engine.Updated(ctx, &after, plan); err != nil {
			return err
		}
		if moved, err = txSections.GetByID(ctx, id); err != nil {
			return err
		}
		s.scheduleSnapshot(ctx, after.EstimateID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// RenameSection is not structural: no scope is renumbered.
func (s *structureService) RenameSection(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("section name is required")
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSections := repository.NewSQLiteSectionRepo(tx)
		sec, err := txSections.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if sec.Name == name {
			return nil
		}
		sec.Name = name
		sec.UpdatedAt = time.Now().UTC()
		if err := txSections.Update(ctx, sec); err != nil {
			return err
		}
		s.scheduleSnapshot(ctx, sec.EstimateID)
		return nil
	})
}

func (s *structureService) DeleteSection(ctx context.Context, id string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSections := repository.NewSQLiteSectionRepo(tx)
		sec, err := txSections.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := txSections.Delete(ctx, id); err != nil {
			return err
		}
		if err := numbering.New(txSections).Deleted(ctx, sec); err != nil {
			return err
		}
		s.scheduleSnapshot(ctx, sec.EstimateID)
		return nil
	})
}

func (s *structureService) ListSections(ctx context.Context, estimateID string) ([]*domain.Section, error) {
	return s.sections.ListByEstimate(ctx, estimateID)
}

func (s *structureService) RenumberAll(ctx context.Context, estimateID string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := numbering.New(repository.NewSQLiteSectionRepo(tx)).RenumberAll(ctx, estimateID); err != nil {
			return err
		}
		s.scheduleSnapshot(ctx, estimateID)
		return nil
	})
}

func (s *structureService) CreateLineItem(ctx context.Context, in CreateLineItemInput) (*domain.LineItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("line item name is required")
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("quantity must be >= 0, got %g", in.Quantity)
	}
	now := time.Now().UTC()
	item := &domain.LineItem{
		ID:             uuid.New().String(),
		EstimateID:     in.EstimateID,
		SectionID:      in.SectionID,
		ParentItemID:   in.ParentItemID,
		PositionNumber: strings.TrimSpace(in.Number),
		Code:           strings.TrimSpace(in.Code),
		Name:           name,
		Quantity:       in.Quantity,
		Price:          in.Price,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	item.ApplyClassification(domain.Unclassified())
	if s.pipeline != nil {
		results := s.pipeline.ClassifyBatch(ctx, []classify.Row{{Code: item.Code, Name: item.Name, Unit: in.Unit, Price: item.Price}})
		item.ApplyClassification(results[0])
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteEstimateRepo(tx).GetByID(ctx, in.EstimateID); err != nil {
			return err
		}
		if err := checkItemParents(ctx, tx, item); err != nil {
			return err
		}
		txItems := repository.NewSQLiteLineItemRepo(tx)
		next, err := txItems.NextSortOrder(ctx, item.EstimateID, item.SectionID, item.ParentItemID)
		if err != nil {
			return err
		}
		item.SortOrder = next
		if unit := strings.TrimSpace(in.Unit); unit != "" {
			u, err := repository.NewSQLiteUnitRepo(tx).GetOrCreate(ctx, unit)
			if err != nil {
				return err
			}
			item.UnitID = &u.ID
		}
		if err := txItems.Create(ctx, item); err != nil {
			return err
		}
		s.scheduleSnapshot(ctx, item.EstimateID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// checkItemParents rejects a section or parent item from another estimate.
// A child item inherits its parent's section.
func checkItemParents(ctx context.Context, tx db.DBTX, item *domain.LineItem) error {
	if item.SectionID != nil {
		sec, err := repository.NewSQLiteSectionRepo(tx).GetByID(ctx, *item.SectionID)
		if err != nil {
			return fmt.Errorf("loading item section: %w", err)
		}
		if sec.EstimateID != item.EstimateID {
			return domain.ErrCrossEstimateMove
		}
	}
	if item.ParentItemID != nil {
		parent, err := repository.NewSQLiteLineItemRepo(tx).GetByID(ctx, *item.ParentItemID)
		if err != nil {
			return fmt.Errorf("loading parent item: %w", err)
		}
		if parent.EstimateID != item.EstimateID {
			return domain.ErrCrossEstimateMove
		}
		item.SectionID = parent.SectionID
	}
	return nil
}
