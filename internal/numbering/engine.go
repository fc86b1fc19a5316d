// Package numbering keeps section sort orders dense and section numbers
// consistent with tree shape.
//
// The Engine exposes lifecycle hooks around every section mutation:
// Creating/Created wrap an insert, Updating/Updated wrap a parent or order
// change, and Deleted follows a delete. The hooks run against a tx-scoped
// store so a renumbering pass commits or rolls back with its mutation.
package numbering

import (
	"context"
	"fmt"

	"github.com/alexanderramin/smeta/internal/domain"
)

// maxDepth bounds ancestor walks so corrupt parent links cannot loop forever.
const maxDepth = 10000

// Store is the section persistence the engine reads and renumbers.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.Section, error)
	ListByParent(ctx context.Context, estimateID string, parentID *string) ([]*domain.Section, error)
	UpdateNumbering(ctx context.Context, id string, sortOrder int, number string) error
}

type Engine struct {
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// Plan carries what a pre-mutation hook decided for its post-mutation hook.
type Plan struct {
	renumber  bool
	oldParent *string
	moved     bool
}

// Renumber reports whether the post-mutation hook will rewrite the scope.
func (p Plan) Renumber() bool { return p.renumber }

// Creating prepares s for insertion. A nil order appends to the scope.
// An explicit order equal to the append position keeps sibling numbers;
// any other order (a collision with an existing sibling, or a gap past the
// end) schedules a full scope renumber in Created. The number is always
// derived from the position; a caller-supplied number is overwritten.
func (e *Engine) Creating(ctx context.Context, s *domain.Section, order *int) (Plan, error) {
	if order != nil && *order < 0 {
		return Plan{}, domain.ErrInvalidSortOrder
	}
	parentNumber, err := e.parentNumber(ctx, s.EstimateID, s.ParentSectionID)
	if err != nil {
		return Plan{}, err
	}
	siblings, err := e.store.ListByParent(ctx, s.EstimateID, s.ParentSectionID)
	if err != nil {
		return Plan{}, fmt.Errorf("listing sibling sections: %w", err)
	}

	next := maxSortOrder(siblings) + 1
	dense := next == len(siblings)

	s.SortOrder = next
	if order != nil {
		s.SortOrder = *order
	}
	plan := Plan{renumber: !dense || s.SortOrder != next}
	if plan.renumber {
		// Provisional; Created rewrites it once the row is in the scope.
		s.SectionNumber = domain.ChildNumber(parentNumber, min(s.SortOrder, len(siblings))+1)
	} else {
		s.SectionNumber = domain.ChildNumber(parentNumber, len(siblings)+1)
	}
	return plan, nil
}

// Created finishes an insert planned by Creating.
func (e *Engine) Created(ctx context.Context, s *domain.Section, plan Plan) error {
	if !plan.renumber {
		return nil
	}
	return e.renumberScope(ctx, s.EstimateID, s.ParentSectionID, &pin{id: s.ID, order: s.SortOrder})
}

// Updating validates a change from before to after. Only parent and order
// changes are structural; anything else returns a zero Plan. Moving a
// section under itself or a descendant fails with domain.ErrSectionCycle.
func (e *Engine) Updating(ctx context.Context, before, after *domain.Section) (Plan, error) {
	moved := !domain.SameParentID(before.ParentSectionID, after.ParentSectionID)
	reordered := before.SortOrder != after.SortOrder
	if !moved && !reordered {
		return Plan{}, nil
	}
	if after.SortOrder < 0 {
		return Plan{}, domain.ErrInvalidSortOrder
	}
	if moved && after.ParentSectionID != nil {
		if err := e.checkNewParent(ctx, after); err != nil {
			return Plan{}, err
		}
	}
	return Plan{renumber: true, oldParent: before.ParentSectionID, moved: moved}, nil
}

// Updated renumbers the scopes touched by a structural update: the old
// scope first when the parent changed, then the scope now holding the
// section, with the section pinned to its requested position. Descendant
// scopes follow whenever an ancestor's number changes.
func (e *Engine) Updated(ctx context.Context, after *domain.Section, plan Plan) error {
	if !plan.renumber {
		return nil
	}
	if plan.moved {
		if err := e.renumberScope(ctx, after.EstimateID, plan.oldParent, nil); err != nil {
			return err
		}
	}
	return e.renumberScope(ctx, after.EstimateID, after.ParentSectionID, &pin{id: after.ID, order: after.SortOrder})
}

// Deleted closes the gap left by a removed section in its former scope.
func (e *Engine) Deleted(ctx context.Context, s *domain.Section) error {
	return e.renumberScope(ctx, s.EstimateID, s.ParentSectionID, nil)
}

// RenumberAll rewrites every scope of an estimate from the roots down,
// keeping the current sibling order.
func (e *Engine) RenumberAll(ctx context.Context, estimateID string) error {
	return e.rewrite(ctx, estimateID, nil, "", nil, true)
}

func (e *Engine) checkNewParent(ctx context.Context, s *domain.Section) error {
	cur, err := e.store.GetByID(ctx, *s.ParentSectionID)
	if err != nil {
		return fmt.Errorf("loading new parent section: %w", err)
	}
	if cur.EstimateID != s.EstimateID {
		return domain.ErrCrossEstimateMove
	}
	for depth := 0; ; depth++ {
		if cur.ID == s.ID {
			return domain.ErrSectionCycle
		}
		if cur.ParentSectionID == nil {
			return nil
		}
		if depth >= maxDepth {
			return domain.ErrSectionCycle
		}
		if cur, err = e.store.GetByID(ctx, *cur.ParentSectionID); err != nil {
			return fmt.Errorf("walking section ancestors: %w", err)
		}
	}
}

func (e *Engine) parentNumber(ctx context.Context, estimateID string, parentID *string) (string, error) {
	if parentID == nil {
		return "", nil
	}
	parent, err := e.store.GetByID(ctx, *parentID)
	if err != nil {
		return "", fmt.Errorf("loading parent section: %w", err)
	}
	if parent.EstimateID != estimateID {
		return "", domain.ErrCrossEstimateMove
	}
	return parent.SectionNumber, nil
}

// pin fixes one section at a requested position while its siblings close up
// around it. Without a pin, siblings keep their stored order.
type pin struct {
	id    string
	order int
}

func (e *Engine) renumberScope(ctx context.Context, estimateID string, parentID *string, p *pin) error {
	parentNumber, err := e.parentNumber(ctx, estimateID, parentID)
	if err != nil {
		return err
	}
	return e.rewrite(ctx, estimateID, parentID, parentNumber, p, false)
}

// rewrite assigns dense orders and derived numbers to one scope, then
// recurses into child scopes whose parent number changed (or into every
// child scope when deep is set).
func (e *Engine) rewrite(ctx context.Context, estimateID string, parentID *string, parentNumber string, p *pin, deep bool) error {
	siblings, err := e.store.ListByParent(ctx, estimateID, parentID)
	if err != nil {
		return fmt.Errorf("listing sections to renumber: %w", err)
	}
	ordered := applyPin(siblings, p)

	for i, s := range ordered {
		number := domain.ChildNumber(parentNumber, i+1)
		numberChanged := s.SectionNumber != number
		if numberChanged || s.SortOrder != i {
			if err := e.store.UpdateNumbering(ctx, s.ID, i, number); err != nil {
				return fmt.Errorf("renumbering section %s: %w", s.ID, err)
			}
		}
		if numberChanged || deep {
			id := s.ID
			if err := e.rewrite(ctx, estimateID, &id, number, nil, deep); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyPin(siblings []*domain.Section, p *pin) []*domain.Section {
	if p == nil {
		return siblings
	}
	var pinned *domain.Section
	rest := make([]*domain.Section, 0, len(siblings))
	for _, s := range siblings {
		if s.ID == p.id {
			pinned = s
			continue
		}
		rest = append(rest, s)
	}
	if pinned == nil {
		return rest
	}
	at := min(max(p.order, 0), len(rest))
	out := make([]*domain.Section, 0, len(siblings))
	out = append(out, rest[:at]...)
	out = append(out, pinned)
	return append(out, rest[at:]...)
}

func maxSortOrder(sections []*domain.Section) int {
	m := -1
	for _, s := range sections {
		if s.SortOrder > m {
			m = s.SortOrder
		}
	}
	return m
}
