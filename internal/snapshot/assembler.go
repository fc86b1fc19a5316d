// Package snapshot materializes an estimate's section and item tree into a
// single payload.
//
// Assembly is linear in row count: every table is fetched once (satellites
// by the full item id set), nodes are built into flat arenas indexed by id,
// and a second pass links children by index. No query runs while linking.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/smeta/internal/domain"
)

type SectionSource interface {
	ListByEstimate(ctx context.Context, estimateID string) ([]*domain.Section, error)
}

type ItemSource interface {
	ListByEstimate(ctx context.Context, estimateID string) ([]*domain.LineItem, error)
}

type ResourceSource interface {
	ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemResource, error)
}

type TotalSource interface {
	ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemTotal, error)
}

type SubWorkSource interface {
	ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemSubWork, error)
}

type UnitSource interface {
	ListByIDs(ctx context.Context, ids []string) (map[string]domain.Unit, error)
}

type WorkTypeSource interface {
	ListByIDs(ctx context.Context, ids []string) (map[string]domain.WorkType, error)
}

// Sources bundles the bulk readers the assembler needs. The repository
// package's SQLite repos satisfy each of them.
type Sources struct {
	Sections  SectionSource
	Items     ItemSource
	Resources ResourceSource
	Totals    TotalSource
	SubWorks  SubWorkSource
	Units     UnitSource
	WorkTypes WorkTypeSource
}

type Assembler struct {
	src Sources
	now func() time.Time
}

func NewAssembler(src Sources) *Assembler {
	return &Assembler{src: src, now: time.Now}
}

// flat holds one estimate's rows, already grouped by item id.
type flat struct {
	sections  []*domain.Section
	items     []*domain.LineItem
	resources map[string][]domain.ItemResource
	totals    map[string][]domain.ItemTotal
	subWorks  map[string][]domain.ItemSubWork
	units     map[string]domain.Unit
	workTypes map[string]domain.WorkType
}

// Assemble loads every row of the estimate and returns the linked tree.
func (a *Assembler) Assemble(ctx context.Context, estimateID string) (*Payload, error) {
	rows, err := a.load(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	p := build(rows)
	p.EstimateID = estimateID
	p.GeneratedAt = a.now().UTC()
	return p, nil
}

func (a *Assembler) load(ctx context.Context, estimateID string) (*flat, error) {
	var (
		f   flat
		err error
	)
	if f.sections, err = a.src.Sections.ListByEstimate(ctx, estimateID); err != nil {
		return nil, fmt.Errorf("loading sections: %w", err)
	}
	if f.items, err = a.src.Items.ListByEstimate(ctx, estimateID); err != nil {
		return nil, fmt.Errorf("loading line items: %w", err)
	}

	itemIDs := make([]string, len(f.items))
	var unitIDs, workTypeIDs []string
	seenUnit := make(map[string]bool)
	seenWorkType := make(map[string]bool)
	for i, item := range f.items {
		itemIDs[i] = item.ID
		if item.UnitID != nil && !seenUnit[*item.UnitID] {
			seenUnit[*item.UnitID] = true
			unitIDs = append(unitIDs, *item.UnitID)
		}
		if item.WorkTypeID != nil && !seenWorkType[*item.WorkTypeID] {
			seenWorkType[*item.WorkTypeID] = true
			workTypeIDs = append(workTypeIDs, *item.WorkTypeID)
		}
	}

	if f.resources, err = a.src.Resources.ListByItemIDs(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("loading item resources: %w", err)
	}
	if f.totals, err = a.src.Totals.ListByItemIDs(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("loading item totals: %w", err)
	}
	if f.subWorks, err = a.src.SubWorks.ListByItemIDs(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("loading item sub-works: %w", err)
	}
	if f.units, err = a.src.Units.ListByIDs(ctx, unitIDs); err != nil {
		return nil, fmt.Errorf("loading units: %w", err)
	}
	if f.workTypes, err = a.src.WorkTypes.ListByIDs(ctx, workTypeIDs); err != nil {
		return nil, fmt.Errorf("loading work types: %w", err)
	}
	return &f, nil
}

// build links flat rows into a payload. Input rows arrive ordered by
// sort_order, and linking preserves that order within every child list.
//
// An item whose parent item is missing becomes a root of its section; an item
// whose section is missing joins the sectionless bucket; a section whose
// parent is missing becomes top-level.
func build(f *flat) *Payload {
	// Item arena.
	items := make([]ItemNode, len(f.items))
	itemIdx := make(map[string]int, len(f.items))
	for i, it := range f.items {
		items[i] = itemNode(it, f)
		itemIdx[it.ID] = i
	}

	sectionIdx := make(map[string]int, len(f.sections))
	for i, s := range f.sections {
		sectionIdx[s.ID] = i
	}

	itemKids := make([][]int, len(items))
	sectionItems := make([][]int, len(f.sections))
	var sectionless []int
	for i, it := range f.items {
		if it.ParentItemID != nil {
			if p, ok := itemIdx[*it.ParentItemID]; ok && p != i {
				itemKids[p] = append(itemKids[p], i)
				continue
			}
		}
		if it.SectionID != nil {
			if s, ok := sectionIdx[*it.SectionID]; ok {
				sectionItems[s] = append(sectionItems[s], i)
				continue
			}
		}
		sectionless = append(sectionless, i)
	}

	sectionKids := make([][]int, len(f.sections))
	var roots []int
	for i, s := range f.sections {
		if s.ParentSectionID != nil {
			if p, ok := sectionIdx[*s.ParentSectionID]; ok && p != i {
				sectionKids[p] = append(sectionKids[p], i)
				continue
			}
		}
		roots = append(roots, i)
	}

	var emitItems func(idx []int) []ItemNode
	emitItems = func(idx []int) []ItemNode {
		out := make([]ItemNode, len(idx))
		for n, i := range idx {
			node := items[i]
			node.Children = emitItems(itemKids[i])
			out[n] = node
		}
		return out
	}
	var emitSections func(idx []int) []SectionNode
	emitSections = func(idx []int) []SectionNode {
		out := make([]SectionNode, len(idx))
		for n, i := range idx {
			s := f.sections[i]
			out[n] = SectionNode{
				ID:        s.ID,
				Number:    s.SectionNumber,
				Name:      s.Name,
				SortOrder: s.SortOrder,
				Items:     emitItems(sectionItems[i]),
				Children:  emitSections(sectionKids[i]),
			}
		}
		return out
	}

	return &Payload{
		Version:             FormatVersion,
		Sections:            emitSections(roots),
		ItemsWithoutSection: emitItems(sectionless),
	}
}

func itemNode(it *domain.LineItem, f *flat) ItemNode {
	node := ItemNode{
		ID:             it.ID,
		PositionNumber: it.PositionNumber,
		Code:           it.Code,
		Name:           it.Name,
		Quantity:       it.Quantity,
		Price:          it.Price,
		Classification: Classification{
			Label:      it.ClassificationLabel,
			Confidence: it.ClassificationConfidence,
			Source:     it.ClassificationSource,
		},
		Resources: make([]Resource, 0, len(f.resources[it.ID])),
		Totals:    make([]Total, 0, len(f.totals[it.ID])),
		SubWorks:  make([]SubWork, 0, len(f.subWorks[it.ID])),
	}
	if it.UnitID != nil {
		node.Unit = f.units[*it.UnitID].Symbol
	}
	if it.WorkTypeID != nil {
		node.WorkType = f.workTypes[*it.WorkTypeID].Name
	}
	for _, r := range f.resources[it.ID] {
		node.Resources = append(node.Resources, Resource{Kind: r.Kind, Code: r.Code, Name: r.Name, Unit: r.Unit, Quantity: r.Quantity})
	}
	for _, t := range f.totals[it.ID] {
		node.Totals = append(node.Totals, Total{Name: t.Name, Amount: t.Amount})
	}
	for _, w := range f.subWorks[it.ID] {
		node.SubWorks = append(node.SubWorks, SubWork{Code: w.Code, Name: w.Name, Quantity: w.Quantity})
	}
	return node
}
