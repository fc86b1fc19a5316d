package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/smeta/internal/classify"
	"github.com/alexanderramin/smeta/internal/domain"
)

// Converted holds domain objects ready for persistence. Sections and Items
// keep document order, so every parent precedes its children. Section
// numbers and sort orders are left for the numbering engine.
type Converted struct {
	Sections  []*domain.Section
	Items     []*domain.LineItem
	Resources []*domain.ItemResource
	Totals    []*domain.ItemTotal
	SubWorks  []*domain.ItemSubWork

	// UnitSymbols and WorkTypeNames map item id to the raw reference text,
	// resolved to ids at persistence time.
	UnitSymbols   map[string]string
	WorkTypeNames map[string]string
}

// Convert assigns ids to a validated document. Call ValidateDocument first;
// Convert fails on the first dangling reference it meets.
func Convert(doc *Document, estimateID string) (*Converted, error) {
	now := time.Now().UTC()
	out := &Converted{
		Sections:      make([]*domain.Section, 0, len(doc.Sections)),
		Items:         make([]*domain.LineItem, 0, len(doc.Items)),
		UnitSymbols:   make(map[string]string),
		WorkTypeNames: make(map[string]string),
	}

	refMap := make(map[string]string) // section ref -> UUID
	for _, s := range doc.Sections {
		realID := uuid.New().String()
		refMap[s.Ref] = realID

		var parentID *string
		if s.ParentRef != nil {
			pid, ok := refMap[*s.ParentRef]
			if !ok {
				return nil, fmt.Errorf("parent_ref %q not found for section %q", *s.ParentRef, s.Ref)
			}
			parentID = &pid
		}
		out.Sections = append(out.Sections, &domain.Section{
			ID:              realID,
			EstimateID:      estimateID,
			ParentSectionID: parentID,
			Name:            s.Name,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	itemRefs := make(map[string]string) // item ref -> UUID
	scopeSize := make(map[string]int)   // sibling count per (section, parent item)
	for _, it := range doc.Items {
		realID := uuid.New().String()
		itemRefs[it.Ref] = realID

		item := &domain.LineItem{
			ID:             realID,
			EstimateID:     estimateID,
			PositionNumber: it.Number,
			Code:           it.Code,
			Name:           it.Name,
			Quantity:       it.Quantity,
			Price:          it.Price,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		item.ApplyClassification(domain.Unclassified())

		if it.SectionRef != nil {
			sid, ok := refMap[*it.SectionRef]
			if !ok {
				return nil, fmt.Errorf("section_ref %q not found for item %q", *it.SectionRef, it.Ref)
			}
			item.SectionID = &sid
		}
		if it.ParentRef != nil {
			pid, ok := itemRefs[*it.ParentRef]
			if !ok {
				return nil, fmt.Errorf("parent_ref %q not found for item %q", *it.ParentRef, it.Ref)
			}
			item.ParentItemID = &pid
		}
		scope := domain.CoalesceStr(deref(item.ParentItemID), deref(item.SectionID))
		item.SortOrder = scopeSize[scope]
		scopeSize[scope]++

		if it.Unit != "" {
			out.UnitSymbols[realID] = it.Unit
		}
		if it.WorkType != "" {
			out.WorkTypeNames[realID] = it.WorkType
		}
		for _, r := range it.Resources {
			out.Resources = append(out.Resources, &domain.ItemResource{
				ID: uuid.New().String(), ItemID: realID, Kind: domain.ResourceKind(r.Kind),
				Code: r.Code, Name: r.Name, Unit: r.Unit, Quantity: r.Quantity,
			})
		}
		for _, w := range it.SubWorks {
			out.SubWorks = append(out.SubWorks, &domain.ItemSubWork{
				ID: uuid.New().String(), ItemID: realID, Code: w.Code, Name: w.Name, Quantity: w.Quantity,
			})
		}
		if it.Total != nil {
			out.Totals = append(out.Totals, &domain.ItemTotal{
				ID: uuid.New().String(), ItemID: realID, Name: "total", Amount: *it.Total,
			})
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// ClassificationRows returns one classifier row per item, aligned with Items.
func (c *Converted) ClassificationRows() []classify.Row {
	rows := make([]classify.Row, len(c.Items))
	for i, it := range c.Items {
		rows[i] = classify.Row{Code: it.Code, Name: it.Name, Unit: c.UnitSymbols[it.ID], Price: it.Price}
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
