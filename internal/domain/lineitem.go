package domain

import "time"

type LineItem struct {
	ID             string
	EstimateID     string
	SectionID      *string
	ParentItemID   *string
	PositionNumber string
	SortOrder      int

	Code     string
	Name     string
	Quantity float64
	Price    *float64

	UnitID     *string
	WorkTypeID *string

	ClassificationLabel      Label
	ClassificationConfidence float64
	ClassificationSource     Source

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyClassification copies a classification result onto the item.
func (i *LineItem) ApplyClassification(r ClassificationResult) {
	i.ClassificationLabel = r.Label
	i.ClassificationConfidence = r.Confidence
	i.ClassificationSource = r.Source
}

// NeedsReview reports whether the item left the classification pipeline
// without any strategy resolving it.
func (i *LineItem) NeedsReview() bool {
	return i.ClassificationSource == SourceUnclassified
}

// ItemResource is a resource row (labor, material, machine) attached to a line item.
type ItemResource struct {
	ID       string
	ItemID   string
	Kind     ResourceKind
	Code     string
	Name     string
	Unit     string
	Quantity float64
}

// ItemTotal is a named computed amount attached to a line item.
type ItemTotal struct {
	ID     string
	ItemID string
	Name   string
	Amount float64
}

// ItemSubWork is a secondary work entry bundled into a composite line item.
type ItemSubWork struct {
	ID       string
	ItemID   string
	Code     string
	Name     string
	Quantity float64
}

type Unit struct {
	ID     string
	Symbol string
}

type WorkType struct {
	ID   string
	Name string
}

// NormativeEntry is a row of the normative reference table.
type NormativeEntry struct {
	Code string
	Type string
	Name string
}
