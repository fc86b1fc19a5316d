package domain

import (
	"strconv"
	"time"
)

type Section struct {
	ID              string
	EstimateID      string
	ParentSectionID *string
	SectionNumber   string
	SortOrder       int
	Name            string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsRoot reports whether the section sits at the top level of its estimate.
func (s *Section) IsRoot() bool {
	return s.ParentSectionID == nil
}

// SameParent reports whether s and other share a parent scope.
func (s *Section) SameParent(other *Section) bool {
	return SameParentID(s.ParentSectionID, other.ParentSectionID)
}

// SameParentID compares two nullable parent ids.
func SameParentID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ChildNumber renders the section number of the child at the given 1-based
// ordinal under a parent numbered parentNumber. Root scopes pass "".
func ChildNumber(parentNumber string, ordinal int) string {
	if parentNumber == "" {
		return strconv.Itoa(ordinal)
	}
	return parentNumber + "." + strconv.Itoa(ordinal)
}
