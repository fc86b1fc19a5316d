package numbering

import (
	"fmt"

	"github.com/alexanderramin/smeta/internal/domain"
)

// Validate checks a full section set against the numbering invariants:
// parents exist in the set, there are no cycles, sibling orders are
// 0..n-1, and every number is the dot path of its ancestors' ordinals.
func Validate(sections []*domain.Section) error {
	byID := make(map[string]*domain.Section, len(sections))
	scopes := make(map[string][]*domain.Section)
	for _, s := range sections {
		byID[s.ID] = s
	}
	for _, s := range sections {
		key := ""
		if s.ParentSectionID != nil {
			if _, ok := byID[*s.ParentSectionID]; !ok {
				return fmt.Errorf("section %s: parent %s missing", s.ID, *s.ParentSectionID)
			}
			key = *s.ParentSectionID
		}
		scopes[key] = append(scopes[key], s)
	}

	for key, scope := range scopes {
		seen := make([]bool, len(scope))
		for _, s := range scope {
			if s.SortOrder < 0 || s.SortOrder >= len(scope) || seen[s.SortOrder] {
				return fmt.Errorf("scope %q: sort order %d of section %s is not dense", key, s.SortOrder, s.ID)
			}
			seen[s.SortOrder] = true
		}
	}

	for _, s := range sections {
		want, err := expectedNumber(s, byID)
		if err != nil {
			return err
		}
		if s.SectionNumber != want {
			return fmt.Errorf("section %s: number %q, want %q", s.ID, s.SectionNumber, want)
		}
	}
	return nil
}

func expectedNumber(s *domain.Section, byID map[string]*domain.Section) (string, error) {
	chain := []*domain.Section{s}
	for cur := s; cur.ParentSectionID != nil; {
		cur = byID[*cur.ParentSectionID]
		if cur == s || len(chain) > len(byID) {
			return "", fmt.Errorf("section %s: %w", s.ID, domain.ErrSectionCycle)
		}
		chain = append(chain, cur)
	}
	number := ""
	for i := len(chain) - 1; i >= 0; i-- {
		number = domain.ChildNumber(number, chain[i].SortOrder+1)
	}
	return number, nil
}
