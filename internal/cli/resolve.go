package cli

import (
	"context"
	"fmt"
	"strings"
)

// resolveEstimateID accepts a full estimate UUID or an unambiguous prefix.
func resolveEstimateID(ctx context.Context, app *App, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("estimate ID is required (--estimate)")
	}

	estimates, err := app.Estimates.List(ctx)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, e := range estimates {
		if e.ID == input {
			return e.ID, nil
		}
		if strings.HasPrefix(e.ID, input) {
			matches = append(matches, e.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("estimate not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("estimate ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveSectionID resolves a section identifier which can be:
//   - A section number such as "2.1"
//   - A UUID or UUID prefix
func resolveSectionID(ctx context.Context, app *App, estimateID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("section is required")
	}

	sections, err := app.Structure.ListSections(ctx, estimateID)
	if err != nil {
		return "", err
	}

	for _, s := range sections {
		if s.SectionNumber == input || s.ID == input {
			return s.ID, nil
		}
	}
	var matches []string
	for _, s := range sections {
		if strings.HasPrefix(s.ID, input) {
			matches = append(matches, s.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("section not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("section ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

// positionToOrder converts a 1-based --position flag into a sort order.
func positionToOrder(position int) (int, error) {
	if position < 1 {
		return 0, fmt.Errorf("position must be 1 or greater, got %d", position)
	}
	return position - 1, nil
}

// resolveReviewItemID matches a full or prefixed item ID among the rows
// still waiting for review.
func resolveReviewItemID(ctx context.Context, app *App, estimateID, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("item ID is required")
	}

	items, err := app.Imports.ListUnclassified(ctx, estimateID)
	if err != nil {
		return "", err
	}

	var matches []string
	for _, it := range items {
		if it.ID == input {
			return it.ID, nil
		}
		if strings.HasPrefix(it.ID, input) {
			matches = append(matches, it.ID)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no unclassified item matches %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("item ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}
