package domain

import (
	"fmt"
	"strings"
)

// Label is the closed cost-resource taxonomy a line item is classified into.
type Label string

const (
	LabelWork      Label = "work"
	LabelMaterial  Label = "material"
	LabelEquipment Label = "equipment"
	LabelLabor     Label = "labor"
)

// Labels lists every taxonomy label.
var Labels = []Label{LabelWork, LabelMaterial, LabelEquipment, LabelLabor}

// Valid reports whether l is one of the four taxonomy labels.
func (l Label) Valid() bool {
	switch l {
	case LabelWork, LabelMaterial, LabelEquipment, LabelLabor:
		return true
	}
	return false
}

// ParseLabel accepts only the exact taxonomy spellings.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown classification label %q", s)
	}
	return l, nil
}

// NormalizeLabel maps free text (AI output, reference table types) onto the
// taxonomy. Anything unrecognized becomes LabelWork.
func NormalizeLabel(text string) Label {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, ".\"' ")
	switch {
	case t == "":
		return LabelWork
	case hasAnyPrefix(t, "material", "материал", "mat", "мат"):
		return LabelMaterial
	case hasAnyPrefix(t, "equipment", "machine", "machinery", "mechanism", "оборуд", "машин", "механ", "эксплуатац"):
		return LabelEquipment
	case hasAnyPrefix(t, "labor", "labour", "труд", "затраты труда", "рабоч", "зарплат", "оплата труда"):
		return LabelLabor
	case hasAnyPrefix(t, "work", "работ", "расцен"):
		return LabelWork
	default:
		return LabelWork
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Source names the strategy that produced a classification.
type Source string

const (
	SourceRegexStrict  Source = "regex_strict"
	SourceRegexLoose   Source = "regex_loose"
	SourceNormativeDB  Source = "normative_db"
	SourceAI           Source = "ai"
	SourceUnclassified Source = "unclassified"
	// SourceManual marks a label set by a reviewer.
	SourceManual       Source = "manual"
)

// ClassificationResult is an immutable classification outcome.
type ClassificationResult struct {
	Label      Label
	Confidence float64
	Source     Source
}

// Unclassified is the sentinel result for rows no strategy could resolve.
func Unclassified() ClassificationResult {
	return ClassificationResult{Label: LabelWork, Confidence: 0, Source: SourceUnclassified}
}

// NormalizeCode trims a normative code and folds internal whitespace,
// including non-breaking spaces pasted from spreadsheets, to single spaces.
// A leading byte-order mark is dropped.
func NormalizeCode(code string) string {
	code = strings.TrimPrefix(code, "\ufeff")
	code = strings.ReplaceAll(code, "\u00a0", " ")
	return strings.Join(strings.Fields(code), " ")
}
