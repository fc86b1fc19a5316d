// Package classify assigns taxonomy labels to imported estimate rows.
//
// Strategies run in a fixed priority order inside a Pipeline. Each strategy
// only sees the rows every earlier strategy left unresolved, and the first
// result produced for a row is final.
package classify

import (
	"context"

	"github.com/alexanderramin/smeta/internal/domain"
)

// Row is the classification input extracted from one imported line.
type Row struct {
	Code  string
	Name  string
	Unit  string
	Price *float64
}

// Strategy is one tier of the classification pipeline.
type Strategy interface {
	Name() string

	// Classify resolves a single row. A nil result with a nil error means
	// the strategy has no opinion about the row.
	Classify(ctx context.Context, row Row) (*domain.ClassificationResult, error)

	// ClassifyBatch resolves rows in bulk. The returned map is sparse: only
	// indices the strategy resolved are present, keyed by position in rows.
	ClassifyBatch(ctx context.Context, rows []Row, memo *Memo) (map[int]domain.ClassificationResult, error)
}

// Memo caches per-code lookups for the lifetime of one pipeline run.
// Misses are cached too, so a code is looked up at most once per run.
type Memo struct {
	codes map[string]*domain.ClassificationResult
}

func NewMemo() *Memo {
	return &Memo{codes: make(map[string]*domain.ClassificationResult)}
}

// Lookup returns the cached result for code and whether code was seen.
// A seen code with a nil result is a cached miss.
func (m *Memo) Lookup(code string) (*domain.ClassificationResult, bool) {
	if m == nil {
		return nil, false
	}
	r, ok := m.codes[code]
	return r, ok
}

func (m *Memo) Store(code string, r *domain.ClassificationResult) {
	if m == nil {
		return
	}
	m.codes[code] = r
}

func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return len(m.codes)
}
