package classify

import (
	"context"
	"fmt"

	"github.com/alexanderramin/smeta/internal/domain"
)

// NormativeLookup is the reference-table query the strategy depends on.
type NormativeLookup interface {
	BulkLookupByCode(ctx context.Context, codes []string) ([]domain.NormativeEntry, error)
}

// NormativeDBStrategy resolves codes by exact match against the normative
// reference table. One bulk lookup serves a whole batch.
type NormativeDBStrategy struct {
	lookup NormativeLookup
}

func NewNormativeDBStrategy(lookup NormativeLookup) *NormativeDBStrategy {
	return &NormativeDBStrategy{lookup: lookup}
}

func (*NormativeDBStrategy) Name() string { return "normative_db" }

func (s *NormativeDBStrategy) Classify(ctx context.Context, row Row) (*domain.ClassificationResult, error) {
	out, err := s.ClassifyBatch(ctx, []Row{row}, NewMemo())
	if err != nil {
		return nil, err
	}
	if r, ok := out[0]; ok {
		return &r, nil
	}
	return nil, nil
}

func (s *NormativeDBStrategy) ClassifyBatch(ctx context.Context, rows []Row, memo *Memo) (map[int]domain.ClassificationResult, error) {
	if memo == nil {
		memo = NewMemo()
	}

	codes := make([]string, len(rows))
	var missing []string
	queued := make(map[string]bool)
	for i, row := range rows {
		code := domain.NormalizeCode(row.Code)
		codes[i] = code
		if code == "" || queued[code] {
			continue
		}
		if _, seen := memo.Lookup(code); seen {
			continue
		}
		queued[code] = true
		missing = append(missing, code)
	}

	if len(missing) > 0 {
		entries, err := s.lookup.BulkLookupByCode(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("looking up normative codes: %w", err)
		}
		for _, code := range missing {
			memo.Store(code, nil)
		}
		for _, e := range entries {
			memo.Store(e.Code, &domain.ClassificationResult{
				Label:      domain.NormalizeLabel(e.Type),
				Confidence: 1.0,
				Source:     domain.SourceNormativeDB,
			})
		}
	}

	out := make(map[int]domain.ClassificationResult)
	for i, code := range codes {
		if code == "" {
			continue
		}
		if r, _ := memo.Lookup(code); r != nil {
			out[i] = *r
		}
	}
	return out, nil
}
