package classify

import (
	"context"
	"fmt"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/logger"
)

// Pipeline runs strategies in priority order over a batch of rows.
type Pipeline struct {
	strategies []Strategy
	log        *logger.Logger
}

// NewPipeline builds a pipeline that consults strategies in the given order.
func NewPipeline(log *logger.Logger, strategies ...Strategy) *Pipeline {
	return &Pipeline{strategies: strategies, log: log.With("component", "classify")}
}

// ClassifyBatch resolves every row with a fresh memo. The result is indexed
// like rows and always holds one result per row.
func (p *Pipeline) ClassifyBatch(ctx context.Context, rows []Row) []domain.ClassificationResult {
	return p.Run(ctx, rows, NewMemo())
}

// Run is ClassifyBatch with a caller-owned memo, so the chunks of one import
// share lookups without sharing them across imports.
func (p *Pipeline) Run(ctx context.Context, rows []Row, memo *Memo) []domain.ClassificationResult {
	results := make([]domain.ClassificationResult, len(rows))

	pending := make([]int, len(rows))
	for i := range rows {
		pending[i] = i
	}

	for _, s := range p.strategies {
		if len(pending) == 0 {
			break
		}
		subset := make([]Row, len(pending))
		for j, idx := range pending {
			subset[j] = rows[idx]
		}

		found, err := p.runStrategy(ctx, s, subset, memo)
		if err != nil {
			p.log.Warn("classification strategy failed",
				"strategy", s.Name(), "rows", len(subset), "first_code", subset[0].Code, "error", err)
			continue
		}

		next := pending[:0]
		for j, idx := range pending {
			r, ok := found[j]
			if ok && !valid(r) {
				p.log.Warn("discarding invalid classification",
					"strategy", s.Name(), "row", idx, "code", rows[idx].Code, "label", r.Label)
				ok = false
			}
			if !ok {
				next = append(next, idx)
				continue
			}
			results[idx] = r
		}
		pending = next
	}

	for _, idx := range pending {
		results[idx] = domain.Unclassified()
	}
	if len(pending) > 0 {
		p.log.Debug("rows left unclassified", "count", len(pending), "total", len(rows))
	}
	return results
}

// runStrategy converts a strategy panic into an error.
func (p *Pipeline) runStrategy(ctx context.Context, s Strategy, rows []Row, memo *Memo) (found map[int]domain.ClassificationResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			found, err = nil, fmt.Errorf("strategy %s panicked: %v", s.Name(), rec)
		}
	}()
	return s.ClassifyBatch(ctx, rows, memo)
}

func valid(r domain.ClassificationResult) bool {
	return r.Label.Valid() && r.Confidence >= 0 && r.Confidence <= 1
}

// Tally counts resolved and sentinel rows in a result set.
func Tally(results []domain.ClassificationResult) (classified, unclassified int) {
	for _, r := range results {
		if r.Source == domain.SourceUnclassified {
			unclassified++
		} else {
			classified++
		}
	}
	return classified, unclassified
}
