package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/smeta/internal/classify"
	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/importer"
	"github.com/alexanderramin/smeta/internal/jobs"
	"github.com/alexanderramin/smeta/internal/logger"
	"github.com/alexanderramin/smeta/internal/numbering"
	"github.com/alexanderramin/smeta/internal/repository"
)

const defaultChunkSize = 200

type ImportConfig struct {
	// ChunkSize is how many rows are classified between cancellation checks.
	ChunkSize int
}

type importService struct {
	estimates repository.EstimateRepo
	sessions  repository.ImportSessionRepo
	items     repository.LineItemRepo
	uow       db.UnitOfWork
	pipeline  *classify.Pipeline
	queue     jobs.Enqueuer
	snapshots SnapshotScheduler
	log       *logger.Logger
	cfg       ImportConfig

	parse func(path string) (*importer.Document, error)
	now   func() time.Time
}

func NewImportService(
	estimates repository.EstimateRepo,
	sessions repository.ImportSessionRepo,
	items repository.LineItemRepo,
	uow db.UnitOfWork,
	pipeline *classify.Pipeline,
	queue jobs.Enqueuer,
	snapshots SnapshotScheduler,
	log *logger.Logger,
	cfg ImportConfig,
) ImportService {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = defaultChunkSize
	}
	return &importService{
		estimates: estimates,
		sessions:  sessions,
		items:     items,
		uow:       uow,
		pipeline:  pipeline,
		queue:     queue,
		snapshots: snapshots,
		log:       log.With("component", "import"),
		cfg:       cfg,
		parse:     importer.ParseFile,
		now:       time.Now,
	}
}

// Start records a pending session for the file and queues the run.
func (s *importService) Start(ctx context.Context, estimateID, path string) (*domain.ImportSession, error) {
	sess, err := s.createSession(ctx, estimateID, path)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return s.Run(ctx, sess.ID)
	}
	_, err = s.queue.Enqueue(jobs.Job{
		Name: "import",
		Key:  "import:" + sess.ID,
		Run: func(ctx context.Context) error {
			_, err := s.Run(ctx, sess.ID)
			if errors.Is(err, domain.ErrImportCancelled) || errors.Is(err, ErrImportFinished) {
				// The session already records the outcome.
				return nil
			}
			return err
		},
	})
	if err != nil {
		s.fail(ctx, sess.ID, err)
		return nil, fmt.Errorf("queueing import: %w", err)
	}
	return sess, nil
}

func (s *importService) createSession(ctx context.Context, estimateID, path string) (*domain.ImportSession, error) {
	if _, err := s.estimates.GetByID(ctx, estimateID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &domain.ImportSession{
		ID:         uuid.New().String(),
		EstimateID: estimateID,
		FileName:   path,
		Status:     domain.ImportPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Run executes a pending session synchronously. The session's file name is
// the path it was started with.
func (s *importService) Run(ctx context.Context, sessionID string) (*domain.ImportSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case domain.ImportFailed:
		return nil, domain.ErrImportCancelled
	case domain.ImportCompleted, domain.ImportRunning:
		return nil, ErrImportFinished
	}

	sess.Status = domain.ImportRunning
	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}

	path := sess.FileName
	log := s.log.With("session_id", sessionID, "estimate_id", sess.EstimateID, "file", filepath.Base(path))
	result, err := s.execute(ctx, sess, path)
	if err != nil {
		if !errors.Is(err, domain.ErrImportCancelled) {
			s.fail(ctx, sessionID, err)
		}
		log.Warn("import did not complete", "error", err)
		return nil, err
	}
	log.Info("import completed",
		"rows", result.TotalRows, "classified", result.ClassifiedRows, "unclassified", result.UnclassifiedRows)
	return result, nil
}

func (s *importService) fail(ctx context.Context, sessionID string, cause error) {
	if _, err := s.sessions.MarkFailed(context.WithoutCancel(ctx), sessionID, cause.Error(), s.now().UTC()); err != nil {
		s.log.Error("marking import session failed", "session_id", sessionID, "error", err)
	}
}

func (s *importService) execute(ctx context.Context, sess *domain.ImportSession, path string) (*domain.ImportSession, error) {
	doc, err := s.parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := formatValidationErrors(importer.ValidateDocument(doc)); err != nil {
		return nil, err
	}
	conv, err := importer.Convert(doc, sess.EstimateID)
	if err != nil {
		return nil, err
	}

	results, err := s.classify(ctx, sess.ID, conv.ClassificationRows())
	if err != nil {
		return nil, err
	}
	for i, item := range conv.Items {
		item.ApplyClassification(results[i])
	}
	classified, unclassified := classify.Tally(results)

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txSessions := repository.NewSQLiteImportSessionRepo(tx)
		if err := persist(ctx, tx, conv); err != nil {
			return err
		}
		// A cancel that landed while rows were written wins.
		status, err := txSessions.GetStatus(ctx, sess.ID)
		if err != nil {
			return err
		}
		if status == domain.ImportFailed {
			return domain.ErrImportCancelled
		}
		sess.TotalRows = doc.RowCount()
		sess.Complete(classified, unclassified, s.now().UTC())
		if err := txSessions.Update(ctx, sess); err != nil {
			return err
		}
		if s.snapshots != nil {
			db.AfterCommit(ctx, func() { s.snapshots.Enqueue(sess.EstimateID) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// classify runs the pipeline chunk by chunk with one memo for the whole
// file, checking for cancellation before each chunk.
func (s *importService) classify(ctx context.Context, sessionID string, rows []classify.Row) ([]domain.ClassificationResult, error) {
	results := make([]domain.ClassificationResult, 0, len(rows))
	memo := classify.NewMemo()
	for start := 0; start < len(rows); start += s.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status, err := s.sessions.GetStatus(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if status == domain.ImportFailed {
			return nil, domain.ErrImportCancelled
		}

		chunk := rows[start:min(start+s.cfg.ChunkSize, len(rows))]
		if s.pipeline == nil {
			for range chunk {
				results = append(results, domain.Unclassified())
			}
			continue
		}
		results = append(results, s.pipeline.Run(ctx, chunk, memo)...)
	}
	return results, nil
}

// persist writes a converted document. Sections go through the numbering
// engine so they land after any existing siblings; top-level items are
// appended after the existing items of their scope.
func persist(ctx context.Context, tx db.DBTX, conv *importer.Converted) error {
	txSections := repository.NewSQLiteSectionRepo(tx)
	engine := numbering.New(txSections)
	for _, sec := range conv.Sections {
		plan, err := engine.Creating(ctx, sec, nil)
		if err != nil {
			return fmt.Errorf("numbering section %q: %w", sec.Name, err)
		}
		if err := txSections.Create(ctx, sec); err != nil {
			return err
		}
		if err := engine.Created(ctx, sec, plan); err != nil {
			return err
		}
	}

	units := repository.NewSQLiteUnitRepo(tx)
	workTypes := repository.NewSQLiteWorkTypeRepo(tx)
	unitIDs := make(map[string]string)
	workTypeIDs := make(map[string]string)

	txItems := repository.NewSQLiteLineItemRepo(tx)
	offsets := make(map[string]int)
	for _, item := range conv.Items {
		if item.ParentItemID == nil {
			scope := deref(item.SectionID)
			off, ok := offsets[scope]
			if !ok {
				next, err := txItems.NextSortOrder(ctx, item.EstimateID, item.SectionID, nil)
				if err != nil {
					return err
				}
				off = next
				offsets[scope] = off
			}
			item.SortOrder += off
		}

		if sym, ok := conv.UnitSymbols[item.ID]; ok {
			id, err := cachedRef(ctx, unitIDs, sym, func(ctx context.Context, key string) (string, error) {
				u, err := units.GetOrCreate(ctx, key)
				if err != nil {
					return "", err
				}
				return u.ID, nil
			})
			if err != nil {
				return err
			}
			item.UnitID = &id
		}
		if name, ok := conv.WorkTypeNames[item.ID]; ok {
			id, err := cachedRef(ctx, workTypeIDs, name, func(ctx context.Context, key string) (string, error) {
				w, err := workTypes.GetOrCreate(ctx, key)
				if err != nil {
					return "", err
				}
				return w.ID, nil
			})
			if err != nil {
				return err
			}
			item.WorkTypeID = &id
		}
		if err := txItems.Create(ctx, item); err != nil {
			return err
		}
	}

	resources := repository.NewSQLiteResourceRepo(tx)
	for _, r := range conv.Resources {
		if err := resources.Create(ctx, r); err != nil {
			return err
		}
	}
	totals := repository.NewSQLiteTotalRepo(tx)
	for _, t := range conv.Totals {
		if err := totals.Create(ctx, t); err != nil {
			return err
		}
	}
	subWorks := repository.NewSQLiteSubWorkRepo(tx)
	for _, w := range conv.SubWorks {
		if err := subWorks.Create(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func cachedRef(ctx context.Context, cache map[string]string, key string, load func(context.Context, string) (string, error)) (string, error) {
	if id, ok := cache[key]; ok {
		return id, nil
	}
	id, err := load(ctx, key)
	if err != nil {
		return "", err
	}
	cache[key] = id
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Cancel marks a running or pending session failed. The run notices at its
// next chunk boundary or before committing.
func (s *importService) Cancel(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		return err
	}
	ok, err := s.sessions.MarkFailed(ctx, sessionID, "cancelled", s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrImportFinished
	}
	return nil
}

func (s *importService) Status(ctx context.Context, sessionID string) (*domain.ImportSession, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *importService) ListUnclassified(ctx context.Context, estimateID string) ([]*domain.LineItem, error) {
	return s.items.ListUnclassified(ctx, estimateID)
}

func (s *importService) ResolveItem(ctx context.Context, itemID string, label domain.Label) (*domain.LineItem, error) {
	if !label.Valid() {
		return nil, fmt.Errorf("invalid label %q", label)
	}
	var item *domain.LineItem
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txItems := repository.NewSQLiteLineItemRepo(tx)
		var err error
		if item, err = txItems.GetByID(ctx, itemID); err != nil {
			return err
		}
		item.ApplyClassification(domain.ClassificationResult{
			Label: label, Confidence: 1, Source: domain.SourceManual,
		})
		item.UpdatedAt = s.now().UTC()
		if err := txItems.Update(ctx, item); err != nil {
			return err
		}
		if s.snapshots != nil {
			estimateID := item.EstimateID
			db.AfterCommit(ctx, func() { s.snapshots.Enqueue(estimateID) })
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
