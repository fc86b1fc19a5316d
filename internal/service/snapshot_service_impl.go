package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/smeta/internal/blob"
	"github.com/alexanderramin/smeta/internal/jobs"
	"github.com/alexanderramin/smeta/internal/logger"
	"github.com/alexanderramin/smeta/internal/repository"
	"github.com/alexanderramin/smeta/internal/snapshot"
)

type snapshotService struct {
	estimates repository.EstimateRepo
	assembler *snapshot.Assembler
	blobs     blob.Store
	queue     jobs.Enqueuer
	locks     *jobs.KeyedMutex
	log       *logger.Logger
	observer  UseCaseObserver
	now       func() time.Time
}

// NewSnapshotService wires snapshot generation. queue may be nil, in which
// case Enqueue generates synchronously.
func NewSnapshotService(
	estimates repository.EstimateRepo,
	assembler *snapshot.Assembler,
	blobs blob.Store,
	queue jobs.Enqueuer,
	log *logger.Logger,
	observers ...UseCaseObserver,
) SnapshotService {
	var observer UseCaseObserver
	if len(observers) > 0 {
		observer = observers[0]
	}
	return &snapshotService{
		estimates: estimates,
		assembler: assembler,
		blobs:     blobs,
		queue:     queue,
		locks:     jobs.NewKeyedMutex(),
		log:       log.With("component", "snapshots"),
		observer:  useCaseObserverOrNoop(observer),
		now:       time.Now,
	}
}

func snapshotPath(organizationID, estimateID string, at time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s/snapshot_%d.json", organizationID, estimateID, at.UnixNano())
}

// Generate writes a fresh snapshot and moves the estimate's pointer to it.
// The pointer only moves once the new blob is confirmed; the previous blob
// is removed afterwards.
func (s *snapshotService) Generate(ctx context.Context, estimateID string) (path string, err error) {
	fields := map[string]any{"estimate_id": estimateID}
	defer observe(ctx, s.observer, "snapshot.generate", fields, &err)()

	unlock := s.locks.Lock(estimateID)
	defer unlock()

	est, err := s.estimates.GetByID(ctx, estimateID)
	if err != nil {
		return "", err
	}

	payload, err := s.assembler.Assemble(ctx, estimateID)
	if err != nil {
		s.log.Error("assembling snapshot", "estimate_id", estimateID, "error", err)
		return "", fmt.Errorf("assembling snapshot: %w", err)
	}
	sections, items := payload.Counts()
	fields["sections"] = sections
	fields["items"] = items

	data, err := snapshot.Encode(payload)
	if err != nil {
		return "", err
	}

	at := s.now().UTC()
	path = snapshotPath(est.OrganizationID, estimateID, at)
	if err := s.blobs.Put(ctx, path, data); err != nil {
		s.log.Error("writing snapshot", "estimate_id", estimateID, "path", path,
			"sections", sections, "items", items, "error", err)
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	ok, err := s.blobs.Exists(ctx, path)
	if err == nil && !ok {
		err = errors.New("blob missing after write")
	}
	if err != nil {
		s.log.Error("verifying snapshot", "estimate_id", estimateID, "path", path,
			"sections", sections, "items", items, "error", err)
		return "", fmt.Errorf("verifying snapshot: %w", err)
	}

	swapped, err := s.estimates.SwapSnapshotPointer(ctx, estimateID, est.SnapshotPath, path, at)
	if err == nil && !swapped {
		err = ErrSnapshotRace
	}
	if err != nil {
		s.log.Error("publishing snapshot", "estimate_id", estimateID, "path", path,
			"sections", sections, "items", items, "error", err)
		s.removeBlob(ctx, estimateID, path)
		return "", err
	}

	if est.HasSnapshot() {
		s.removeBlob(ctx, estimateID, est.SnapshotPath)
	}
	return path, nil
}

func (s *snapshotService) removeBlob(ctx context.Context, estimateID, path string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), path); err != nil {
		s.log.Warn("deleting snapshot blob", "estimate_id", estimateID, "path", path, "error", err)
	}
}

func (s *snapshotService) Load(ctx context.Context, estimateID string) (*snapshot.Payload, error) {
	est, err := s.estimates.GetByID(ctx, estimateID)
	if err != nil {
		return nil, err
	}
	if !est.HasSnapshot() {
		return nil, ErrNoSnapshot
	}
	data, err := s.blobs.Get(ctx, est.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return snapshot.Decode(data)
}

// Enqueue schedules a regeneration. A regeneration already waiting for the
// same estimate absorbs the request.
func (s *snapshotService) Enqueue(estimateID string) {
	if s.queue == nil {
		if _, err := s.Generate(context.Background(), estimateID); err != nil {
			s.log.Warn("generating snapshot", "estimate_id", estimateID, "error", err)
		}
		return
	}
	_, err := s.queue.Enqueue(jobs.Job{
		Name: "snapshot",
		Key:  "snapshot:" + estimateID,
		Run: func(ctx context.Context) error {
			_, err := s.Generate(ctx, estimateID)
			if errors.Is(err, repository.ErrNotFound) {
				// Estimate deleted before the job ran.
				return nil
			}
			return err
		},
	})
	if err != nil {
		s.log.Warn("enqueueing snapshot", "estimate_id", estimateID, "error", err)
	}
}
