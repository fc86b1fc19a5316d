package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/smeta/internal/blob"
	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/logger"
	"github.com/alexanderramin/smeta/internal/repository"
)

type estimateService struct {
	estimates repository.EstimateRepo
	blobs     blob.Store
	uow       db.UnitOfWork
	log       *logger.Logger
}

func NewEstimateService(estimates repository.EstimateRepo, blobs blob.Store, uow db.UnitOfWork, log *logger.Logger) EstimateService {
	return &estimateService{estimates: estimates, blobs: blobs, uow: uow, log: log.With("component", "estimates")}
}

func (s *estimateService) Create(ctx context.Context, organizationID, name string) (*domain.Estimate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("estimate name is required")
	}
	if strings.TrimSpace(organizationID) == "" {
		return nil, fmt.Errorf("organization id is required")
	}
	now := time.Now().UTC()
	e := &domain.Estimate{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.estimates.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *estimateService) GetByID(ctx context.Context, id string) (*domain.Estimate, error) {
	return s.estimates.GetByID(ctx, id)
}

func (s *estimateService) List(ctx context.Context) ([]*domain.Estimate, error) {
	return s.estimates.List(ctx)
}

// Delete removes the estimate and its whole structure. The snapshot blob is
// removed only after the rows are gone.
func (s *estimateService) Delete(ctx context.Context, id string) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txEstimates := repository.NewSQLiteEstimateRepo(tx)
		e, err := txEstimates.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := txEstimates.Delete(ctx, id); err != nil {
			return err
		}
		if e.HasSnapshot() {
			path := e.SnapshotPath
			db.AfterCommit(ctx, func() {
				if err := s.blobs.Delete(context.WithoutCancel(ctx), path); err != nil {
					s.log.Warn("deleting snapshot of removed estimate", "estimate_id", id, "path", path, "error", err)
				}
			})
		}
		return nil
	})
}
