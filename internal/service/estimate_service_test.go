package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/logger"
	"github.com/alexanderramin/smeta/internal/repository"
)

func TestEstimateService_CreateValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewEstimateService(f.estimates, newMemStore(), f.uow, logger.Nop())

	e, err := svc.Create(f.ctx, "org-1", "  Детский сад  ")
	require.NoError(t, err)
	assert.Equal(t, "Детский сад", e.Name)
	assert.False(t, e.HasSnapshot())

	_, err = svc.Create(f.ctx, "org-1", "")
	assert.ErrorContains(t, err, "name is required")
	_, err = svc.Create(f.ctx, "", "Школа")
	assert.ErrorContains(t, err, "organization")

	all, err := svc.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEstimateService_DeleteRemovesSnapshotBlob(t *testing.T) {
	f := newFixture(t)
	store := newMemStore()
	snaps := newSnapshotService(f, f.estimates, store, nil)
	path, err := snaps.Generate(f.ctx, f.est.ID)
	require.NoError(t, err)

	svc := NewEstimateService(f.estimates, store, f.uow, logger.Nop())
	require.NoError(t, svc.Delete(f.ctx, f.est.ID))

	assert.Empty(t, store.keys())
	assert.Contains(t, store.deleted, path)
	_, err = svc.GetByID(f.ctx, f.est.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(f.ctx, f.est.ID), repository.ErrNotFound)
}
