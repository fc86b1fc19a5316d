package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/testutil"
)

func setupSectionRepo(t *testing.T) (*SQLiteSectionRepo, *domain.Estimate) {
	t.Helper()
	database := testutil.NewTestDB(t)
	est := testutil.NewTestEstimate("Sections")
	require.NoError(t, NewSQLiteEstimateRepo(database).Create(context.Background(), est))
	return NewSQLiteSectionRepo(database), est
}

func TestSectionRepo_CreateAndGetByID(t *testing.T) {
	repo, est := setupSectionRepo(t)
	ctx := context.Background()

	parent := testutil.NewTestSection(est.ID, "Parent", testutil.WithSectionNumber("1"))
	require.NoError(t, repo.Create(ctx, parent))
	child := testutil.NewTestSection(est.ID, "Child",
		testutil.WithParentSection(parent.ID),
		testutil.WithSectionNumber("1.1"),
	)
	require.NoError(t, repo.Create(ctx, child))

	got, err := repo.GetByID(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ParentSectionID)
	assert.Equal(t, parent.ID, *got.ParentSectionID)
	assert.Equal(t, "1.1", got.SectionNumber)
	assert.False(t, got.IsRoot())
}

func TestSectionRepo_ListByParent(t *testing.T) {
	repo, est := setupSectionRepo(t)
	ctx := context.Background()

	rootB := testutil.NewTestSection(est.ID, "B", testutil.WithSortOrder(1))
	rootA := testutil.NewTestSection(est.ID, "A", testutil.WithSortOrder(0))
	require.NoError(t, repo.Create(ctx, rootB))
	require.NoError(t, repo.Create(ctx, rootA))
	child := testutil.NewTestSection(est.ID, "A.1", testutil.WithParentSection(rootA.ID))
	require.NoError(t, repo.Create(ctx, child))

	roots, err := repo.ListByParent(ctx, est.ID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "A", roots[0].Name)
	assert.Equal(t, "B", roots[1].Name)

	children, err := repo.ListByParent(ctx, est.ID, &rootA.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, child.ID, children[0].ID)

	all, err := repo.ListByEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSectionRepo_UpdateNumbering(t *testing.T) {
	repo, est := setupSectionRepo(t)
	ctx := context.Background()

	s := testutil.NewTestSection(est.ID, "S")
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.UpdateNumbering(ctx, s.ID, 4, "5"))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.SortOrder)
	assert.Equal(t, "5", got.SectionNumber)

	err = repo.UpdateNumbering(ctx, "missing", 0, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSectionRepo_DeleteCascadesSubtreeAndItems(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	est := testutil.NewTestEstimate("Cascade")
	require.NoError(t, NewSQLiteEstimateRepo(database).Create(ctx, est))
	repo := NewSQLiteSectionRepo(database)
	items := NewSQLiteLineItemRepo(database)

	parent := testutil.NewTestSection(est.ID, "Parent")
	require.NoError(t, repo.Create(ctx, parent))
	child := testutil.NewTestSection(est.ID, "Child", testutil.WithParentSection(parent.ID))
	require.NoError(t, repo.Create(ctx, child))
	item := testutil.NewTestLineItem(est.ID, "Item", testutil.InSection(child.ID))
	require.NoError(t, items.Create(ctx, item))

	require.NoError(t, repo.Delete(ctx, parent.ID))

	_, err := repo.GetByID(ctx, child.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = items.GetByID(ctx, item.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSectionRepo_RejectsNegativeSortOrder(t *testing.T) {
	repo, est := setupSectionRepo(t)
	s := testutil.NewTestSection(est.ID, "Bad", testutil.WithSortOrder(-1))
	assert.Error(t, repo.Create(context.Background(), s))
}
