package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/repository"
	"github.com/alexanderramin/smeta/internal/testutil"
)

// recordingScheduler captures snapshot requests instead of running them.
type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingScheduler) Enqueue(estimateID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, estimateID)
}

func (r *recordingScheduler) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *sql.DB
	uow db.UnitOfWork

	estimates *repository.SQLiteEstimateRepo
	sections  *repository.SQLiteSectionRepo
	items     *repository.SQLiteLineItemRepo
	sessions  *repository.SQLiteImportSessionRepo

	snaps *recordingScheduler
	est   *domain.Estimate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		db:        database,
		uow:       testutil.NewTestUoW(database),
		estimates: repository.NewSQLiteEstimateRepo(database),
		sections:  repository.NewSQLiteSectionRepo(database),
		items:     repository.NewSQLiteLineItemRepo(database),
		sessions:  repository.NewSQLiteImportSessionRepo(database),
		snaps:     &recordingScheduler{},
	}
	f.est = testutil.NewTestEstimate("Школа №5")
	require.NoError(t, f.estimates.Create(f.ctx, f.est))
	return f
}

func (f *fixture) structure() StructureService {
	return NewStructureService(f.sections, f.uow, nil, f.snaps)
}

// numbers maps section name to its current number.
func (f *fixture) numbers() map[string]string {
	f.t.Helper()
	secs, err := f.sections.ListByEstimate(f.ctx, f.est.ID)
	require.NoError(f.t, err)
	out := make(map[string]string, len(secs))
	for _, s := range secs {
		out[s.Name] = s.SectionNumber
	}
	return out
}

func (f *fixture) addSection(svc StructureService, name string, parent *domain.Section) *domain.Section {
	f.t.Helper()
	in := CreateSectionInput{EstimateID: f.est.ID, Name: name}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	s, err := svc.CreateSection(f.ctx, in)
	require.NoError(f.t, err)
	return s
}

func intp(v int) *int { return &v }
