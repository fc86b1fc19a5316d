package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/classify"
	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/jobs"
	"github.com/alexanderramin/smeta/internal/llm"
	"github.com/alexanderramin/smeta/internal/logger"
	"github.com/alexanderramin/smeta/internal/repository"
	"github.com/alexanderramin/smeta/internal/testutil"
)

const estimateCSV = `Локальная смета № 7,,,,,
№ п/п,Обоснование,Наименование работ и затрат,Ед. изм.,Количество,Цена
,,Раздел 1. Земляные работы,,,
1,ГЭСН01-01-001-01,Разработка грунта,1000 м3,"1,5",12 500
,,Затраты труда,чел.-ч,8,
,,Раздел 1.1. Обратная засыпка,,,
2,ФССЦ-02.3.01.02-0001,Песок,м3,10,650.25
,,Раздел 2. Бетон,,,
3,,Бетонирование,м3,4,
`

func writeEstimateFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// unavailableChat fails every call the way an unreachable provider does.
type unavailableChat struct{ calls int }

func (c *unavailableChat) Chat(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	c.calls++
	return nil, llm.ErrUnavailable
}

func (*unavailableChat) Available(context.Context) bool { return false }

// hookStrategy resolves nothing and runs onBatch for every batch it sees.
type hookStrategy struct {
	onBatch func()
	batches int
}

func (*hookStrategy) Name() string { return "hook" }

func (h *hookStrategy) Classify(context.Context, classify.Row) (*domain.ClassificationResult, error) {
	return nil, nil
}

func (h *hookStrategy) ClassifyBatch(context.Context, []classify.Row, *classify.Memo) (map[int]domain.ClassificationResult, error) {
	h.batches++
	if h.onBatch != nil {
		h.onBatch()
	}
	return nil, nil
}

func (f *fixture) importService(uow db.UnitOfWork, pipeline *classify.Pipeline, queue jobs.Enqueuer, cfg ImportConfig) *importService {
	return NewImportService(f.estimates, f.sessions, f.items, uow, pipeline, queue, f.snaps, logger.Nop(), cfg).(*importService)
}

func (f *fixture) defaultPipeline() *classify.Pipeline {
	return classify.NewPipeline(logger.Nop(),
		classify.NewRegexStrategy(),
		classify.NewNormativeDBStrategy(repository.NewSQLiteNormativeRepo(f.db)),
	)
}

func TestImportRun_PersistsTreeAndClassifies(t *testing.T) {
	f := newFixture(t)
	f.addSection(f.structure(), "Подготовка", nil)
	before := f.snaps.calls()

	svc := f.importService(f.uow, f.defaultPipeline(), nil, ImportConfig{ChunkSize: 2})
	sess, err := svc.Start(f.ctx, f.est.ID, writeEstimateFile(t, "smeta.csv", estimateCSV))
	require.NoError(t, err)

	assert.Equal(t, domain.ImportCompleted, sess.Status)
	assert.Equal(t, 4, sess.TotalRows)
	assert.Equal(t, 2, sess.ClassifiedRows)
	assert.Equal(t, 2, sess.UnclassifiedRows)
	assert.Equal(t, before+1, f.snaps.calls())

	assert.Equal(t, map[string]string{
		"Подготовка":                   "1",
		"Раздел 1. Земляные работы":    "2",
		"Раздел 1.1. Обратная засыпка": "2.1",
		"Раздел 2. Бетон":              "3",
	}, f.numbers(), "imported sections append after existing ones")

	items, err := f.items.ListByEstimate(f.ctx, f.est.ID)
	require.NoError(t, err)
	require.Len(t, items, 4)
	byName := map[string]*domain.LineItem{}
	for _, it := range items {
		byName[it.Name] = it
	}
	assert.Equal(t, domain.LabelWork, byName["Разработка грунта"].ClassificationLabel)
	assert.Equal(t, domain.LabelMaterial, byName["Песок"].ClassificationLabel)
	require.NotNil(t, byName["Затраты труда"].ParentItemID)
	assert.Equal(t, byName["Разработка грунта"].ID, *byName["Затраты труда"].ParentItemID)
	require.NotNil(t, byName["Песок"].UnitID)

	review, err := svc.ListUnclassified(f.ctx, f.est.ID)
	require.NoError(t, err)
	assert.Len(t, review, 2)

	stored, err := svc.Status(f.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCompleted, stored.Status)
}

func TestImportRun_CancelBetweenChunks(t *testing.T) {
	f := newFixture(t)
	path := writeEstimateFile(t, "smeta.csv", estimateCSV)

	var svc *importService
	var sessionID string
	hook := &hookStrategy{}
	hook.onBatch = func() {
		require.NoError(t, svc.Cancel(context.Background(), sessionID))
	}
	svc = f.importService(f.uow, classify.NewPipeline(logger.Nop(), hook), nil, ImportConfig{ChunkSize: 1})

	sess, err := svc.createSession(f.ctx, f.est.ID, path)
	require.NoError(t, err)
	sessionID = sess.ID

	_, err = svc.Run(f.ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrImportCancelled)
	assert.Equal(t, 1, hook.batches, "no chunk runs after the cancel")

	stored, err := svc.Status(f.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportFailed, stored.Status)
	assert.Equal(t, "cancelled", stored.Error)

	items, err := f.items.ListByEstimate(f.ctx, f.est.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, f.numbers())
	assert.Zero(t, f.snaps.calls())
}

func TestImportRun_ProviderOutageLeavesRowsUnclassified(t *testing.T) {
	f := newFixture(t)
	chat := &unavailableChat{}
	pipeline := classify.NewPipeline(logger.Nop(),
		classify.NewRegexStrategy(),
		classify.NewAIStrategy(chat, classify.AIConfig{Enabled: true, ChunkSize: 10}, logger.Nop()),
	)
	svc := f.importService(f.uow, pipeline, nil, ImportConfig{})

	sess, err := svc.Start(f.ctx, f.est.ID, writeEstimateFile(t, "smeta.csv", estimateCSV))
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCompleted, sess.Status)
	assert.Equal(t, 2, sess.UnclassifiedRows)
	assert.Positive(t, chat.calls)
}

func TestImportRun_RollbackOnWriteFailure(t *testing.T) {
	f := newFixture(t)
	failing := &testutil.FailOnNthExecUoW{DB: f.db, FailOn: 4, Err: errors.New("injected write failure")}
	svc := f.importService(failing, nil, nil, ImportConfig{})

	_, err := svc.Start(f.ctx, f.est.ID, writeEstimateFile(t, "smeta.csv", estimateCSV))
	require.ErrorContains(t, err, "injected write failure")

	assert.Empty(t, f.numbers())
	items, err := f.items.ListByEstimate(f.ctx, f.est.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestImportRun_FailuresMarkSession(t *testing.T) {
	f := newFixture(t)
	svc := f.importService(f.uow, nil, nil, ImportConfig{})

	_, err := svc.Start(f.ctx, f.est.ID, writeEstimateFile(t, "smeta.txt", "x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = svc.Start(f.ctx, "missing", "smeta.csv")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	bad := "Наименование,Количество\nРытьё траншей,-3\n"
	sess, err := svc.createSession(f.ctx, f.est.ID, writeEstimateFile(t, "bad.csv", bad))
	require.NoError(t, err)
	_, err = svc.Run(f.ctx, sess.ID)
	require.ErrorContains(t, err, "validation failed")

	stored, err := svc.Status(f.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportFailed, stored.Status)
	assert.Contains(t, stored.Error, "quantity")

	_, err = svc.Run(f.ctx, sess.ID)
	assert.ErrorIs(t, err, domain.ErrImportCancelled, "a failed session never reruns")
	assert.ErrorIs(t, svc.Cancel(f.ctx, sess.ID), ErrImportFinished)
}

func TestImportStart_RunsOnQueue(t *testing.T) {
	f := newFixture(t)
	q := jobs.NewQueue(context.Background(), logger.Nop(), jobs.Options{Workers: 1, QueueSize: 4, MaxAttempts: 1})
	svc := f.importService(f.uow, f.defaultPipeline(), q, ImportConfig{})

	sess, err := svc.Start(f.ctx, f.est.ID, writeEstimateFile(t, "smeta.csv", estimateCSV))
	require.NoError(t, err)
	assert.Equal(t, domain.ImportPending, sess.Status)
	require.NoError(t, q.Close())

	stored, err := svc.Status(f.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImportCompleted, stored.Status)
}

func TestResolveItem_SetsManualLabel(t *testing.T) {
	f := newFixture(t)
	item := testutil.NewTestLineItem(f.est.ID, "Прочие работы")
	require.NoError(t, f.items.Create(f.ctx, item))
	svc := f.importService(f.uow, nil, nil, ImportConfig{})

	got, err := svc.ResolveItem(f.ctx, item.ID, domain.LabelMaterial)
	require.NoError(t, err)
	assert.Equal(t, domain.LabelMaterial, got.ClassificationLabel)
	assert.Equal(t, domain.SourceManual, got.ClassificationSource)
	assert.InDelta(t, 1.0, got.ClassificationConfidence, 1e-9)
	assert.Equal(t, 1, f.snaps.calls())

	review, err := svc.ListUnclassified(f.ctx, f.est.ID)
	require.NoError(t, err)
	assert.Empty(t, review)

	_, err = svc.ResolveItem(f.ctx, item.ID, domain.Label("vehicle"))
	assert.ErrorContains(t, err, "invalid label")
}
