package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/smeta/internal/classify"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/repository"
)

func TestNormativeLoadCSV(t *testing.T) {
	f := newFixture(t)
	svc := NewNormativeService(f.uow)

	data := "code,type,name\nГЭСН01-01-001-01,work,Разработка грунта\n91.05.01-017,equipment\n\n"
	n, err := svc.LoadCSV(f.ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries, err := repository.NewSQLiteNormativeRepo(f.db).BulkLookupByCode(f.ctx, []string{"ГЭСН01-01-001-01", "91.05.01-017"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Reloading updates in place.
	n, err = svc.LoadCSV(f.ctx, strings.NewReader("91.05.01-017,material,Кран\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	entries, err = repository.NewSQLiteNormativeRepo(f.db).BulkLookupByCode(f.ctx, []string{"91.05.01-017"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "material", entries[0].Type)
	assert.Equal(t, "Кран", entries[0].Name)
}

func TestNormativeLoadCSV_Errors(t *testing.T) {
	f := newFixture(t)
	svc := NewNormativeService(f.uow)

	_, err := svc.LoadCSV(f.ctx, strings.NewReader("code,type\nonly-code\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = svc.LoadCSV(f.ctx, strings.NewReader(",work\n"))
	assert.ErrorContains(t, err, "required")

	n, err := svc.LoadCSV(f.ctx, strings.NewReader("code,type,name\n"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNormativeLoadCSV_CodesMatchClassifierLookup(t *testing.T) {
	f := newFixture(t)
	svc := NewNormativeService(f.uow)

	// Spreadsheet export: BOM, doubled space, non-breaking space, no header.
	data := "\ufeffКР  77-1,material\nКР\u00a078-2,equipment\n"
	n, err := svc.LoadCSV(f.ctx, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	strategy := classify.NewNormativeDBStrategy(repository.NewSQLiteNormativeRepo(f.db))
	rows := []classify.Row{{Code: "\ufeffКР  77-1"}, {Code: "КР\u00a078-2"}, {Code: "КР 78-2"}}
	got, err := strategy.ClassifyBatch(f.ctx, rows, classify.NewMemo())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.LabelMaterial, got[0].Label)
	assert.Equal(t, domain.LabelEquipment, got[1].Label)
	assert.Equal(t, domain.LabelEquipment, got[2].Label)
	assert.Equal(t, domain.SourceNormativeDB, got[0].Source)
}
