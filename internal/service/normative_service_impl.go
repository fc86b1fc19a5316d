package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
	"github.com/alexanderramin/smeta/internal/repository"
)

type normativeService struct {
	uow db.UnitOfWork
}

func NewNormativeService(uow db.UnitOfWork) NormativeService {
	return &normativeService{uow: uow}
}

// LoadCSV reads code,type[,name] rows. A first row whose first cell is
// "code" is treated as a header.
func (s *normativeService) LoadCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []domain.NormativeEntry
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading normatives: %w", err)
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(domain.NormalizeCode(rec[0]), "code") {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return 0, fmt.Errorf("line %d: expected code,type[,name]", line)
		}
		e := domain.NormativeEntry{
			Code: domain.NormalizeCode(rec[0]),
			Type: strings.TrimSpace(rec[1]),
		}
		if len(rec) > 2 {
			e.Name = strings.TrimSpace(rec[2])
		}
		if e.Code == "" || e.Type == "" {
			return 0, fmt.Errorf("line %d: code and type are required", line)
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteNormativeRepo(tx).Upsert(ctx, entries)
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
