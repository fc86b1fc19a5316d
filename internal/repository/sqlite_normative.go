package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

// SQLiteNormativeRepo implements NormativeRepo over the normatives reference table.
type SQLiteNormativeRepo struct {
	db db.DBTX
}

func NewSQLiteNormativeRepo(db db.DBTX) *SQLiteNormativeRepo {
	return &SQLiteNormativeRepo{db: db}
}

func (r *SQLiteNormativeRepo) Upsert(ctx context.Context, entries []domain.NormativeEntry) error {
	query := `INSERT INTO normatives (code, type, name) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET type = excluded.type, name = excluded.name`
	for _, e := range entries {
		if _, err := r.db.ExecContext(ctx, query, e.Code, e.Type, e.Name); err != nil {
			return fmt.Errorf("upserting normative %q: %w", e.Code, err)
		}
	}
	return nil
}

func (r *SQLiteNormativeRepo) BulkLookupByCode(ctx context.Context, codes []string) ([]domain.NormativeEntry, error) {
	var out []domain.NormativeEntry
	for _, chunk := range chunkIDs(codes, maxInParams) {
		query := `SELECT code, type, name FROM normatives WHERE code IN (` + placeholders(len(chunk)) + `)`
		rows, err := r.db.QueryContext(ctx, query, inArgs(nil, chunk)...)
		if err != nil {
			return nil, fmt.Errorf("looking up normatives: %w", err)
		}
		for rows.Next() {
			var e domain.NormativeEntry
			if err := rows.Scan(&e.Code, &e.Type, &e.Name); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning normative row: %w", err)
			}
			out = append(out, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating normatives: %w", err)
		}
	}
	return out, nil
}
