package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

// SQLiteUnitRepo implements UnitRepo. Units are deduplicated by symbol.
type SQLiteUnitRepo struct {
	db db.DBTX
}

func NewSQLiteUnitRepo(db db.DBTX) *SQLiteUnitRepo {
	return &SQLiteUnitRepo{db: db}
}

func (r *SQLiteUnitRepo) GetOrCreate(ctx context.Context, symbol string) (*domain.Unit, error) {
	symbol = strings.TrimSpace(symbol)
	id, err := getOrCreateByKey(ctx, r.db, "units", "symbol", symbol)
	if err != nil {
		return nil, fmt.Errorf("resolving unit %q: %w", symbol, err)
	}
	return &domain.Unit{ID: id, Symbol: symbol}, nil
}

func (r *SQLiteUnitRepo) ListByIDs(ctx context.Context, ids []string) (map[string]domain.Unit, error) {
	out := make(map[string]domain.Unit, len(ids))
	err := listKeyedByIDs(ctx, r.db, "units", "symbol", ids, func(id, value string) {
		out[id] = domain.Unit{ID: id, Symbol: value}
	})
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	return out, nil
}

// SQLiteWorkTypeRepo implements WorkTypeRepo. Work types are deduplicated by name.
type SQLiteWorkTypeRepo struct {
	db db.DBTX
}

func NewSQLiteWorkTypeRepo(db db.DBTX) *SQLiteWorkTypeRepo {
	return &SQLiteWorkTypeRepo{db: db}
}

func (r *SQLiteWorkTypeRepo) GetOrCreate(ctx context.Context, name string) (*domain.WorkType, error) {
	name = strings.TrimSpace(name)
	id, err := getOrCreateByKey(ctx, r.db, "work_types", "name", name)
	if err != nil {
		return nil, fmt.Errorf("resolving work type %q: %w", name, err)
	}
	return &domain.WorkType{ID: id, Name: name}, nil
}

func (r *SQLiteWorkTypeRepo) ListByIDs(ctx context.Context, ids []string) (map[string]domain.WorkType, error) {
	out := make(map[string]domain.WorkType, len(ids))
	err := listKeyedByIDs(ctx, r.db, "work_types", "name", ids, func(id, value string) {
		out[id] = domain.WorkType{ID: id, Name: value}
	})
	if err != nil {
		return nil, fmt.Errorf("listing work types: %w", err)
	}
	return out, nil
}

// getOrCreateByKey returns the id of the row whose unique column equals key,
// inserting a fresh row when none exists. Table and column names are
// package constants, never user input.
func getOrCreateByKey(ctx context.Context, q db.DBTX, table, column, key string) (string, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO `+table+` (id, `+column+`) VALUES (?, ?) ON CONFLICT(`+column+`) DO NOTHING`,
		uuid.New().String(), key)
	if err != nil {
		return "", fmt.Errorf("inserting: %w", err)
	}
	var id string
	err = q.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE `+column+` = ?`, key).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("selecting: %w", err)
	}
	return id, nil
}

func listKeyedByIDs(ctx context.Context, q db.DBTX, table, column string, ids []string, fn func(id, value string)) error {
	for _, chunk := range chunkIDs(ids, maxInParams) {
		query := `SELECT id, ` + column + ` FROM ` + table + ` WHERE id IN (` + placeholders(len(chunk)) + `)`
		rows, err := q.QueryContext(ctx, query, inArgs(nil, chunk)...)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id, value string
			if err := rows.Scan(&id, &value); err != nil {
				rows.Close()
				return fmt.Errorf("scanning row: %w", err)
			}
			fn(id, value)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
