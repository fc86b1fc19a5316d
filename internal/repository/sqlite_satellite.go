package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

// Satellite tables hang off line items and are only ever read in bulk, keyed
// by the full id set of an estimate's items.

// SQLiteResourceRepo implements ResourceRepo.
type SQLiteResourceRepo struct {
	db db.DBTX
}

func NewSQLiteResourceRepo(db db.DBTX) *SQLiteResourceRepo {
	return &SQLiteResourceRepo{db: db}
}

func (r *SQLiteResourceRepo) Create(ctx context.Context, res *domain.ItemResource) error {
	query := `INSERT INTO item_resources (id, item_id, kind, code, name, unit, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.ItemID, string(res.Kind), res.Code, res.Name, res.Unit, res.Quantity)
	if err != nil {
		return fmt.Errorf("inserting item resource: %w", err)
	}
	return nil
}

func (r *SQLiteResourceRepo) ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemResource, error) {
	out := make(map[string][]domain.ItemResource)
	for _, chunk := range chunkIDs(itemIDs, maxInParams) {
		query := `SELECT id, item_id, kind, code, name, unit, quantity FROM item_resources
			WHERE item_id IN (` + placeholders(len(chunk)) + `) ORDER BY item_id, rowid`
		rows, err := r.db.QueryContext(ctx, query, inArgs(nil, chunk)...)
		if err != nil {
			return nil, fmt.Errorf("listing item resources: %w", err)
		}
		for rows.Next() {
			var res domain.ItemResource
			var kind string
			if err := rows.Scan(&res.ID, &res.ItemID, &kind, &res.Code, &res.Name, &res.Unit, &res.Quantity); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning item resource row: %w", err)
			}
			res.Kind = domain.ResourceKind(kind)
			out[res.ItemID] = append(out[res.ItemID], res)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating item resources: %w", err)
		}
	}
	return out, nil
}

func (r *SQLiteResourceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM item_resources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item resource: %w", err)
	}
	return requireOneRow(res, "item resource")
}

// SQLiteTotalRepo implements TotalRepo.
type SQLiteTotalRepo struct {
	db db.DBTX
}

func NewSQLiteTotalRepo(db db.DBTX) *SQLiteTotalRepo {
	return &SQLiteTotalRepo{db: db}
}

func (r *SQLiteTotalRepo) Create(ctx context.Context, t *domain.ItemTotal) error {
	query := `INSERT INTO item_totals (id, item_id, name, amount) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.ItemID, t.Name, t.Amount); err != nil {
		return fmt.Errorf("inserting item total: %w", err)
	}
	return nil
}

func (r *SQLiteTotalRepo) ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemTotal, error) {
	out := make(map[string][]domain.ItemTotal)
	for _, chunk := range chunkIDs(itemIDs, maxInParams) {
		query := `SELECT id, item_id, name, amount FROM item_totals
			WHERE item_id IN (` + placeholders(len(chunk)) + `) ORDER BY item_id, rowid`
		rows, err := r.db.QueryContext(ctx, query, inArgs(nil, chunk)...)
		if err != nil {
			return nil, fmt.Errorf("listing item totals: %w", err)
		}
		for rows.Next() {
			var t domain.ItemTotal
			if err := rows.Scan(&t.ID, &t.ItemID, &t.Name, &t.Amount); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning item total row: %w", err)
			}
			out[t.ItemID] = append(out[t.ItemID], t)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating item totals: %w", err)
		}
	}
	return out, nil
}

func (r *SQLiteTotalRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM item_totals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item total: %w", err)
	}
	return requireOneRow(res, "item total")
}

// SQLiteSubWorkRepo implements SubWorkRepo.
type SQLiteSubWorkRepo struct {
	db db.DBTX
}

func NewSQLiteSubWorkRepo(db db.DBTX) *SQLiteSubWorkRepo {
	return &SQLiteSubWorkRepo{db: db}
}

func (r *SQLiteSubWorkRepo) Create(ctx context.Context, w *domain.ItemSubWork) error {
	query := `INSERT INTO item_sub_works (id, item_id, code, name, quantity) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, w.ID, w.ItemID, w.Code, w.Name, w.Quantity); err != nil {
		return fmt.Errorf("inserting item sub-work: %w", err)
	}
	return nil
}

func (r *SQLiteSubWorkRepo) ListByItemIDs(ctx context.Context, itemIDs []string) (map[string][]domain.ItemSubWork, error) {
	out := make(map[string][]domain.ItemSubWork)
	for _, chunk := range chunkIDs(itemIDs, maxInParams) {
		query := `SELECT id, item_id, code, name, quantity FROM item_sub_works
			WHERE item_id IN (` + placeholders(len(chunk)) + `) ORDER BY item_id, rowid`
		rows, err := r.db.QueryContext(ctx, query, inArgs(nil, chunk)...)
		if err != nil {
			return nil, fmt.Errorf("listing item sub-works: %w", err)
		}
		for rows.Next() {
			var w domain.ItemSubWork
			if err := rows.Scan(&w.ID, &w.ItemID, &w.Code, &w.Name, &w.Quantity); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning item sub-work row: %w", err)
			}
			out[w.ItemID] = append(out[w.ItemID], w)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating item sub-works: %w", err)
		}
	}
	return out, nil
}

func (r *SQLiteSubWorkRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM item_sub_works WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item sub-work: %w", err)
	}
	return requireOneRow(res, "item sub-work")
}
