package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

const lineItemColumns = `id, estimate_id, section_id, parent_item_id, position_number, sort_order,
		code, name, quantity, price, unit_id, work_type_id,
		classification_label, classification_confidence, classification_source,
		created_at, updated_at`

// SQLiteLineItemRepo implements LineItemRepo using a SQLite database.
type SQLiteLineItemRepo struct {
	db db.DBTX
}

// NewSQLiteLineItemRepo creates a new SQLiteLineItemRepo.
func NewSQLiteLineItemRepo(db db.DBTX) *SQLiteLineItemRepo {
	return &SQLiteLineItemRepo{db: db}
}

func (r *SQLiteLineItemRepo) Create(ctx context.Context, item *domain.LineItem) error {
	query := `INSERT INTO line_items (` + lineItemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.EstimateID,
		item.SectionID,
		item.ParentItemID,
		item.PositionNumber,
		item.SortOrder,
		item.Code,
		item.Name,
		item.Quantity,
		nullableFloatToValue(item.Price),
		item.UnitID,
		item.WorkTypeID,
		string(item.ClassificationLabel),
		item.ClassificationConfidence,
		string(item.ClassificationSource),
		timestamp(item.CreatedAt),
		timestamp(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting line item: %w", err)
	}
	return nil
}

func (r *SQLiteLineItemRepo) GetByID(ctx context.Context, id string) (*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items WHERE id = ?`
	item, err := scanLineItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("line item: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning line item: %w", err)
	}
	return item, nil
}

func (r *SQLiteLineItemRepo) ListByEstimate(ctx context.Context, estimateID string) ([]*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items WHERE estimate_id = ?
		ORDER BY sort_order, id`
	return r.list(ctx, query, estimateID)
}

func (r *SQLiteLineItemRepo) ListUnclassified(ctx context.Context, estimateID string) ([]*domain.LineItem, error) {
	query := `SELECT ` + lineItemColumns + ` FROM line_items
		WHERE estimate_id = ? AND classification_source = ?
		ORDER BY sort_order, id`
	return r.list(ctx, query, estimateID, string(domain.SourceUnclassified))
}

func (r *SQLiteLineItemRepo) list(ctx context.Context, query string, args ...any) ([]*domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	var items []*domain.LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning line item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating line items: %w", err)
	}
	return items, nil
}

// NextSortOrder returns the append position of the scope holding items with
// the given section and parent item. Nil ids select the NULL scope.
func (r *SQLiteLineItemRepo) NextSortOrder(ctx context.Context, estimateID string, sectionID, parentItemID *string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order) + 1, 0) FROM line_items
		WHERE estimate_id = ? AND section_id IS ? AND parent_item_id IS ?`,
		estimateID, sectionID, parentItemID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reading next item sort order: %w", err)
	}
	return next, nil
}

func (r *SQLiteLineItemRepo) Update(ctx context.Context, item *domain.LineItem) error {
	query := `UPDATE line_items SET section_id = ?, parent_item_id = ?, position_number = ?,
		sort_order = ?, code = ?, name = ?, quantity = ?, price = ?, unit_id = ?, work_type_id = ?,
		classification_label = ?, classification_confidence = ?, classification_source = ?,
		updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		item.SectionID,
		item.ParentItemID,
		item.PositionNumber,
		item.SortOrder,
		item.Code,
		item.Name,
		item.Quantity,
		nullableFloatToValue(item.Price),
		item.UnitID,
		item.WorkTypeID,
		string(item.ClassificationLabel),
		item.ClassificationConfidence,
		string(item.ClassificationSource),
		timestamp(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating line item: %w", err)
	}
	return requireOneRow(res, "line item")
}

func (r *SQLiteLineItemRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting line item: %w", err)
	}
	return requireOneRow(res, "line item")
}

func scanLineItem(row rowScanner) (*domain.LineItem, error) {
	var item domain.LineItem
	var sectionID, parentID, unitID, workTypeID sql.NullString
	var price sql.NullFloat64
	var label, source, createdAt, updatedAt string

	if err := row.Scan(
		&item.ID, &item.EstimateID, &sectionID, &parentID, &item.PositionNumber, &item.SortOrder,
		&item.Code, &item.Name, &item.Quantity, &price, &unitID, &workTypeID,
		&label, &item.ClassificationConfidence, &source,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	item.SectionID = stringPtr(sectionID)
	item.ParentItemID = stringPtr(parentID)
	item.UnitID = stringPtr(unitID)
	item.WorkTypeID = stringPtr(workTypeID)
	item.Price = floatPtr(price)
	item.ClassificationLabel = domain.Label(label)
	item.ClassificationSource = domain.Source(source)

	var err error
	if item.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &item, nil
}
