package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

// sectionColumns is the canonical SELECT column list for sections.
const sectionColumns = `id, estimate_id, parent_section_id, section_number, sort_order, name,
		created_at, updated_at`

// SQLiteSectionRepo implements SectionRepo using a SQLite database.
type SQLiteSectionRepo struct {
	db db.DBTX
}

// NewSQLiteSectionRepo creates a new SQLiteSectionRepo.
func NewSQLiteSectionRepo(db db.DBTX) *SQLiteSectionRepo {
	return &SQLiteSectionRepo{db: db}
}

func (r *SQLiteSectionRepo) Create(ctx context.Context, s *domain.Section) error {
	query := `INSERT INTO sections (` + sectionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.EstimateID,
		s.ParentSectionID, // *string: nil becomes SQL NULL
		s.SectionNumber,
		s.SortOrder,
		s.Name,
		timestamp(s.CreatedAt),
		timestamp(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting section: %w", err)
	}
	return nil
}

func (r *SQLiteSectionRepo) GetByID(ctx context.Context, id string) (*domain.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE id = ?`
	s, err := scanSection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("section: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning section: %w", err)
	}
	return s, nil
}

// ListByEstimate returns every section of the estimate in one query. Rows are
// ordered by sort_order so siblings keep their relative order when grouped.
func (r *SQLiteSectionRepo) ListByEstimate(ctx context.Context, estimateID string) ([]*domain.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sections WHERE estimate_id = ?
		ORDER BY sort_order, created_at, id`
	rows, err := r.db.QueryContext(ctx, query, estimateID)
	if err != nil {
		return nil, fmt.Errorf("listing sections by estimate: %w", err)
	}
	defer rows.Close()
	return scanSections(rows)
}

func (r *SQLiteSectionRepo) ListByParent(ctx context.Context, estimateID string, parentID *string) ([]*domain.Section, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == nil {
		query := `SELECT ` + sectionColumns + ` FROM sections
			WHERE estimate_id = ? AND parent_section_id IS NULL
			ORDER BY sort_order, created_at, id`
		rows, err = r.db.QueryContext(ctx, query, estimateID)
	} else {
		query := `SELECT ` + sectionColumns + ` FROM sections
			WHERE estimate_id = ? AND parent_section_id = ?
			ORDER BY sort_order, created_at, id`
		rows, err = r.db.QueryContext(ctx, query, estimateID, *parentID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing sections by parent: %w", err)
	}
	defer rows.Close()
	return scanSections(rows)
}

func (r *SQLiteSectionRepo) Update(ctx context.Context, s *domain.Section) error {
	query := `UPDATE sections SET parent_section_id = ?, section_number = ?, sort_order = ?,
		name = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.ParentSectionID,
		s.SectionNumber,
		s.SortOrder,
		s.Name,
		timestamp(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating section: %w", err)
	}
	return requireOneRow(res, "section")
}

func (r *SQLiteSectionRepo) UpdateNumbering(ctx context.Context, id string, sortOrder int, number string) error {
	query := `UPDATE sections SET sort_order = ?, section_number = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, sortOrder, number, id)
	if err != nil {
		return fmt.Errorf("renumbering section: %w", err)
	}
	return requireOneRow(res, "section")
}

func (r *SQLiteSectionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting section: %w", err)
	}
	return requireOneRow(res, "section")
}

func requireOneRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}

func scanSections(rows *sql.Rows) ([]*domain.Section, error) {
	var sections []*domain.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning section row: %w", err)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sections: %w", err)
	}
	return sections, nil
}

func scanSection(row rowScanner) (*domain.Section, error) {
	var s domain.Section
	var parentID sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&s.ID, &s.EstimateID, &parentID, &s.SectionNumber, &s.SortOrder, &s.Name,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	s.ParentSectionID = stringPtr(parentID)

	var err error
	if s.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}
