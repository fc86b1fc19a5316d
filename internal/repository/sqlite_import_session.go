package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

const importSessionColumns = `id, estimate_id, file_name, status, total_rows, classified_rows,
		unclassified_rows, error, created_at, updated_at`

// SQLiteImportSessionRepo implements ImportSessionRepo using a SQLite database.
type SQLiteImportSessionRepo struct {
	db db.DBTX
}

func NewSQLiteImportSessionRepo(db db.DBTX) *SQLiteImportSessionRepo {
	return &SQLiteImportSessionRepo{db: db}
}

func (r *SQLiteImportSessionRepo) Create(ctx context.Context, s *domain.ImportSession) error {
	query := `INSERT INTO import_sessions (` + importSessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.EstimateID, s.FileName, string(s.Status),
		s.TotalRows, s.ClassifiedRows, s.UnclassifiedRows, s.Error,
		timestamp(s.CreatedAt), timestamp(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting import session: %w", err)
	}
	return nil
}

func (r *SQLiteImportSessionRepo) GetByID(ctx context.Context, id string) (*domain.ImportSession, error) {
	query := `SELECT ` + importSessionColumns + ` FROM import_sessions WHERE id = ?`
	var s domain.ImportSession
	var status, createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.EstimateID, &s.FileName, &status,
		&s.TotalRows, &s.ClassifiedRows, &s.UnclassifiedRows, &s.Error,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("import session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning import session: %w", err)
	}
	s.Status = domain.ImportStatus(status)
	if s.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &s, nil
}

// GetStatus reads only the status column. The importer polls it between
// chunks to notice cancellation.
func (r *SQLiteImportSessionRepo) GetStatus(ctx context.Context, id string) (domain.ImportStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM import_sessions WHERE id = ?`, id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("import session: %w", ErrNotFound)
		}
		return "", fmt.Errorf("reading import status: %w", err)
	}
	return domain.ImportStatus(status), nil
}

func (r *SQLiteImportSessionRepo) Update(ctx context.Context, s *domain.ImportSession) error {
	query := `UPDATE import_sessions SET status = ?, total_rows = ?, classified_rows = ?,
		unclassified_rows = ?, error = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(s.Status), s.TotalRows, s.ClassifiedRows, s.UnclassifiedRows, s.Error,
		timestamp(s.UpdatedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating import session: %w", err)
	}
	return requireOneRow(res, "import session")
}

func (r *SQLiteImportSessionRepo) MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	query := `UPDATE import_sessions SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND status NOT IN (?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		string(domain.ImportFailed), reason, timestamp(at), id,
		string(domain.ImportCompleted), string(domain.ImportFailed),
	)
	if err != nil {
		return false, fmt.Errorf("marking import session failed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n == 1, nil
}
