package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/smeta/internal/db"
	"github.com/alexanderramin/smeta/internal/domain"
)

const estimateColumns = `id, organization_id, name, snapshot_path, snapshot_version, snapshot_at,
		created_at, updated_at`

// SQLiteEstimateRepo implements EstimateRepo using a SQLite database.
type SQLiteEstimateRepo struct {
	db db.DBTX
}

// NewSQLiteEstimateRepo creates a new SQLiteEstimateRepo.
func NewSQLiteEstimateRepo(db db.DBTX) *SQLiteEstimateRepo {
	return &SQLiteEstimateRepo{db: db}
}

func (r *SQLiteEstimateRepo) Create(ctx context.Context, e *domain.Estimate) error {
	query := `INSERT INTO estimates (` + estimateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.OrganizationID,
		e.Name,
		e.SnapshotPath,
		e.SnapshotVersion,
		nullableTimeToString(e.SnapshotAt, time.RFC3339),
		timestamp(e.CreatedAt),
		timestamp(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting estimate: %w", err)
	}
	return nil
}

func (r *SQLiteEstimateRepo) GetByID(ctx context.Context, id string) (*domain.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates WHERE id = ?`
	e, err := scanEstimate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("estimate: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning estimate: %w", err)
	}
	return e, nil
}

func (r *SQLiteEstimateRepo) List(ctx context.Context) ([]*domain.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing estimates: %w", err)
	}
	defer rows.Close()

	var estimates []*domain.Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning estimate row: %w", err)
		}
		estimates = append(estimates, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating estimates: %w", err)
	}
	return estimates, nil
}

func (r *SQLiteEstimateRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM estimates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting estimate: %w", err)
	}
	return nil
}

func (r *SQLiteEstimateRepo) SwapSnapshotPointer(ctx context.Context, id, expectedPath, newPath string, at time.Time) (bool, error) {
	query := `UPDATE estimates
		SET snapshot_path = ?, snapshot_version = snapshot_version + 1, snapshot_at = ?, updated_at = ?
		WHERE id = ? AND snapshot_path = ?`
	res, err := r.db.ExecContext(ctx, query, newPath, timestamp(at), timestamp(at), id, expectedPath)
	if err != nil {
		return false, fmt.Errorf("swapping snapshot pointer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading swap result: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEstimate(row rowScanner) (*domain.Estimate, error) {
	var e domain.Estimate
	var snapshotAt sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(
		&e.ID, &e.OrganizationID, &e.Name, &e.SnapshotPath, &e.SnapshotVersion, &snapshotAt,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	e.SnapshotAt = parseNullableTime(snapshotAt, time.RFC3339)

	var err error
	if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &e, nil
}
