package repository

import (
	"context"
	"database/sql"
	"time"

	"tabula/internal/domain"
)

var _ domain.QueryHistoryRepository = (*QueryHistoryRepo)(nil)

// QueryHistoryRepo implements domain.QueryHistoryRepository over the
// queries table. Records are append-only.
type QueryHistoryRepo struct {
	db *sql.DB
}

// NewQueryHistoryRepo creates a new QueryHistoryRepo.
func NewQueryHistoryRepo(db *sql.DB) *QueryHistoryRepo {
	return &QueryHistoryRepo{db: db}
}

// Insert appends a query record.
func (r *QueryHistoryRepo) Insert(ctx context.Context, rec *domain.QueryRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO queries (id, user_id, dataset_id, sql, status, error_message, duration_ms, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OwnerID, nullString(rec.DatasetID), rec.SQL, string(rec.Status),
		nullString(rec.ErrorMessage), rec.DurationMs, rec.RowCount, formatTime(rec.CreatedAt))
	return mapDBError(err)
}

// List returns the owner's most recent records, newest first.
func (r *QueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryRecord, error) {
	query := `SELECT id, user_id, dataset_id, sql, status, error_message, duration_ms, row_count, created_at
		FROM queries WHERE user_id = ?`
	args := []any{filter.OwnerID}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, domain.HistoryLimit(filter.Limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.QueryRecord
	for rows.Next() {
		var (
			rec       domain.QueryRecord
			datasetID sql.NullString
			errMsg    sql.NullString
			status    string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &datasetID, &rec.SQL, &status, &errMsg,
			&rec.DurationMs, &rec.RowCount, &createdAt); err != nil {
			return nil, err
		}
		rec.DatasetID = stringPtr(datasetID)
		rec.ErrorMessage = stringPtr(errMsg)
		rec.Status = domain.QueryStatus(status)
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
