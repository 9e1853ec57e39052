package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tabula/internal/domain"
)

var _ domain.DatasetRepository = (*DatasetRepo)(nil)

// DatasetRepo implements domain.DatasetRepository. Writes go through the
// single-connection write pool; lookups use the read pool.
type DatasetRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewDatasetRepo creates a new DatasetRepo. readDB may equal writeDB.
func NewDatasetRepo(writeDB, readDB *sql.DB) *DatasetRepo {
	if readDB == nil {
		readDB = writeDB
	}
	return &DatasetRepo{writeDB: writeDB, readDB: readDB}
}

const datasetColumns = `id, user_id, name, source_type, file_path, table_name, row_count, created_at, updated_at`

// CreateWithTable runs build and inserts the dataset row in one transaction.
func (r *DatasetRepo) CreateWithTable(ctx context.Context, d *domain.Dataset, build domain.TableBuilder) (*domain.Dataset, error) {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rowCount, err := build(ctx, tx)
	if err != nil {
		return nil, err
	}

	out := *d
	out.RowCount = rowCount
	now := time.Now().UTC()
	out.CreatedAt = now
	out.UpdatedAt = now

	if err := insertDataset(ctx, tx, &out); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingestion tx: %w", err)
	}
	return &out, nil
}

func insertDataset(ctx context.Context, q DBTX, d *domain.Dataset) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO datasets (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Name, string(d.SourceKind), d.StoragePath, d.TableName, d.RowCount,
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	return mapDBError(err)
}

// GetByID returns a dataset by id.
func (r *DatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	row := r.readDB.QueryRowContext(ctx, `SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	d, err := scanDataset(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return d, nil
}

// List returns a page of the owner's datasets, newest first.
func (r *DatasetRepo) List(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	var total int64
	if err := r.readDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM datasets WHERE user_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.readDB.QueryContext(ctx,
		`SELECT `+datasetColumns+` FROM datasets WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		ownerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// Columns returns the physical column list of a dataset table.
func (r *DatasetRepo) Columns(ctx context.Context, tableName string) ([]domain.ColumnInfo, error) {
	rows, err := r.readDB.QueryContext(ctx, `PRAGMA table_info(`+quoteIdent(tableName)+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.ColumnInfo
	for rows.Next() {
		var (
			c       domain.ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&c.Position, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, domain.ErrNotFound("table %q not found", tableName)
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(s rowScanner) (*domain.Dataset, error) {
	var (
		d                    domain.Dataset
		source               string
		createdAt, updatedAt string
	)
	if err := s.Scan(&d.ID, &d.OwnerID, &d.Name, &source, &d.StoragePath, &d.TableName,
		&d.RowCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.SourceKind = domain.SourceKind(source)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}
