// Package ingestion turns uploaded delimited text into datasets.
package ingestion

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path"

	"tabula/internal/domain"
	"tabula/internal/tabular"
)

// IngestionService archives raw uploads and loads them into per-dataset
// tables. A dataset and its table are created in one write transaction, so
// a failed upload leaves neither behind.
//
//nolint:revive // Name chosen for clarity across package boundaries
type IngestionService struct {
	datasets domain.DatasetRepository
	archive  domain.ObjectArchive
	logger   *slog.Logger
}

// NewIngestionService creates a new IngestionService. archive may be nil, in
// which case raw uploads are not kept.
func NewIngestionService(datasets domain.DatasetRepository, archive domain.ObjectArchive, logger *slog.Logger) *IngestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionService{
		datasets: datasets,
		archive:  archive,
		logger:   logger.With("component", "ingestion"),
	}
}

// Upload ingests r as a new dataset owned by the caller.
func (s *IngestionService) Upload(ctx context.Context, req domain.UploadRequest, r io.Reader) (*domain.Dataset, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, _, err := tabular.Detect(req.Filename); err != nil {
		return nil, err
	}
	if !tabular.SupportedCharset(req.Charset) {
		return nil, domain.ErrValidation("unsupported charset %q", req.Charset)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	id := domain.NewID()
	key := path.Join(id, req.Filename)

	var location string
	if s.archive != nil {
		location, err = s.archive.Put(ctx, key, bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("archive upload: %w", err)
		}
	}

	src, err := tabular.OpenSource(req.Filename, bytes.NewReader(raw), req.Charset)
	if err != nil {
		s.discard(key)
		return nil, err
	}

	table := tabular.TableName(id)
	ds := &domain.Dataset{
		ID:          id,
		OwnerID:     owner,
		Name:        req.Name,
		SourceKind:  req.Source,
		StoragePath: location,
		TableName:   table,
	}

	created, err := s.datasets.CreateWithTable(ctx, ds, func(ctx context.Context, tx *sql.Tx) (int64, error) {
		stats, err := tabular.Ingest(ctx, tx, table, src, s.logger)
		return stats.Rows, err
	})
	if err != nil {
		s.discard(key)
		s.logger.Warn("ingestion failed", "dataset_id", id, "file", req.Filename, "error", err)
		return nil, err
	}

	s.logger.Info("dataset ingested",
		"dataset_id", created.ID,
		"owner", owner,
		"table", created.TableName,
		"rows", created.RowCount,
		"source", created.SourceKind,
	)
	return created, nil
}

// List returns the caller's datasets, newest first.
func (s *IngestionService) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.datasets.List(ctx, owner, page)
}

// Get returns one of the caller's datasets. Datasets owned by someone else
// are reported as not found.
func (s *IngestionService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	ds, err := s.datasets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ds.OwnerID != owner {
		return nil, domain.ErrNotFound("dataset %q not found", id)
	}
	return ds, nil
}

// Schema returns the physical columns of one of the caller's datasets.
func (s *IngestionService) Schema(ctx context.Context, id string) (*domain.Dataset, []domain.ColumnInfo, error) {
	ds, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	cols, err := s.datasets.Columns(ctx, ds.TableName)
	if err != nil {
		return nil, nil, err
	}
	return ds, cols, nil
}

// discard removes an archived upload after a failed ingestion.
func (s *IngestionService) discard(key string) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Delete(context.Background(), key); err != nil {
		s.logger.Warn("archived upload not removed", "key", key, "error", err)
	}
}
