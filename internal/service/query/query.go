// Package query runs ad-hoc read queries and keeps the caller's query history.
package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tabula/internal/domain"
	"tabula/internal/tabular"
)

// QueryService executes ad-hoc statements, normalizes their results and
// hands one history record per executed statement to the recorder.
//
//nolint:revive // Name chosen for clarity across package boundaries
type QueryService struct {
	executor domain.QueryExecutor
	history  domain.QueryHistoryRepository
	recorder domain.HistoryRecorder
	datasets domain.DatasetRepository
	logger   *slog.Logger
}

// NewQueryService creates a new QueryService.
func NewQueryService(
	executor domain.QueryExecutor,
	history domain.QueryHistoryRepository,
	recorder domain.HistoryRecorder,
	logger *slog.Logger,
) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		executor: executor,
		history:  history,
		recorder: recorder,
		logger:   logger.With("component", "query"),
	}
}

// SetDatasetRepository enables ownership checks on the optional dataset id
// attached to a query. Without it the id is recorded as given.
func (s *QueryService) SetDatasetRepository(repo domain.DatasetRepository) {
	s.datasets = repo
}

// Execute runs sqlQuery for the caller. Rejected statements return
// domain.QueryRejectedError and leave no history. Every statement that
// reaches the store gets a fresh query id and exactly one history record,
// whether it succeeds or fails.
func (s *QueryService) Execute(ctx context.Context, datasetID *string, sqlQuery string) (*domain.QueryResult, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sqlQuery) == "" {
		return nil, domain.ErrValidation("sql query is required")
	}
	if err := s.checkDataset(ctx, owner, datasetID); err != nil {
		return nil, err
	}

	records, duration, err := s.executor.Execute(ctx, sqlQuery)
	var rejected *domain.QueryRejectedError
	if errors.As(err, &rejected) {
		return nil, err
	}

	id := domain.NewID()
	executedAt := time.Now().UTC()
	rec := domain.QueryRecord{
		ID:         id,
		OwnerID:    owner,
		DatasetID:  datasetID,
		SQL:        sqlQuery,
		DurationMs: duration,
		CreatedAt:  executedAt,
	}

	if err != nil {
		msg := err.Error()
		rec.Status = domain.QueryStatusError
		rec.ErrorMessage = &msg
		s.recorder.Record(rec)

		var qe *domain.QueryExecutionError
		if errors.As(err, &qe) {
			qe.QueryID = id
			return nil, qe
		}
		return nil, &domain.QueryExecutionError{QueryID: id, Err: err}
	}

	result := tabular.Normalize(records)
	rec.Status = domain.QueryStatusSuccess
	rec.RowCount = int64(result.RowCount())
	s.recorder.Record(rec)

	return &domain.QueryResult{
		QueryID:    id,
		Result:     result,
		DurationMs: duration,
		ExecutedAt: executedAt,
	}, nil
}

// ListHistory returns the caller's most recent query records, newest first.
func (s *QueryService) ListHistory(ctx context.Context, limit int, status *domain.QueryStatus) ([]domain.QueryRecord, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, domain.ErrValidation("invalid status %q: must be %q or %q",
			*status, domain.QueryStatusSuccess, domain.QueryStatusError)
	}
	if limit < 0 {
		return nil, domain.ErrValidation("limit must not be negative")
	}
	return s.history.List(ctx, domain.QueryHistoryFilter{
		OwnerID: owner,
		Status:  status,
		Limit:   limit,
	})
}

func (s *QueryService) checkDataset(ctx context.Context, owner string, datasetID *string) error {
	if datasetID == nil || s.datasets == nil {
		return nil
	}
	ds, err := s.datasets.GetByID(ctx, *datasetID)
	if err != nil {
		return err
	}
	if ds.OwnerID != owner {
		return domain.ErrNotFound("dataset %q not found", *datasetID)
	}
	return nil
}
