package domain

import (
	"context"
	"database/sql"
	"io"
)

// QueryExecutor runs a read-only statement and returns its native records.
// Implemented by engine.Executor.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlQuery string) (records []Record, durationMs int64, err error)
}

// TableBuilder materializes and loads a dataset table inside tx and returns
// the number of data rows it loaded.
type TableBuilder func(ctx context.Context, tx *sql.Tx) (rowCount int64, err error)

// ObjectArchive stores raw uploads. Implemented by the storage package
// for the local filesystem, S3, GCS and Azure Blob Storage.
type ObjectArchive interface {
	Put(ctx context.Context, key string, r io.Reader) (location string, err error)
	Delete(ctx context.Context, key string) error
}

// HistoryRecorder accepts finished query records for durable storage.
// Implemented by query.Recorder.
type HistoryRecorder interface {
	Record(rec QueryRecord)
}
