// Package engine executes ad-hoc read statements against the embedded store.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"tabula/internal/domain"
)

// Compile-time check.
var _ domain.QueryExecutor = (*Executor)(nil)

// Executor runs read-only statements on the read pool and returns native
// records. The read pool is opened query-only, so the keyword guard is not
// the only line of defense against writes.
type Executor struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutor creates an Executor over the read pool.
func NewExecutor(readDB *sql.DB, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{db: readDB, logger: logger.With("component", "executor")}
}

// IsReadStatement reports whether the first keyword of sqlQuery is SELECT,
// ignoring case and leading whitespace.
func IsReadStatement(sqlQuery string) bool {
	s := strings.TrimLeftFunc(sqlQuery, unicode.IsSpace)
	const kw = "select"
	if len(s) < len(kw) || !strings.EqualFold(s[:len(kw)], kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	next := rune(s[len(kw)])
	return !(unicode.IsLetter(next) || unicode.IsDigit(next) || next == '_' || next == '$')
}

// Execute rejects non-read statements with domain.QueryRejectedError before
// touching the store. Otherwise it runs the statement and returns every
// record with the wall-clock duration in milliseconds. Store failures are
// wrapped in domain.QueryExecutionError and still report the duration.
func (e *Executor) Execute(ctx context.Context, sqlQuery string) ([]domain.Record, int64, error) {
	if !IsReadStatement(sqlQuery) {
		return nil, 0, domain.ErrQueryRejected("only SELECT statements are allowed")
	}

	start := time.Now()
	records, err := e.run(ctx, sqlQuery)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		e.logger.Debug("query failed", "duration_ms", duration, "error", err)
		return nil, duration, &domain.QueryExecutionError{Err: err}
	}
	return records, duration, nil
}

func (e *Executor) run(ctx context.Context, sqlQuery string) ([]domain.Record, error) {
	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	records := []domain.Record{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(domain.Record, len(cols))
		for i, name := range cols {
			rec[i] = domain.Field{Name: name, Value: vals[i]}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
