package tabular

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"tabula/internal/domain"
)

// LoadStats summarizes one bulk load.
type LoadStats struct {
	Rows          int64 // data rows inserted
	PaddedRows    int64 // rows shorter than the header, padded with NULL
	DroppedFields int64 // fields beyond the header width, discarded
}

// Load inserts every row into table through one prepared statement on s.
// s is expected to be the caller's transaction so a failure leaves nothing
// behind once the caller rolls back. Short rows are padded with NULL and
// extra fields are dropped.
func Load(ctx context.Context, s Store, table string, width int, rows iter.Seq[[]string], logger *slog.Logger) (LoadStats, error) {
	var stats LoadStats
	if logger == nil {
		logger = slog.Default()
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", width), ", ")
	stmt, err := s.PrepareContext(ctx, "INSERT INTO "+QuoteIdent(table)+" VALUES ("+placeholders+")")
	if err != nil {
		return stats, &domain.IngestionError{Table: table, Err: err}
	}
	defer stmt.Close() //nolint:errcheck

	args := make([]any, width)
	for fields := range rows {
		if err := ctx.Err(); err != nil {
			return stats, &domain.IngestionError{Table: table, Row: int(stats.Rows) + 1, Err: err}
		}
		switch {
		case len(fields) < width:
			stats.PaddedRows++
		case len(fields) > width:
			stats.DroppedFields += int64(len(fields) - width)
		}
		for i := range args {
			if i < len(fields) {
				args[i] = fields[i]
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return stats, &domain.IngestionError{Table: table, Row: int(stats.Rows) + 1, Err: err}
		}
		stats.Rows++
	}

	if stats.DroppedFields > 0 {
		logger.Warn("extra fields dropped during load",
			"table", table,
			"dropped_fields", stats.DroppedFields,
		)
	}
	return stats, nil
}

// Ingest materializes the table for src and loads its rows.
func Ingest(ctx context.Context, s Store, table string, src Source, logger *slog.Logger) (LoadStats, error) {
	columns := ColumnNames(src.Header)
	if err := Materialize(ctx, s, table, columns); err != nil {
		return LoadStats{}, err
	}
	return Load(ctx, s, table, len(columns), src.Rows, logger)
}
