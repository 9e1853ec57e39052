package tabular

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tabula/internal/domain"
)

// Store is the subset of *sql.Tx used to materialize and load tables.
type Store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// TableName derives the physical table name reserved for a dataset.
func TableName(datasetID string) string {
	return "dataset_" + domain.CompactID(datasetID)
}

// ColumnNames trims each header field and strips quote characters.
// Names are kept verbatim otherwise: duplicates and odd characters are
// passed through to the store.
func ColumnNames(header []string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}
	return cols
}

// CreateTableSQL renders the DDL for a table of TEXT columns.
func CreateTableSQL(table string, columns []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(QuoteIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(c))
		b.WriteString(" TEXT")
	}
	b.WriteString(")")
	return b.String()
}

// Materialize creates table with one TEXT column per name. It fails with
// domain.TableCreationError when a relation of that name already exists or
// the store rejects the statement.
func Materialize(ctx context.Context, s Store, table string, columns []string) error {
	var exists int
	err := s.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE name = ?`, table).Scan(&exists)
	if err != nil {
		return &domain.TableCreationError{Table: table, Err: fmt.Errorf("check existence: %w", err)}
	}
	if exists > 0 {
		return &domain.TableCreationError{Table: table, Err: errors.New("relation already exists")}
	}
	if len(columns) == 0 {
		return &domain.TableCreationError{Table: table, Err: errors.New("header has no fields")}
	}
	if _, err := s.ExecContext(ctx, CreateTableSQL(table, columns)); err != nil {
		return &domain.TableCreationError{Table: table, Err: err}
	}
	return nil
}

// QuoteIdent double-quotes an SQLite identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
