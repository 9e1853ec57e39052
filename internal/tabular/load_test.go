package tabular

import (
	"context"
	"database/sql"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "tabula/internal/db"
	"tabula/internal/domain"
)

func beginTx(t *testing.T) (*sql.DB, *sql.Tx) {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)
	tx, err := writeDB.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Rollback() })
	return writeDB, tx
}

func tableRows(t *testing.T, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, table string) [][]any {
	t.Helper()
	rows, err := q.QueryContext(context.Background(), "SELECT * FROM "+QuoteIdent(table))
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		for i, v := range vals {
			vals[i] = jsonValue(v)
		}
		out = append(out, vals)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	writeDB, tx := beginTx(t)

	src, err := Parse("id,name,city\n1,alice,paris\n2,bob\n3,carol,rome,extra\n", ',')
	require.NoError(t, err)

	stats, err := Ingest(ctx, tx, "dataset_t1", src, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Rows)
	assert.Equal(t, int64(1), stats.PaddedRows)
	assert.Equal(t, int64(1), stats.DroppedFields)
	require.NoError(t, tx.Commit())

	got := tableRows(t, writeDB, "dataset_t1")
	assert.Equal(t, [][]any{
		{"1", "alice", "paris"},
		{"2", "bob", nil},
		{"3", "carol", "rome"},
	}, got)

	var colCount int
	require.NoError(t, writeDB.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('dataset_t1')`).Scan(&colCount))
	assert.Equal(t, 3, colCount)
}

func TestIngest_HeaderWithSpaces(t *testing.T) {
	ctx := context.Background()
	writeDB, tx := beginTx(t)

	src, err := Parse("First Name, Last Name ,\"Age\"\nAda,Lovelace,36\n", ',')
	require.NoError(t, err)
	_, err = Ingest(ctx, tx, "dataset_people", src, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	rows, err := writeDB.Query(`SELECT name FROM pragma_table_info('dataset_people') ORDER BY cid`)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"First Name", "Last Name", "Age"}, names)
	assert.Equal(t, [][]any{{"Ada", "Lovelace", "36"}}, tableRows(t, writeDB, "dataset_people"))
}

func TestIngest_HeaderOnly(t *testing.T) {
	ctx := context.Background()
	_, tx := beginTx(t)

	src, err := Parse("a,b\n", ',')
	require.NoError(t, err)
	stats, err := Ingest(ctx, tx, "dataset_empty", src, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Rows)
	assert.Empty(t, tableRows(t, tx, "dataset_empty"))
}

func TestMaterialize_ExistingRelation(t *testing.T) {
	ctx := context.Background()
	_, tx := beginTx(t)

	require.NoError(t, Materialize(ctx, tx, "dataset_dup", []string{"a"}))

	err := Materialize(ctx, tx, "dataset_dup", []string{"a"})
	var tce *domain.TableCreationError
	require.ErrorAs(t, err, &tce)
	assert.Equal(t, "dataset_dup", tce.Table)

	t.Run("system table names are taken", func(t *testing.T) {
		err := Materialize(ctx, tx, "queries", []string{"a"})
		require.ErrorAs(t, err, &tce)
	})
}

func TestMaterialize_NoColumns(t *testing.T) {
	_, tx := beginTx(t)
	err := Materialize(context.Background(), tx, "dataset_nocols", nil)
	var tce *domain.TableCreationError
	require.ErrorAs(t, err, &tce)
}

func TestMaterialize_StoreRejectsDuplicateColumns(t *testing.T) {
	_, tx := beginTx(t)
	err := Materialize(context.Background(), tx, "dataset_dupcols", []string{"a", "a"})
	var tce *domain.TableCreationError
	require.ErrorAs(t, err, &tce)
}

func TestLoad_StoreErrorIsIngestionError(t *testing.T) {
	ctx := context.Background()
	_, tx := beginTx(t)

	_, err := tx.ExecContext(ctx, `CREATE TABLE "dataset_strict" ("a" TEXT NOT NULL)`)
	require.NoError(t, err)

	rows := slices.Values([][]string{{"ok"}, {}})
	stats, err := Load(ctx, tx, "dataset_strict", 1, rows, nil)
	var ie *domain.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Row)
	assert.Equal(t, int64(1), stats.Rows)
}

func TestLoad_CanceledContext(t *testing.T) {
	_, tx := beginTx(t)
	require.NoError(t, Materialize(context.Background(), tx, "dataset_cancel", []string{"a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, tx, "dataset_cancel", 1, slices.Values([][]string{{"x"}}), nil)
	var ie *domain.IngestionError
	require.ErrorAs(t, err, &ie)
}
