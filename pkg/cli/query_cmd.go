package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

type queryResponse struct {
	QueryID    string   `json:"query_id"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	DurationMs int64    `json:"duration_ms"`
	Timestamp  string   `json:"timestamp"`
}

func newQueryCmd(client *Client) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query",
		Example: `  tabula query "SELECT region, SUM(amount) FROM ds_sales GROUP BY region"
  tabula query "SELECT * FROM ds_sales" --dataset 0193f6c2-... -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{"sql": args[0]}
			if dataset != "" {
				body["dataset_id"] = dataset
			}
			var res queryResponse
			if err := client.call(http.MethodPost, "/query", nil, body, &res); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, res)
			}
			printResult(res.Columns, res.Rows)
			_, _ = fmt.Fprintf(os.Stderr, "%d row(s) in %dms (query %s)\n", res.RowCount, res.DurationMs, res.QueryID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset ID recorded with the query")

	return cmd
}

func newHistoryCmd(client *Client) *cobra.Command {
	var (
		limit  int
		status string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List your most recent queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if status != "" {
				q.Set("status", status)
			}
			var out struct {
				Queries []map[string]any `json:"queries"`
			}
			if err := client.call(http.MethodGet, "/query/history", q, nil, &out); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, out)
			}
			columns := []string{"id", "status", "row_count", "duration_ms", "created_at", "sql", "error_message"}
			PrintTable(os.Stdout, columns, truncateCells(ExtractRows(out.Queries, columns), cellLimit(len(columns))))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries (server default 50)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (success, error)")

	return cmd
}

// printResult renders a column/row result set as a table sized to the
// terminal.
func printResult(columns []string, rows [][]any) {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			cells[i][j] = formatValue(v)
		}
	}
	PrintTable(os.Stdout, columns, truncateCells(cells, cellLimit(len(columns))))
}
