package cli

import (
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var datasetColumns = []string{"id", "name", "table_name", "row_count", "source", "created_at"}

func newDatasetsCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ds"},
		Short:   "Upload and inspect datasets",
	}

	cmd.AddCommand(newDatasetsUploadCmd(client))
	cmd.AddCommand(newDatasetsListCmd(client))
	cmd.AddCommand(newDatasetsGetCmd(client))
	cmd.AddCommand(newDatasetsSchemaCmd(client))

	return cmd
}

func newDatasetsUploadCmd(client *Client) *cobra.Command {
	var name, charset string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV file as a new dataset",
		Example: `  tabula datasets upload sales.csv --name "Sales 2024"
  tabula datasets upload legacy.csv.gz --charset iso-8859-1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Upload(args[0], map[string]string{
				"name":    name,
				"charset": charset,
			})
			if err != nil {
				return err
			}
			var ds map[string]any
			if err := decodeResponse(resp, &ds); err != nil {
				return err
			}
			return printObject(cmd, ds)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Dataset name (defaults to the file name)")
	cmd.Flags().StringVar(&charset, "charset", "", "Source character set (default utf-8)")

	return cmd
}

func newDatasetsListCmd(client *Client) *cobra.Command {
	var (
		all        bool
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if maxResults > 0 {
				q.Set("max_results", strconv.Itoa(maxResults))
			}

			var items []map[string]any
			if all {
				var err error
				items, err = client.fetchAllPages("/datasets", "datasets", q)
				if err != nil {
					return err
				}
			} else {
				var page struct {
					Datasets      []map[string]any `json:"datasets"`
					NextPageToken string           `json:"next_page_token"`
				}
				if err := client.call(http.MethodGet, "/datasets", q, nil, &page); err != nil {
					return err
				}
				items = page.Datasets
			}
			return printList(cmd, items, datasetColumns)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Follow pagination and list every dataset")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "Page size")

	return cmd
}

func newDatasetsGetCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dataset-id>",
		Short: "Show a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ds map[string]any
			if err := client.call(http.MethodGet, "/datasets/"+url.PathEscape(args[0]), nil, nil, &ds); err != nil {
				return err
			}
			return printObject(cmd, ds)
		},
	}
}

func newDatasetsSchemaCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <dataset-id>",
		Short: "Show the columns of a dataset's table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var schema struct {
				DatasetID string           `json:"dataset_id"`
				TableName string           `json:"table_name"`
				Columns   []map[string]any `json:"columns"`
			}
			path := "/datasets/" + url.PathEscape(args[0]) + "/schema"
			if err := client.call(http.MethodGet, path, nil, nil, &schema); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, schema)
			}
			PrintTable(os.Stdout, []string{"position", "name", "type"},
				ExtractRows(schema.Columns, []string{"position", "name", "type"}))
			return nil
		},
	}
}

// printObject renders a single resource as JSON or a key/value detail view.
func printObject(cmd *cobra.Command, obj map[string]any) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(os.Stdout, obj)
	}
	PrintDetail(os.Stdout, obj)
	return nil
}

// printList renders a resource listing as JSON or a table of the given
// columns.
func printList(cmd *cobra.Command, items []map[string]any, columns []string) error {
	if getOutputFormat(cmd) == "json" {
		if items == nil {
			items = []map[string]any{}
		}
		return PrintJSON(os.Stdout, items)
	}
	PrintTable(os.Stdout, columns, ExtractRows(items, columns))
	return nil
}
