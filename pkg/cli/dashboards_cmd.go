package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var dashboardColumns = []string{"id", "name", "refresh_schedule", "updated_at"}

func newDashboardsCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboards",
		Aliases: []string{"db"},
		Short:   "Manage and run dashboards",
	}

	cmd.AddCommand(newDashboardsCreateCmd(client))
	cmd.AddCommand(newDashboardsListCmd(client))
	cmd.AddCommand(newDashboardsGetCmd(client))
	cmd.AddCommand(newDashboardsDeleteCmd(client))
	cmd.AddCommand(newDashboardsRunCmd(client))
	cmd.AddCommand(newDashboardsLastRunCmd(client))
	cmd.AddCommand(newDashboardsApplyCmd(client))

	return cmd
}

func newDashboardsCreateCmd(client *Client) *cobra.Command {
	var name, schedule string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]any{"name": name}
			if schedule != "" {
				body["refresh_schedule"] = schedule
			}
			var d map[string]any
			if err := client.call(http.MethodPost, "/dashboards", nil, body, &d); err != nil {
				return err
			}
			return printObject(cmd, d)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Dashboard name (required)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron refresh schedule, e.g. \"*/15 * * * *\"")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newDashboardsListCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your dashboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := client.fetchAllPages("/dashboards", "dashboards", nil)
			if err != nil {
				return err
			}
			return printList(cmd, items, dashboardColumns)
		},
	}
}

func newDashboardsGetCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dashboard-id>",
		Short: "Show a dashboard and its panels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var d map[string]any
			if err := client.call(http.MethodGet, dashboardPath(args[0]), nil, nil, &d); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, d)
			}
			panels, _ := d["panels"].([]any)
			delete(d, "panels")
			PrintDetail(os.Stdout, d)
			if len(panels) == 0 {
				return nil
			}
			_, _ = fmt.Fprintln(os.Stdout)
			items := make([]map[string]any, 0, len(panels))
			for _, p := range panels {
				if m, ok := p.(map[string]any); ok {
					items = append(items, m)
				}
			}
			columns := []string{"id", "sort_order", "panel_type", "title", "sql"}
			PrintTable(os.Stdout, columns, truncateCells(ExtractRows(items, columns), cellLimit(len(columns))))
			return nil
		},
	}
}

func newDashboardsDeleteCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dashboard-id>",
		Short: "Delete a dashboard and its panels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.call(http.MethodDelete, dashboardPath(args[0]), nil, nil, nil); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(os.Stdout, map[string]string{"status": "deleted", "id": args[0]})
			}
			_, _ = fmt.Fprintf(os.Stdout, "Dashboard %s deleted\n", args[0])
			return nil
		},
	}
}

type panelResult struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	PanelType  string   `json:"panel_type"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Error      *string  `json:"error"`
	DurationMs int64    `json:"duration_ms"`
}

type panelRun struct {
	DashboardID     string        `json:"dashboard_id"`
	Panels          []panelResult `json:"panels"`
	TotalDurationMs int64         `json:"total_duration_ms"`
	StartedAt       string        `json:"started_at"`
}

func newDashboardsRunCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "run <dashboard-id>",
		Short: "Run every panel of a dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run panelRun
			if err := client.call(http.MethodPost, dashboardPath(args[0])+"/run", nil, nil, &run); err != nil {
				return err
			}
			return printPanelRun(cmd, &run)
		},
	}
}

func newDashboardsLastRunCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "last-run <dashboard-id>",
		Short: "Show the most recent run of a dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var run panelRun
			if err := client.call(http.MethodGet, dashboardPath(args[0])+"/last-run", nil, nil, &run); err != nil {
				return err
			}
			return printPanelRun(cmd, &run)
		},
	}
}

// printPanelRun prints each panel's result set in order. Failed panels
// show their error in place of a table.
func printPanelRun(cmd *cobra.Command, run *panelRun) error {
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(os.Stdout, run)
	}
	failed := 0
	for i, p := range run.Panels {
		if i > 0 {
			_, _ = fmt.Fprintln(os.Stdout)
		}
		_, _ = fmt.Fprintf(os.Stdout, "== %s [%s] (%dms)\n", p.Title, p.PanelType, p.DurationMs)
		if p.Error != nil {
			failed++
			_, _ = fmt.Fprintf(os.Stdout, "error: %s\n", *p.Error)
			continue
		}
		printResult(p.Columns, p.Rows)
	}
	_, _ = fmt.Fprintf(os.Stderr, "%d panel(s), %d failed, %dms total\n", len(run.Panels), failed, run.TotalDurationMs)
	return nil
}

func dashboardPath(id string) string {
	return "/dashboards/" + url.PathEscape(id)
}
