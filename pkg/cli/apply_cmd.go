package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DashboardsFile is the YAML document read by "dashboards apply".
type DashboardsFile struct {
	Dashboards []DashboardSpec `yaml:"dashboards"`
}

// DashboardSpec is the desired state of one dashboard, matched by name.
type DashboardSpec struct {
	Name            string      `yaml:"name"`
	RefreshSchedule string      `yaml:"refresh_schedule,omitempty"`
	Panels          []PanelSpec `yaml:"panels"`
}

// PanelSpec is the desired state of one panel.
type PanelSpec struct {
	Title     string         `yaml:"title"`
	PanelType string         `yaml:"panel_type,omitempty"`
	SQL       string         `yaml:"sql"`
	XField    string         `yaml:"x_field,omitempty"`
	YField    string         `yaml:"y_field,omitempty"`
	Options   map[string]any `yaml:"options,omitempty"`
	SortOrder *int           `yaml:"sort_order,omitempty"`
}

// LoadDashboardsFile decodes and validates a dashboards document. Unknown
// keys are rejected.
func LoadDashboardsFile(r io.Reader) (*DashboardsFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f DashboardsFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty dashboards file")
		}
		return nil, fmt.Errorf("parse dashboards file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *DashboardsFile) validate() error {
	var errs []error
	seen := make(map[string]bool, len(f.Dashboards))
	for i, d := range f.Dashboards {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("dashboards[%d]: name is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("dashboards[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		for j, p := range d.Panels {
			if strings.TrimSpace(p.Title) == "" {
				errs = append(errs, fmt.Errorf("%s.panels[%d]: title is required", name, j))
			}
			if strings.TrimSpace(p.SQL) == "" {
				errs = append(errs, fmt.Errorf("%s.panels[%d]: sql is required", name, j))
			}
		}
	}
	return errors.Join(errs...)
}

// applyAction is one planned change.
type applyAction struct {
	Operation   string // create | update
	DashboardID string
	Spec        DashboardSpec
}

// planApply matches desired dashboards against existing ones by name.
func planApply(desired *DashboardsFile, existing []map[string]any) []applyAction {
	byName := make(map[string]string, len(existing))
	for _, d := range existing {
		byName[ExtractField(d, "name")] = ExtractField(d, "id")
	}
	actions := make([]applyAction, 0, len(desired.Dashboards))
	for _, spec := range desired.Dashboards {
		spec.Name = strings.TrimSpace(spec.Name)
		if id, ok := byName[spec.Name]; ok {
			actions = append(actions, applyAction{Operation: "update", DashboardID: id, Spec: spec})
			continue
		}
		actions = append(actions, applyAction{Operation: "create", Spec: spec})
	}
	return actions
}

// executeApply creates or updates the dashboard and replaces its panels.
func executeApply(client *Client, action applyAction) error {
	id := action.DashboardID
	switch action.Operation {
	case "create":
		body := map[string]any{"name": action.Spec.Name}
		if action.Spec.RefreshSchedule != "" {
			body["refresh_schedule"] = action.Spec.RefreshSchedule
		}
		var created struct {
			ID string `json:"id"`
		}
		if err := client.call(http.MethodPost, "/dashboards", nil, body, &created); err != nil {
			return err
		}
		id = created.ID
	case "update":
		// An empty schedule clears it.
		body := map[string]any{
			"name":             action.Spec.Name,
			"refresh_schedule": action.Spec.RefreshSchedule,
		}
		if err := client.call(http.MethodPatch, dashboardPath(id), nil, body, nil); err != nil {
			return err
		}
		var current struct {
			Panels []struct {
				ID string `json:"id"`
			} `json:"panels"`
		}
		if err := client.call(http.MethodGet, dashboardPath(id)+"/panels", nil, nil, &current); err != nil {
			return err
		}
		for _, p := range current.Panels {
			if err := client.call(http.MethodDelete, dashboardPath(id)+"/panels/"+p.ID, nil, nil, nil); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown operation %q", action.Operation)
	}

	for _, p := range action.Spec.Panels {
		if err := client.call(http.MethodPost, dashboardPath(id)+"/panels", nil, panelBody(p), nil); err != nil {
			return fmt.Errorf("panel %q: %w", p.Title, err)
		}
	}
	return nil
}

func panelBody(p PanelSpec) map[string]any {
	body := map[string]any{
		"title": p.Title,
		"sql":   p.SQL,
	}
	if p.PanelType != "" {
		body["panel_type"] = p.PanelType
	}
	if p.XField != "" {
		body["x_field"] = p.XField
	}
	if p.YField != "" {
		body["y_field"] = p.YField
	}
	if len(p.Options) > 0 {
		body["options"] = p.Options
	}
	if p.SortOrder != nil {
		body["sort_order"] = *p.SortOrder
	}
	return body
}

func newDashboardsApplyCmd(client *Client) *cobra.Command {
	var (
		file        string
		dryRun      bool
		autoApprove bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update dashboards from a YAML file",
		Long: "Reads a YAML file of dashboards, matches them to your existing dashboards by name, " +
			"and creates missing ones or updates existing ones. Panels of updated dashboards are replaced.",
		Example: `  tabula dashboards apply -f dashboards.yaml --dry-run
  tabula dashboards apply -f dashboards.yaml --auto-approve`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			f, err := os.Open(file) //nolint:gosec // path is user-supplied
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			desired, err := LoadDashboardsFile(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			existing, err := client.fetchAllPages("/dashboards", "dashboards", nil)
			if err != nil {
				return fmt.Errorf("read server state: %w", err)
			}
			actions := planApply(desired, existing)
			if len(actions) == 0 {
				_, _ = fmt.Fprintln(os.Stdout, "No dashboards in file.")
				return nil
			}

			_, _ = fmt.Fprintln(os.Stdout, "Planned changes:")
			for _, a := range actions {
				_, _ = fmt.Fprintf(os.Stdout, "  %s dashboard %q (%d panel(s))\n", a.Operation, a.Spec.Name, len(a.Spec.Panels))
			}
			if dryRun {
				return nil
			}

			if !autoApprove {
				if !IsStdinTTY() {
					return fmt.Errorf("confirmation required but stdin is not a terminal; use --auto-approve")
				}
				_, _ = fmt.Fprint(os.Stdout, "\nApply these changes? [y/N] ")
				answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read confirmation: %w", err)
				}
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					_, _ = fmt.Fprintln(os.Stdout, "Apply cancelled.")
					return nil
				}
			}

			var succeeded, failed int
			for _, a := range actions {
				_, _ = fmt.Fprintf(os.Stdout, "  %s dashboard %q ... ", a.Operation, a.Spec.Name)
				if err := executeApply(client, a); err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "failed: %v\n", err)
					failed++
					continue
				}
				_, _ = fmt.Fprintln(os.Stdout, "succeeded")
				succeeded++
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nApply complete: %d succeeded, %d failed.\n", succeeded, failed)
			if failed > 0 {
				return fmt.Errorf("%d dashboard(s) failed to apply", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with dashboards (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without applying it")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Skip interactive confirmation prompt")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
