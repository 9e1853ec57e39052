package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tabula/internal/domain"
	"tabula/internal/tabular"
)

const defaultPanelConcurrency = 4

// Runner executes the panels of a dashboard independently. A failing panel
// is reported in its own entry and never affects the others.
type Runner struct {
	executor    domain.QueryExecutor
	concurrency int
	logger      *slog.Logger
}

// NewRunner creates a Runner that runs at most concurrency panels at once.
func NewRunner(executor domain.QueryExecutor, concurrency int, logger *slog.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = defaultPanelConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		executor:    executor,
		concurrency: concurrency,
		logger:      logger.With("component", "panel-runner"),
	}
}

// Run executes every panel and returns one entry per panel in input order.
// Panel runs are not recorded in query history.
func (r *Runner) Run(ctx context.Context, dashboardID string, panels []domain.Panel) *domain.PanelRun {
	started := time.Now()
	results := make([]domain.PanelResult, len(panels))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i := range panels {
		p := panels[i]
		g.Go(func() error {
			results[i] = r.runPanel(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	return &domain.PanelRun{
		DashboardID:     dashboardID,
		Panels:          results,
		TotalDurationMs: time.Since(started).Milliseconds(),
		StartedAt:       started.UTC(),
	}
}

func (r *Runner) runPanel(ctx context.Context, p domain.Panel) domain.PanelResult {
	res := domain.PanelResult{PanelID: p.ID, Title: p.Title, Kind: p.Kind}

	records, duration, err := r.executor.Execute(ctx, p.SQL)
	res.DurationMs = duration
	if err != nil {
		msg := err.Error()
		res.Error = &msg
		res.Result = domain.Result{Columns: []string{}, Rows: [][]any{}}
		r.logger.Debug("panel failed", "panel_id", p.ID, "error", err)
		return res
	}
	res.Result = tabular.Normalize(records)
	return res
}
