// Package dashboard manages dashboards and their panels and runs them.
package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"tabula/internal/domain"
)

// ScheduleReloader allows the service to notify the scheduler to reload.
type ScheduleReloader interface {
	Reload(ctx context.Context) error
}

// Service provides business logic for dashboards and panels. All
// operations are scoped to the calling user; resources owned by someone
// else are reported as not found.
type Service struct {
	dashboards domain.DashboardRepository
	panels     domain.PanelRepository
	runner     *Runner
	logger     *slog.Logger
	reloader   ScheduleReloader

	mu       sync.RWMutex
	lastRuns map[string]*domain.PanelRun
}

// NewService creates a new dashboard Service.
func NewService(dashboards domain.DashboardRepository, panels domain.PanelRepository, runner *Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		dashboards: dashboards,
		panels:     panels,
		runner:     runner,
		logger:     logger.With("component", "dashboard"),
		lastRuns:   make(map[string]*domain.PanelRun),
	}
}

// SetScheduleReloader sets the schedule reloader (breaks circular dep).
func (s *Service) SetScheduleReloader(r ScheduleReloader) {
	s.reloader = r
}

// === Dashboard CRUD ===

// CreateDashboard creates a dashboard owned by the caller.
func (s *Service) CreateDashboard(ctx context.Context, req domain.CreateDashboardRequest) (*domain.Dashboard, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := validateSchedule(req.RefreshSchedule); err != nil {
		return nil, err
	}

	d, err := s.dashboards.Create(ctx, &domain.Dashboard{
		OwnerID:         owner,
		Name:            req.Name,
		RefreshSchedule: req.RefreshSchedule,
	})
	if err != nil {
		return nil, err
	}
	if d.RefreshSchedule != nil {
		s.reload(ctx)
	}
	return d, nil
}

// ListDashboards returns the caller's dashboards.
func (s *Service) ListDashboards(ctx context.Context, page domain.PageRequest) ([]domain.Dashboard, int64, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.dashboards.List(ctx, owner, page)
}

// GetDashboard returns a dashboard with its panels in display order.
func (s *Service) GetDashboard(ctx context.Context, id string) (*domain.Dashboard, []domain.Panel, error) {
	d, err := s.ownedDashboard(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	panels, err := s.panels.ListByDashboard(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return d, panels, nil
}

// UpdateDashboard renames a dashboard or changes its refresh schedule.
func (s *Service) UpdateDashboard(ctx context.Context, id string, req domain.UpdateDashboardRequest) (*domain.Dashboard, error) {
	if _, err := s.ownedDashboard(ctx, id); err != nil {
		return nil, err
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, domain.ErrValidation("dashboard name must not be empty")
	}
	if req.RefreshSchedule != nil && *req.RefreshSchedule != "" {
		if err := validateSchedule(req.RefreshSchedule); err != nil {
			return nil, err
		}
	}
	d, err := s.dashboards.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if req.RefreshSchedule != nil {
		s.reload(ctx)
	}
	return d, nil
}

// DeleteDashboard deletes a dashboard and its panels.
func (s *Service) DeleteDashboard(ctx context.Context, id string) error {
	d, err := s.ownedDashboard(ctx, id)
	if err != nil {
		return err
	}
	if err := s.dashboards.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.lastRuns, id)
	s.mu.Unlock()
	if d.RefreshSchedule != nil {
		s.reload(ctx)
	}
	return nil
}

// === Panel CRUD ===

// CreatePanel adds a panel to one of the caller's dashboards. Without an
// explicit sort order the panel is appended after the existing ones.
func (s *Service) CreatePanel(ctx context.Context, dashboardID string, req domain.CreatePanelRequest) (*domain.Panel, error) {
	d, err := s.ownedDashboard(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		sortOrder, err = s.panels.NextSortOrder(ctx, dashboardID)
		if err != nil {
			return nil, err
		}
	}

	return s.panels.Create(ctx, &domain.Panel{
		DashboardID: dashboardID,
		OwnerID:     d.OwnerID,
		Title:       req.Title,
		Kind:        req.Kind,
		SQL:         req.SQL,
		XField:      req.XField,
		YField:      req.YField,
		Options:     req.Options,
		SortOrder:   sortOrder,
	})
}

// ListPanels returns a dashboard's panels in display order.
func (s *Service) ListPanels(ctx context.Context, dashboardID string) ([]domain.Panel, error) {
	if _, err := s.ownedDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	return s.panels.ListByDashboard(ctx, dashboardID)
}

// UpdatePanel applies a partial update to a panel of the given dashboard.
func (s *Service) UpdatePanel(ctx context.Context, dashboardID, panelID string, req domain.UpdatePanelRequest) (*domain.Panel, error) {
	if _, err := s.ownedPanel(ctx, dashboardID, panelID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.panels.Update(ctx, panelID, req)
}

// DeletePanel removes a panel from the given dashboard.
func (s *Service) DeletePanel(ctx context.Context, dashboardID, panelID string) error {
	if _, err := s.ownedPanel(ctx, dashboardID, panelID); err != nil {
		return err
	}
	return s.panels.Delete(ctx, panelID)
}

// === Runs ===

// Run executes every panel of one of the caller's dashboards.
func (s *Service) Run(ctx context.Context, dashboardID string) (*domain.PanelRun, error) {
	if _, err := s.ownedDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	return s.run(ctx, dashboardID)
}

// LastRun returns the most recent run of a dashboard, manual or scheduled.
func (s *Service) LastRun(ctx context.Context, dashboardID string) (*domain.PanelRun, error) {
	if _, err := s.ownedDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	run, ok := s.lastRuns[dashboardID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound("dashboard %q has not run yet", dashboardID)
	}
	return run, nil
}

func (s *Service) run(ctx context.Context, dashboardID string) (*domain.PanelRun, error) {
	panels, err := s.panels.ListByDashboard(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	run := s.runner.Run(ctx, dashboardID, panels)

	s.mu.Lock()
	s.lastRuns[dashboardID] = run
	s.mu.Unlock()

	failed := 0
	for _, p := range run.Panels {
		if p.Error != nil {
			failed++
		}
	}
	s.logger.Info("dashboard run",
		"dashboard_id", dashboardID,
		"panels", len(run.Panels),
		"failed", failed,
		"duration_ms", run.TotalDurationMs,
	)
	return run, nil
}

// === Helpers ===

func (s *Service) ownedDashboard(ctx context.Context, id string) (*domain.Dashboard, error) {
	owner, err := domain.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	d, err := s.dashboards.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != owner {
		return nil, domain.ErrNotFound("dashboard %q not found", id)
	}
	return d, nil
}

func (s *Service) ownedPanel(ctx context.Context, dashboardID, panelID string) (*domain.Panel, error) {
	if _, err := s.ownedDashboard(ctx, dashboardID); err != nil {
		return nil, err
	}
	p, err := s.panels.GetByID(ctx, panelID)
	if err != nil {
		return nil, err
	}
	if p.DashboardID != dashboardID {
		return nil, domain.ErrNotFound("panel %q not found in dashboard %q", panelID, dashboardID)
	}
	return p, nil
}

func (s *Service) reload(ctx context.Context) {
	if s.reloader == nil {
		return
	}
	if err := s.reloader.Reload(ctx); err != nil {
		s.logger.Warn("schedule reload failed", "error", err)
	}
}

func validateSchedule(schedule *string) error {
	if schedule == nil {
		return nil
	}
	if _, err := cron.ParseStandard(*schedule); err != nil {
		return domain.ErrValidation("invalid refresh_schedule %q: %v", *schedule, err)
	}
	return nil
}
