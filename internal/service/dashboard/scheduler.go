package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"tabula/internal/domain"
)

// Scheduler runs dashboards on their cron refresh schedule.
type Scheduler struct {
	cron       *cron.Cron
	svc        *Service
	dashboards domain.DashboardRepository
	logger     *slog.Logger
	mu         sync.Mutex
	entries    map[string]cron.EntryID // dashboard ID → cron entry
}

// NewScheduler creates a new dashboard scheduler.
func NewScheduler(svc *Service, dashboards domain.DashboardRepository, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:       cron.New(),
		svc:        svc,
		dashboards: dashboards,
		logger:     logger.With("component", "dashboard-scheduler"),
		entries:    make(map[string]cron.EntryID),
	}
}

// Start loads all scheduled dashboards and starts the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	err := s.loadSchedules(ctx)
	n := len(s.entries)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("dashboard scheduler started", "dashboards", n)
	return nil
}

// Stop stops the scheduler and waits for running refreshes to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("dashboard scheduler stopped")
}

// Reload clears all cron entries and reloads from the database.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[string]cron.EntryID)

	return s.loadSchedules(ctx)
}

// loadSchedules adds every dashboard with a refresh schedule to cron.
func (s *Scheduler) loadSchedules(ctx context.Context) error {
	dashboards, err := s.dashboards.ListScheduled(ctx)
	if err != nil {
		return err
	}

	for _, d := range dashboards {
		if d.RefreshSchedule == nil {
			continue
		}
		schedule := *d.RefreshSchedule
		dashboardID := d.ID

		entryID, err := s.cron.AddFunc(schedule, func() {
			s.Refresh(context.Background(), dashboardID)
		})
		if err != nil {
			s.logger.Warn("invalid cron schedule",
				"dashboard_id", dashboardID,
				"schedule", schedule,
				"error", err,
			)
			continue
		}

		s.entries[d.ID] = entryID
		s.logger.Debug("scheduled dashboard", "dashboard_id", dashboardID, "schedule", schedule)
	}

	return nil
}

// Refresh runs one dashboard outside any request and caches the result.
func (s *Scheduler) Refresh(ctx context.Context, dashboardID string) {
	if _, err := s.svc.run(ctx, dashboardID); err != nil {
		s.logger.Warn("scheduled refresh failed", "dashboard_id", dashboardID, "error", err)
	}
}

// Compile-time check that Scheduler implements ScheduleReloader.
var _ ScheduleReloader = (*Scheduler)(nil)
