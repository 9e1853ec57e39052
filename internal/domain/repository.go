package domain

import "context"

// DatasetRepository persists dataset metadata and exposes the physical
// table catalog.
type DatasetRepository interface {
	// CreateWithTable runs build and inserts d inside one write transaction.
	// If either step fails nothing is committed.
	CreateWithTable(ctx context.Context, d *Dataset, build TableBuilder) (*Dataset, error)
	GetByID(ctx context.Context, id string) (*Dataset, error)
	List(ctx context.Context, ownerID string, page PageRequest) ([]Dataset, int64, error)
	Columns(ctx context.Context, tableName string) ([]ColumnInfo, error)
}

// QueryHistoryRepository provides append and list access to query history.
type QueryHistoryRepository interface {
	Insert(ctx context.Context, rec *QueryRecord) error
	List(ctx context.Context, filter QueryHistoryFilter) ([]QueryRecord, error)
}

// DashboardRepository provides CRUD operations for dashboards.
type DashboardRepository interface {
	Create(ctx context.Context, d *Dashboard) (*Dashboard, error)
	GetByID(ctx context.Context, id string) (*Dashboard, error)
	List(ctx context.Context, ownerID string, page PageRequest) ([]Dashboard, int64, error)
	Update(ctx context.Context, id string, req UpdateDashboardRequest) (*Dashboard, error)
	Delete(ctx context.Context, id string) error
	ListScheduled(ctx context.Context) ([]Dashboard, error)
}

// PanelRepository provides CRUD operations for dashboard panels.
type PanelRepository interface {
	Create(ctx context.Context, p *Panel) (*Panel, error)
	GetByID(ctx context.Context, id string) (*Panel, error)
	ListByDashboard(ctx context.Context, dashboardID string) ([]Panel, error)
	Update(ctx context.Context, id string, req UpdatePanelRequest) (*Panel, error)
	Delete(ctx context.Context, id string) error
	NextSortOrder(ctx context.Context, dashboardID string) (int, error)
}
