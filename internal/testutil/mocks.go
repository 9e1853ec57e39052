// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"bytes"
	"context"
	"io"
	"sync"

	"tabula/internal/domain"
)

// === Dataset Repository Mock ===

// MockDatasetRepo implements domain.DatasetRepository for testing.
type MockDatasetRepo struct {
	CreateWithTableFn func(ctx context.Context, d *domain.Dataset, build domain.TableBuilder) (*domain.Dataset, error)
	GetByIDFn         func(ctx context.Context, id string) (*domain.Dataset, error)
	ListFn            func(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Dataset, int64, error)
	ColumnsFn         func(ctx context.Context, tableName string) ([]domain.ColumnInfo, error)
}

// CreateWithTable implements the interface method for testing.
func (m *MockDatasetRepo) CreateWithTable(ctx context.Context, d *domain.Dataset, build domain.TableBuilder) (*domain.Dataset, error) {
	if m.CreateWithTableFn != nil {
		return m.CreateWithTableFn(ctx, d, build)
	}
	panic("unexpected call to MockDatasetRepo.CreateWithTable")
}

// GetByID implements the interface method for testing.
func (m *MockDatasetRepo) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockDatasetRepo.GetByID")
}

// List implements the interface method for testing.
func (m *MockDatasetRepo) List(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, ownerID, page)
	}
	panic("unexpected call to MockDatasetRepo.List")
}

// Columns implements the interface method for testing.
func (m *MockDatasetRepo) Columns(ctx context.Context, tableName string) ([]domain.ColumnInfo, error) {
	if m.ColumnsFn != nil {
		return m.ColumnsFn(ctx, tableName)
	}
	panic("unexpected call to MockDatasetRepo.Columns")
}

var _ domain.DatasetRepository = (*MockDatasetRepo)(nil)

// === Query History Repository Mock ===

// MockQueryHistoryRepo implements domain.QueryHistoryRepository for testing.
type MockQueryHistoryRepo struct {
	InsertFn func(ctx context.Context, rec *domain.QueryRecord) error
	ListFn   func(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryRecord, error)

	mu      sync.Mutex
	Records []domain.QueryRecord // collected inserts for assertions
}

// Insert implements the interface method for testing.
func (m *MockQueryHistoryRepo) Insert(ctx context.Context, rec *domain.QueryRecord) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Records = append(m.Records, *rec)
	m.mu.Unlock()
	return nil
}

// List implements the interface method for testing.
func (m *MockQueryHistoryRepo) List(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryRecord, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockQueryHistoryRepo.List")
}

// Snapshot returns a copy of the collected records.
func (m *MockQueryHistoryRepo) Snapshot() []domain.QueryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.QueryRecord(nil), m.Records...)
}

var _ domain.QueryHistoryRepository = (*MockQueryHistoryRepo)(nil)

// === History Recorder Mock ===

// MockHistoryRecorder implements domain.HistoryRecorder by collecting
// records synchronously.
type MockHistoryRecorder struct {
	mu      sync.Mutex
	Records []domain.QueryRecord
}

// Record implements the interface method for testing.
func (m *MockHistoryRecorder) Record(rec domain.QueryRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
}

// Snapshot returns a copy of the collected records.
func (m *MockHistoryRecorder) Snapshot() []domain.QueryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.QueryRecord(nil), m.Records...)
}

var _ domain.HistoryRecorder = (*MockHistoryRecorder)(nil)

// === Query Executor Mock ===

// MockQueryExecutor implements domain.QueryExecutor for testing.
type MockQueryExecutor struct {
	ExecuteFn func(ctx context.Context, sqlQuery string) ([]domain.Record, int64, error)
}

// Execute implements the interface method for testing.
func (m *MockQueryExecutor) Execute(ctx context.Context, sqlQuery string) ([]domain.Record, int64, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, sqlQuery)
	}
	panic("unexpected call to MockQueryExecutor.Execute")
}

var _ domain.QueryExecutor = (*MockQueryExecutor)(nil)

// === Dashboard Repository Mock ===

// MockDashboardRepo implements domain.DashboardRepository for testing.
type MockDashboardRepo struct {
	CreateFn        func(ctx context.Context, d *domain.Dashboard) (*domain.Dashboard, error)
	GetByIDFn       func(ctx context.Context, id string) (*domain.Dashboard, error)
	ListFn          func(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Dashboard, int64, error)
	UpdateFn        func(ctx context.Context, id string, req domain.UpdateDashboardRequest) (*domain.Dashboard, error)
	DeleteFn        func(ctx context.Context, id string) error
	ListScheduledFn func(ctx context.Context) ([]domain.Dashboard, error)
}

// Create implements the interface method for testing.
func (m *MockDashboardRepo) Create(ctx context.Context, d *domain.Dashboard) (*domain.Dashboard, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, d)
	}
	panic("unexpected call to MockDashboardRepo.Create")
}

// GetByID implements the interface method for testing.
func (m *MockDashboardRepo) GetByID(ctx context.Context, id string) (*domain.Dashboard, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockDashboardRepo.GetByID")
}

// List implements the interface method for testing.
func (m *MockDashboardRepo) List(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Dashboard, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, ownerID, page)
	}
	panic("unexpected call to MockDashboardRepo.List")
}

// Update implements the interface method for testing.
func (m *MockDashboardRepo) Update(ctx context.Context, id string, req domain.UpdateDashboardRequest) (*domain.Dashboard, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	panic("unexpected call to MockDashboardRepo.Update")
}

// Delete implements the interface method for testing.
func (m *MockDashboardRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockDashboardRepo.Delete")
}

// ListScheduled implements the interface method for testing.
func (m *MockDashboardRepo) ListScheduled(ctx context.Context) ([]domain.Dashboard, error) {
	if m.ListScheduledFn != nil {
		return m.ListScheduledFn(ctx)
	}
	panic("unexpected call to MockDashboardRepo.ListScheduled")
}

var _ domain.DashboardRepository = (*MockDashboardRepo)(nil)

// === Panel Repository Mock ===

// MockPanelRepo implements domain.PanelRepository for testing.
type MockPanelRepo struct {
	CreateFn          func(ctx context.Context, p *domain.Panel) (*domain.Panel, error)
	GetByIDFn         func(ctx context.Context, id string) (*domain.Panel, error)
	ListByDashboardFn func(ctx context.Context, dashboardID string) ([]domain.Panel, error)
	UpdateFn          func(ctx context.Context, id string, req domain.UpdatePanelRequest) (*domain.Panel, error)
	DeleteFn          func(ctx context.Context, id string) error
	NextSortOrderFn   func(ctx context.Context, dashboardID string) (int, error)
}

// Create implements the interface method for testing.
func (m *MockPanelRepo) Create(ctx context.Context, p *domain.Panel) (*domain.Panel, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	panic("unexpected call to MockPanelRepo.Create")
}

// GetByID implements the interface method for testing.
func (m *MockPanelRepo) GetByID(ctx context.Context, id string) (*domain.Panel, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockPanelRepo.GetByID")
}

// ListByDashboard implements the interface method for testing.
func (m *MockPanelRepo) ListByDashboard(ctx context.Context, dashboardID string) ([]domain.Panel, error) {
	if m.ListByDashboardFn != nil {
		return m.ListByDashboardFn(ctx, dashboardID)
	}
	panic("unexpected call to MockPanelRepo.ListByDashboard")
}

// Update implements the interface method for testing.
func (m *MockPanelRepo) Update(ctx context.Context, id string, req domain.UpdatePanelRequest) (*domain.Panel, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	panic("unexpected call to MockPanelRepo.Update")
}

// Delete implements the interface method for testing.
func (m *MockPanelRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockPanelRepo.Delete")
}

// NextSortOrder implements the interface method for testing.
func (m *MockPanelRepo) NextSortOrder(ctx context.Context, dashboardID string) (int, error) {
	if m.NextSortOrderFn != nil {
		return m.NextSortOrderFn(ctx, dashboardID)
	}
	panic("unexpected call to MockPanelRepo.NextSortOrder")
}

var _ domain.PanelRepository = (*MockPanelRepo)(nil)

// === Object Archive Mock ===

// MockObjectArchive implements domain.ObjectArchive in memory.
type MockObjectArchive struct {
	PutFn    func(ctx context.Context, key string, r io.Reader) (string, error)
	DeleteFn func(ctx context.Context, key string) error

	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
}

// Put implements the interface method for testing. Without PutFn the
// object is kept in Objects and "mem://<key>" is returned.
func (m *MockObjectArchive) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if m.PutFn != nil {
		return m.PutFn(ctx, key, r)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Objects == nil {
		m.Objects = make(map[string][]byte)
	}
	m.Objects[key] = buf.Bytes()
	return "mem://" + key, nil
}

// Delete implements the interface method for testing.
func (m *MockObjectArchive) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, key)
	delete(m.Objects, key)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}

var _ domain.ObjectArchive = (*MockObjectArchive)(nil)

// WithUser returns a context carrying an authenticated principal.
func WithUser(ctx context.Context, userID string) context.Context {
	return domain.WithPrincipal(ctx, domain.ContextPrincipal{UserID: userID})
}
