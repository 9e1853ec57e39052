package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"tabula/internal/domain"
)

var (
	_ domain.DashboardRepository = (*DashboardRepo)(nil)
	_ domain.PanelRepository     = (*PanelRepo)(nil)
)

// DashboardRepo implements domain.DashboardRepository.
type DashboardRepo struct {
	db *sql.DB
}

// NewDashboardRepo creates a new DashboardRepo.
func NewDashboardRepo(db *sql.DB) *DashboardRepo {
	return &DashboardRepo{db: db}
}

const dashboardColumns = `id, user_id, name, refresh_schedule, created_at, updated_at`

// Create inserts a dashboard and returns the stored row.
func (r *DashboardRepo) Create(ctx context.Context, d *domain.Dashboard) (*domain.Dashboard, error) {
	out := *d
	if out.ID == "" {
		out.ID = domain.NewID()
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dashboards (`+dashboardColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		out.ID, out.OwnerID, out.Name, nullString(out.RefreshSchedule),
		formatTime(out.CreatedAt), formatTime(out.UpdatedAt))
	if err != nil {
		return nil, mapDBError(err)
	}
	return &out, nil
}

// GetByID returns a dashboard by id.
func (r *DashboardRepo) GetByID(ctx context.Context, id string) (*domain.Dashboard, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+dashboardColumns+` FROM dashboards WHERE id = ?`, id)
	d, err := scanDashboard(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return d, nil
}

// List returns a page of the owner's dashboards, newest first.
func (r *DashboardRepo) List(ctx context.Context, ownerID string, page domain.PageRequest) ([]domain.Dashboard, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dashboards WHERE user_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		ownerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// ListScheduled returns every dashboard with a refresh schedule.
func (r *DashboardRepo) ListScheduled(ctx context.Context) ([]domain.Dashboard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dashboardColumns+` FROM dashboards WHERE refresh_schedule IS NOT NULL AND refresh_schedule != '' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Update applies a partial update and returns the stored row.
func (r *DashboardRepo) Update(ctx context.Context, id string, req domain.UpdateDashboardRequest) (*domain.Dashboard, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now().UTC())}
	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.RefreshSchedule != nil {
		sets = append(sets, "refresh_schedule = ?")
		if *req.RefreshSchedule == "" {
			args = append(args, nil)
		} else {
			args = append(args, *req.RefreshSchedule)
		}
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE dashboards SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("dashboard %q not found", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a dashboard; its panels cascade.
func (r *DashboardRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("dashboard %q not found", id)
	}
	return nil
}

func scanDashboard(s rowScanner) (*domain.Dashboard, error) {
	var (
		d                    domain.Dashboard
		schedule             sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&d.ID, &d.OwnerID, &d.Name, &schedule, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	d.RefreshSchedule = stringPtr(schedule)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// PanelRepo implements domain.PanelRepository.
type PanelRepo struct {
	db *sql.DB
}

// NewPanelRepo creates a new PanelRepo.
func NewPanelRepo(db *sql.DB) *PanelRepo {
	return &PanelRepo{db: db}
}

const panelColumns = `id, dashboard_id, user_id, title, panel_type, sql, x_field, y_field, options_json, sort_order, created_at, updated_at`

// Create inserts a panel and returns the stored row.
func (r *PanelRepo) Create(ctx context.Context, p *domain.Panel) (*domain.Panel, error) {
	out := *p
	if out.ID == "" {
		out.ID = domain.NewID()
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now
	if len(out.Options) == 0 {
		out.Options = json.RawMessage("{}")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO panels (`+panelColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.DashboardID, out.OwnerID, out.Title, string(out.Kind), out.SQL,
		nullString(out.XField), nullString(out.YField), string(out.Options), out.SortOrder,
		formatTime(out.CreatedAt), formatTime(out.UpdatedAt))
	if err != nil {
		return nil, mapDBError(err)
	}
	return &out, nil
}

// GetByID returns a panel by id.
func (r *PanelRepo) GetByID(ctx context.Context, id string) (*domain.Panel, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+panelColumns+` FROM panels WHERE id = ?`, id)
	p, err := scanPanel(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return p, nil
}

// ListByDashboard returns a dashboard's panels ordered by sort position.
func (r *PanelRepo) ListByDashboard(ctx context.Context, dashboardID string) ([]domain.Panel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+panelColumns+` FROM panels WHERE dashboard_id = ? ORDER BY sort_order ASC, created_at ASC, id ASC`,
		dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Panel
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update applies a partial update and returns the stored row.
func (r *PanelRepo) Update(ctx context.Context, id string, req domain.UpdatePanelRequest) (*domain.Panel, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(time.Now().UTC())}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if req.Title != nil {
		add("title", *req.Title)
	}
	if req.Kind != nil {
		add("panel_type", string(*req.Kind))
	}
	if req.SQL != nil {
		add("sql", *req.SQL)
	}
	if req.XField != nil {
		add("x_field", *req.XField)
	}
	if req.YField != nil {
		add("y_field", *req.YField)
	}
	if req.Options != nil {
		add("options_json", string(req.Options))
	}
	if req.SortOrder != nil {
		add("sort_order", *req.SortOrder)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE panels SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("panel %q not found", id)
	}
	return r.GetByID(ctx, id)
}

// Delete removes a panel.
func (r *PanelRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM panels WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("panel %q not found", id)
	}
	return nil
}

// NextSortOrder returns one past the highest sort position on the dashboard.
func (r *PanelRepo) NextSortOrder(ctx context.Context, dashboardID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM panels WHERE dashboard_id = ?`, dashboardID).Scan(&next)
	return next, err
}

func scanPanel(s rowScanner) (*domain.Panel, error) {
	var (
		p                    domain.Panel
		kind, options        string
		xField, yField       sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&p.ID, &p.DashboardID, &p.OwnerID, &p.Title, &kind, &p.SQL,
		&xField, &yField, &options, &p.SortOrder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Kind = domain.PanelKind(kind)
	p.XField = stringPtr(xField)
	p.YField = stringPtr(yField)
	p.Options = json.RawMessage(options)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
