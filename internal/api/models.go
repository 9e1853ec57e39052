package api

import (
	"encoding/json"
	"time"

	"tabula/internal/domain"
)

// === Datasets ===

type datasetJSON struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	StoragePath string    `json:"storage_path"`
	TableName   string    `json:"table_name"`
	RowCount    int64     `json:"row_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type datasetListJSON struct {
	Datasets      []datasetJSON `json:"datasets"`
	Total         int64         `json:"total"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type columnJSON struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

type schemaJSON struct {
	DatasetID string       `json:"dataset_id"`
	TableName string       `json:"table_name"`
	Columns   []columnJSON `json:"columns"`
}

func datasetToAPI(d domain.Dataset) datasetJSON {
	return datasetJSON{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Source:      string(d.SourceKind),
		StoragePath: d.StoragePath,
		TableName:   d.TableName,
		RowCount:    d.RowCount,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// === Query ===

type queryRequest struct {
	SQL       string  `json:"sql"`
	DatasetID *string `json:"dataset_id,omitempty"`
}

type queryResponse struct {
	QueryID    string    `json:"query_id"`
	Columns    []string  `json:"columns"`
	Rows       [][]any   `json:"rows"`
	RowCount   int       `json:"row_count"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

type queryRecordJSON struct {
	ID           string    `json:"id"`
	DatasetID    *string   `json:"dataset_id"`
	SQL          string    `json:"sql"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message"`
	DurationMs   int64     `json:"duration_ms"`
	RowCount     int64     `json:"row_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type historyJSON struct {
	Queries []queryRecordJSON `json:"queries"`
}

func queryResultToAPI(r *domain.QueryResult) queryResponse {
	cols, rows := resultToAPI(r.Result)
	return queryResponse{
		QueryID:    r.QueryID,
		Columns:    cols,
		Rows:       rows,
		RowCount:   len(rows),
		DurationMs: r.DurationMs,
		Timestamp:  r.ExecutedAt,
	}
}

func queryRecordToAPI(q domain.QueryRecord) queryRecordJSON {
	return queryRecordJSON{
		ID:           q.ID,
		DatasetID:    q.DatasetID,
		SQL:          q.SQL,
		Status:       string(q.Status),
		ErrorMessage: q.ErrorMessage,
		DurationMs:   q.DurationMs,
		RowCount:     q.RowCount,
		CreatedAt:    q.CreatedAt,
	}
}

// resultToAPI guarantees JSON arrays rather than nulls.
func resultToAPI(r domain.Result) ([]string, [][]any) {
	cols, rows := r.Columns, r.Rows
	if cols == nil {
		cols = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}
	return cols, rows
}

// === Dashboards ===

type createDashboardRequest struct {
	Name            string  `json:"name"`
	RefreshSchedule *string `json:"refresh_schedule,omitempty"`
}

type updateDashboardRequest struct {
	Name            *string `json:"name,omitempty"`
	RefreshSchedule *string `json:"refresh_schedule,omitempty"`
}

type dashboardJSON struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	RefreshSchedule *string     `json:"refresh_schedule"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Panels          []panelJSON `json:"panels,omitempty"`
}

type dashboardListJSON struct {
	Dashboards    []dashboardJSON `json:"dashboards"`
	Total         int64           `json:"total"`
	NextPageToken string          `json:"next_page_token,omitempty"`
}

type createPanelRequest struct {
	Title     string          `json:"title"`
	PanelType string          `json:"panel_type,omitempty"`
	SQL       string          `json:"sql"`
	XField    *string         `json:"x_field,omitempty"`
	YField    *string         `json:"y_field,omitempty"`
	Options   json.RawMessage `json:"options,omitempty"`
	SortOrder *int            `json:"sort_order,omitempty"`
}

type updatePanelRequest struct {
	Title     *string         `json:"title,omitempty"`
	PanelType *string         `json:"panel_type,omitempty"`
	SQL       *string         `json:"sql,omitempty"`
	XField    *string         `json:"x_field,omitempty"`
	YField    *string         `json:"y_field,omitempty"`
	Options   json.RawMessage `json:"options,omitempty"`
	SortOrder *int            `json:"sort_order,omitempty"`
}

type panelJSON struct {
	ID          string          `json:"id"`
	DashboardID string          `json:"dashboard_id"`
	Title       string          `json:"title"`
	PanelType   string          `json:"panel_type"`
	SQL         string          `json:"sql"`
	XField      *string         `json:"x_field"`
	YField      *string         `json:"y_field"`
	Options     json.RawMessage `json:"options"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type panelListJSON struct {
	Panels []panelJSON `json:"panels"`
}

type panelResultJSON struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	PanelType  string   `json:"panel_type"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	Error      *string  `json:"error"`
	DurationMs int64    `json:"duration_ms"`
}

type panelRunJSON struct {
	DashboardID     string            `json:"dashboard_id"`
	Panels          []panelResultJSON `json:"panels"`
	TotalDurationMs int64             `json:"total_duration_ms"`
	StartedAt       time.Time         `json:"started_at"`
}

func (r createPanelRequest) toDomain() domain.CreatePanelRequest {
	return domain.CreatePanelRequest{
		Title:     r.Title,
		Kind:      domain.PanelKind(r.PanelType),
		SQL:       r.SQL,
		XField:    r.XField,
		YField:    r.YField,
		Options:   r.Options,
		SortOrder: r.SortOrder,
	}
}

func (r updatePanelRequest) toDomain() domain.UpdatePanelRequest {
	out := domain.UpdatePanelRequest{
		Title:     r.Title,
		SQL:       r.SQL,
		XField:    r.XField,
		YField:    r.YField,
		Options:   r.Options,
		SortOrder: r.SortOrder,
	}
	if r.PanelType != nil {
		k := domain.PanelKind(*r.PanelType)
		out.Kind = &k
	}
	return out
}

func dashboardToAPI(d domain.Dashboard) dashboardJSON {
	return dashboardJSON{
		ID:              d.ID,
		Name:            d.Name,
		RefreshSchedule: d.RefreshSchedule,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func panelToAPI(p domain.Panel) panelJSON {
	opts := p.Options
	if len(opts) == 0 {
		opts = json.RawMessage("{}")
	}
	return panelJSON{
		ID:          p.ID,
		DashboardID: p.DashboardID,
		Title:       p.Title,
		PanelType:   string(p.Kind),
		SQL:         p.SQL,
		XField:      p.XField,
		YField:      p.YField,
		Options:     opts,
		SortOrder:   p.SortOrder,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func panelsToAPI(panels []domain.Panel) []panelJSON {
	out := make([]panelJSON, len(panels))
	for i, p := range panels {
		out[i] = panelToAPI(p)
	}
	return out
}

func panelRunToAPI(run *domain.PanelRun) panelRunJSON {
	out := panelRunJSON{
		DashboardID:     run.DashboardID,
		Panels:          make([]panelResultJSON, len(run.Panels)),
		TotalDurationMs: run.TotalDurationMs,
		StartedAt:       run.StartedAt,
	}
	for i, p := range run.Panels {
		cols, rows := resultToAPI(p.Result)
		out.Panels[i] = panelResultJSON{
			ID:         p.PanelID,
			Title:      p.Title,
			PanelType:  string(p.Kind),
			Columns:    cols,
			Rows:       rows,
			Error:      p.Error,
			DurationMs: p.DurationMs,
		}
	}
	return out
}
