package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// PanelKind is a rendering hint for a panel's result.
type PanelKind string

// PanelKind constants define the supported panel kinds.
const (
	PanelKindTable  PanelKind = "table"
	PanelKindMetric PanelKind = "metric"
	PanelKindLine   PanelKind = "line"
)

// Valid reports whether k is a supported panel kind.
func (k PanelKind) Valid() bool {
	switch k {
	case PanelKindTable, PanelKindMetric, PanelKindLine:
		return true
	}
	return false
}

// Dashboard is a named container of panels.
type Dashboard struct {
	ID              string
	OwnerID         string
	Name            string
	RefreshSchedule *string // standard 5-field cron expression
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Panel is a persisted, named SQL query that belongs to a dashboard.
type Panel struct {
	ID          string
	DashboardID string
	OwnerID     string
	Title       string
	Kind        PanelKind
	SQL         string
	XField      *string
	YField      *string
	Options     json.RawMessage
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateDashboardRequest holds parameters for creating a dashboard.
type CreateDashboardRequest struct {
	Name            string
	RefreshSchedule *string
}

// Validate validates the create dashboard request.
func (r *CreateDashboardRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return ErrValidation("dashboard name is required")
	}
	if r.RefreshSchedule != nil && strings.TrimSpace(*r.RefreshSchedule) == "" {
		r.RefreshSchedule = nil
	}
	return nil
}

// UpdateDashboardRequest holds partial-update parameters for a dashboard.
type UpdateDashboardRequest struct {
	Name            *string
	RefreshSchedule *string // empty string clears the schedule
}

// CreatePanelRequest holds parameters for creating a panel.
type CreatePanelRequest struct {
	Title     string
	Kind      PanelKind
	SQL       string
	XField    *string
	YField    *string
	Options   json.RawMessage
	SortOrder *int
}

// Validate validates the create panel request and fills defaults.
func (r *CreatePanelRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return ErrValidation("panel title is required")
	}
	if strings.TrimSpace(r.SQL) == "" {
		return ErrValidation("panel sql is required")
	}
	if r.Kind == "" {
		r.Kind = PanelKindTable
	}
	if !r.Kind.Valid() {
		return ErrValidation("panel_type must be 'table', 'metric' or 'line', got %q", string(r.Kind))
	}
	return validateOptions(&r.Options)
}

// UpdatePanelRequest holds partial-update parameters for a panel.
type UpdatePanelRequest struct {
	Title     *string
	Kind      *PanelKind
	SQL       *string
	XField    *string
	YField    *string
	Options   json.RawMessage
	SortOrder *int
}

// Validate validates the update panel request.
func (r *UpdatePanelRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return ErrValidation("panel title must not be empty")
	}
	if r.SQL != nil && strings.TrimSpace(*r.SQL) == "" {
		return ErrValidation("panel sql must not be empty")
	}
	if r.Kind != nil && !r.Kind.Valid() {
		return ErrValidation("panel_type must be 'table', 'metric' or 'line', got %q", string(*r.Kind))
	}
	if r.Options == nil {
		return nil
	}
	return validateOptions(&r.Options)
}

func validateOptions(opts *json.RawMessage) error {
	if len(*opts) == 0 {
		*opts = json.RawMessage("{}")
		return nil
	}
	if !json.Valid(*opts) {
		return ErrValidation("panel options must be valid JSON")
	}
	return nil
}

// PanelResult is one entry of a panel run. Exactly one of Result and Error
// is meaningful: Error is non-nil when the panel failed.
type PanelResult struct {
	PanelID    string
	Title      string
	Kind       PanelKind
	Result     Result
	Error      *string
	DurationMs int64
}

// PanelRun is the aggregate of running every panel of one dashboard.
// Panels appear in the same order as the dashboard's panel list.
type PanelRun struct {
	DashboardID     string
	Panels          []PanelResult
	TotalDurationMs int64
	StartedAt       time.Time
}
