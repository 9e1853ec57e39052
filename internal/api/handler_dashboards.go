package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tabula/internal/domain"
)

func (h *Handler) CreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req createDashboardRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.dashboards.CreateDashboard(r.Context(), domain.CreateDashboardRequest{
		Name:            req.Name,
		RefreshSchedule: req.RefreshSchedule,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dashboardToAPI(*d))
}

func (h *Handler) ListDashboards(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, total, err := h.dashboards.ListDashboards(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := dashboardListJSON{
		Dashboards:    make([]dashboardJSON, len(list)),
		Total:         total,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	}
	for i, d := range list {
		out.Dashboards[i] = dashboardToAPI(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDashboard returns the dashboard with its panels in display order.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, panels, err := h.dashboards.GetDashboard(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := dashboardToAPI(*d)
	out.Panels = panelsToAPI(panels)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateDashboard(w http.ResponseWriter, r *http.Request) {
	var req updateDashboardRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.dashboards.UpdateDashboard(r.Context(), chi.URLParam(r, "dashboardID"), domain.UpdateDashboardRequest{
		Name:            req.Name,
		RefreshSchedule: req.RefreshSchedule,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboardToAPI(*d))
}

func (h *Handler) DeleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboards.DeleteDashboard(r.Context(), chi.URLParam(r, "dashboardID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Panels ===

func (h *Handler) CreatePanel(w http.ResponseWriter, r *http.Request) {
	var req createPanelRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.dashboards.CreatePanel(r.Context(), chi.URLParam(r, "dashboardID"), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, panelToAPI(*p))
}

func (h *Handler) ListPanels(w http.ResponseWriter, r *http.Request) {
	panels, err := h.dashboards.ListPanels(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panelListJSON{Panels: panelsToAPI(panels)})
}

func (h *Handler) UpdatePanel(w http.ResponseWriter, r *http.Request) {
	var req updatePanelRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.dashboards.UpdatePanel(r.Context(),
		chi.URLParam(r, "dashboardID"), chi.URLParam(r, "panelID"), req.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panelToAPI(*p))
}

func (h *Handler) DeletePanel(w http.ResponseWriter, r *http.Request) {
	err := h.dashboards.DeletePanel(r.Context(), chi.URLParam(r, "dashboardID"), chi.URLParam(r, "panelID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Runs ===

// RunDashboard runs every panel and returns the aggregate. Panel failures
// are reported inside the aggregate; the response itself is still 200.
func (h *Handler) RunDashboard(w http.ResponseWriter, r *http.Request) {
	run, err := h.dashboards.Run(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panelRunToAPI(run))
}

// LastRun returns the cached result of the most recent run.
func (h *Handler) LastRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.dashboards.LastRun(r.Context(), chi.URLParam(r, "dashboardID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panelRunToAPI(run))
}
