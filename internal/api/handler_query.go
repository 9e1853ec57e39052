package api

import (
	"net/http"

	"tabula/internal/domain"
)

// ExecuteQuery runs one read-only statement and returns the normalized result.
func (h *Handler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.query.Execute(r.Context(), req.DatasetID, req.SQL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResultToAPI(result))
}

// ListQueryHistory returns the caller's most recent queries.
func (h *Handler) ListQueryHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var status *domain.QueryStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.QueryStatus(raw)
		status = &s
	}

	records, err := h.query.ListHistory(r.Context(), limit, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := historyJSON{Queries: make([]queryRecordJSON, len(records))}
	for i, rec := range records {
		out.Queries[i] = queryRecordToAPI(rec)
	}
	writeJSON(w, http.StatusOK, out)
}
