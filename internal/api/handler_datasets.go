package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tabula/internal/domain"
)

// multipart bodies above this size spill to temp files.
const multipartMemory = 8 << 20

// UploadDataset ingests a multipart "file" part as a new dataset. Optional
// form fields: "name" (display name) and "charset" (source encoding).
func (h *Handler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if code := httpStatusFromDomainError(err); code == http.StatusRequestEntityTooLarge {
			h.writeError(w, r, err)
			return
		}
		h.writeError(w, r, domain.ErrValidation("invalid multipart body: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, domain.ErrValidation("multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	ds, err := h.datasets.Upload(r.Context(), domain.UploadRequest{
		Name:     r.FormValue("name"),
		Filename: header.Filename,
		Charset:  r.FormValue("charset"),
		Source:   domain.SourceUpload,
	}, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, datasetToAPI(*ds))
}

// ListDatasets lists the caller's datasets, newest first.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, total, err := h.datasets.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := datasetListJSON{
		Datasets:      make([]datasetJSON, len(list)),
		Total:         total,
		NextPageToken: domain.NextPageToken(page.Offset(), page.Limit(), total),
	}
	for i, d := range list {
		out.Datasets[i] = datasetToAPI(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.datasets.Get(r.Context(), chi.URLParam(r, "datasetID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToAPI(*ds))
}

// GetDatasetSchema returns the physical columns of a dataset's table.
func (h *Handler) GetDatasetSchema(w http.ResponseWriter, r *http.Request) {
	ds, cols, err := h.datasets.Schema(r.Context(), chi.URLParam(r, "datasetID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := schemaJSON{DatasetID: ds.ID, TableName: ds.TableName, Columns: make([]columnJSON, len(cols))}
	for i, c := range cols {
		out.Columns[i] = columnJSON{Position: c.Position, Name: c.Name, Type: c.Type}
	}
	writeJSON(w, http.StatusOK, out)
}
