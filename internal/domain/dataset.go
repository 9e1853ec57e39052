package domain

import (
	"strings"
	"time"
)

// SourceKind records how a dataset entered the store.
type SourceKind string

// SourceKind constants.
const (
	SourceUpload SourceKind = "upload"
	SourceWatch  SourceKind = "watch"
)

// Dataset is a named, user-owned ingestion of delimited text into one
// physical table. It is created together with its table and never updated.
type Dataset struct {
	ID          string
	OwnerID     string
	Name        string
	SourceKind  SourceKind
	StoragePath string
	TableName   string
	RowCount    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ColumnInfo describes one column of a dataset's physical table.
type ColumnInfo struct {
	Position int
	Name     string
	Type     string
}

// UploadRequest holds parameters for ingesting a file as a new dataset.
type UploadRequest struct {
	Name     string // display name; defaults to Filename
	Filename string
	Charset  string // optional source encoding, e.g. "windows-1252"
	Source   SourceKind
}

// Validate validates the upload request and fills defaults.
func (r *UploadRequest) Validate() error {
	r.Filename = strings.TrimSpace(r.Filename)
	if r.Filename == "" {
		return ErrValidation("filename is required")
	}
	if strings.ContainsAny(r.Filename, `/\`) {
		return ErrValidation("filename must not contain path separators")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		r.Name = r.Filename
	}
	if r.Source == "" {
		r.Source = SourceUpload
	}
	return nil
}
