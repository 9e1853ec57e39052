package domain

import "time"

// QueryStatus is the outcome recorded for an ad-hoc query.
type QueryStatus string

// QueryStatus constants.
const (
	QueryStatusSuccess QueryStatus = "success"
	QueryStatusError   QueryStatus = "error"
)

// Valid reports whether s is a known status.
func (s QueryStatus) Valid() bool {
	return s == QueryStatusSuccess || s == QueryStatusError
}

// QueryRecord is one append-only history entry for an executed ad-hoc query.
type QueryRecord struct {
	ID           string
	OwnerID      string
	DatasetID    *string
	SQL          string
	Status       QueryStatus
	ErrorMessage *string
	DurationMs   int64
	RowCount     int64
	CreatedAt    time.Time
}

// QueryHistoryFilter holds filter parameters for listing a user's history.
type QueryHistoryFilter struct {
	OwnerID string
	Status  *QueryStatus
	Limit   int
}
