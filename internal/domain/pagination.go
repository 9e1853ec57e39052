package domain

import (
	"encoding/base64"
	"strconv"
)

// Page size bounds for dataset and dashboard listings.
const (
	DefaultMaxResults = 100
	MaxMaxResults     = 1000
)

// Query history has its own, tighter bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// PageRequest holds pagination parameters for list operations.
type PageRequest struct {
	MaxResults int
	PageToken  string // opaque, URL-safe encoded offset
}

// Offset decodes the page token into an integer offset.
// Returns 0 if the token is empty or invalid.
func (p PageRequest) Offset() int {
	if p.PageToken == "" {
		return 0
	}
	decoded, err := base64.RawURLEncoding.DecodeString(p.PageToken)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// Limit returns the effective page size, clamped to [1, MaxMaxResults].
func (p PageRequest) Limit() int {
	return clampLimit(p.MaxResults, DefaultMaxResults, MaxMaxResults)
}

// EncodePageToken creates an opaque page token from an offset.
// Returns empty string if offset is 0 or negative.
func EncodePageToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

// NextPageToken calculates the next page token based on current offset, limit, and total count.
// Returns empty string if there are no more pages.
func NextPageToken(offset, limit int, total int64) string {
	next := offset + limit
	if int64(next) >= total {
		return ""
	}
	return EncodePageToken(next)
}

// HistoryLimit clamps a requested history size to [1, MaxHistoryLimit],
// defaulting to DefaultHistoryLimit.
func HistoryLimit(n int) int {
	return clampLimit(n, DefaultHistoryLimit, MaxHistoryLimit)
}

func clampLimit(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
