package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"tabula/internal/domain"
)

func TestHTTPStatusFromDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.ErrNotFound("x"), http.StatusNotFound},
		{"access denied", domain.ErrAccessDenied("x"), http.StatusUnauthorized},
		{"validation", domain.ErrValidation("x"), http.StatusBadRequest},
		{"empty input", domain.ErrEmptyInput("x"), http.StatusBadRequest},
		{"rejected", domain.ErrQueryRejected("x"), http.StatusBadRequest},
		{"execution", &domain.QueryExecutionError{Err: errors.New("x")}, http.StatusBadRequest},
		{"conflict", domain.ErrConflict("x"), http.StatusConflict},
		{"table creation", &domain.TableCreationError{Table: "t", Err: errors.New("exists")}, http.StatusConflict},
		{"ingestion", &domain.IngestionError{Table: "t", Row: 3, Err: errors.New("x")}, http.StatusUnprocessableEntity},
		{"wrapped", fmt.Errorf("upload: %w", domain.ErrNotFound("x")), http.StatusNotFound},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httpStatusFromDomainError(tt.err))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	code, body := errorResponse(&domain.QueryExecutionError{QueryID: "q1", Err: errors.New("no such table: t")})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "q1", body.QueryID)
	assert.Equal(t, "no such table: t", body.Message)

	code, body = errorResponse(errors.New("secret path /var/db"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", body.Message)
	assert.Empty(t, body.QueryID)
}
