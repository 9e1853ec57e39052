package api

import (
	"errors"
	"net/http"

	"tabula/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var (
		notFound      *domain.NotFoundError
		accessDenied  *domain.AccessDeniedError
		validation    *domain.ValidationError
		conflict      *domain.ConflictError
		emptyInput    *domain.EmptyInputError
		tableCreation *domain.TableCreationError
		ingestion     *domain.IngestionError
		rejected      *domain.QueryRejectedError
		execution     *domain.QueryExecutionError
		tooLarge      *http.MaxBytesError
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusUnauthorized
	case errors.As(err, &validation), errors.As(err, &emptyInput), errors.As(err, &rejected):
		return http.StatusBadRequest
	case errors.As(err, &conflict), errors.As(err, &tableCreation):
		return http.StatusConflict
	case errors.As(err, &ingestion):
		return http.StatusUnprocessableEntity
	case errors.As(err, &execution):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	QueryID string `json:"query_id,omitempty"`
}

// errorResponse builds the error body for err. Internal errors get a generic
// message so store details do not leak to clients.
func errorResponse(err error) (int, errorBody) {
	code := httpStatusFromDomainError(err)
	body := errorBody{Code: code, Message: err.Error()}
	if code == http.StatusInternalServerError {
		body.Message = "internal server error"
	}
	var execution *domain.QueryExecutionError
	if errors.As(err, &execution) {
		body.QueryID = execution.QueryID
	}
	return code, body
}
