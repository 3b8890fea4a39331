package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/competency-mapper/internal/embedding"
	"github.com/jonathan/competency-mapper/internal/normalize"
	"github.com/jonathan/competency-mapper/internal/schemas"
	"github.com/jonathan/competency-mapper/internal/scoring"
)

// ErrReportNotFound indicates the archive has no report with this id
type ErrReportNotFound struct {
	ID uuid.UUID
}

func (e *ErrReportNotFound) Error() string {
	return fmt.Sprintf("report not found: %s", e.ID)
}

// ErrArchiveDisabled indicates the server runs without a report archive
type ErrArchiveDisabled struct{}

func (e *ErrArchiveDisabled) Error() string {
	return "report archive is not configured"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound    *ErrReportNotFound
		disabled    *ErrArchiveDisabled
		invalid     *ErrValidation
		schemaErr   *schemas.ValidationError
		profileErr  *scoring.ConfigError
		malformed   *normalize.MalformedResponseError
		unavailable *embedding.ModelUnavailableError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid), errors.As(err, &schemaErr), errors.As(err, &profileErr):
		return http.StatusBadRequest
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &disabled), errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
