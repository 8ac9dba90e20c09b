package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/hiring-engine/internal/schemas"
	"github.com/jonathan/hiring-engine/internal/types"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Kind    string               `json:"kind"`
	Field   string               `json:"field,omitempty"`
	Fields  []schemas.FieldError `json:"fields,omitempty"`
	Retry   bool                 `json:"retry,omitempty"`
	Details *types.ConflictError `json:"details,omitempty"`
}

// Error kinds
const (
	KindValidation      = "validation"
	KindNotFound        = "not_found"
	KindInvalidState    = "invalid_state"
	KindConflict        = "conflict"
	KindVersionConflict = "version_conflict"
	KindInternal        = "internal"
)

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var (
		ve  *types.ValidationError
		sve *schemas.ValidationError
		nf  *types.NotFoundError
		ise *types.InvalidStateError
		ce  *types.ConflictError
		vce *types.VersionConflictError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &sve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ise), errors.As(err, &ce), errors.As(err, &vce):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody classifies err into a response body.
func errorBody(err error) ErrorResponse {
	var (
		ve  *types.ValidationError
		sve *schemas.ValidationError
		nf  *types.NotFoundError
		ise *types.InvalidStateError
		ce  *types.ConflictError
		vce *types.VersionConflictError
	)
	switch {
	case errors.As(err, &sve):
		first := sve.First()
		return ErrorResponse{Error: first.Field + ": " + first.Message, Kind: KindValidation, Field: first.Field, Fields: sve.Errors}
	case errors.As(err, &ve):
		return ErrorResponse{Error: err.Error(), Kind: KindValidation, Field: ve.Field}
	case errors.As(err, &nf):
		return ErrorResponse{Error: err.Error(), Kind: KindNotFound}
	case errors.As(err, &ce):
		return ErrorResponse{Error: err.Error(), Kind: KindConflict, Details: ce}
	case errors.As(err, &vce):
		return ErrorResponse{Error: err.Error(), Kind: KindVersionConflict, Retry: true}
	case errors.As(err, &ise):
		return ErrorResponse{Error: err.Error(), Kind: KindInvalidState}
	default:
		return ErrorResponse{Error: "internal server error", Kind: KindInternal}
	}
}
