package utils

import (
	"fmt"
	"net/http"
)

// AppError is the error taxonomy every handler maps failures into before
// responding. The Code is the HTTP status the boundary renders.
type AppError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: "validation", Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusNotFound, Kind: "not_found", Message: fmt.Sprintf(format, args...)}
}

func NewAuthorizationError(format string, args ...interface{}) *AppError {
	return &AppError{Code: http.StatusForbidden, Kind: "authorization", Message: fmt.Sprintf(format, args...)}
}

// NewExternalServiceError wraps a payment/storage provider failure.
func NewExternalServiceError(message string, err error) *AppError {
	return &AppError{Code: http.StatusBadGateway, Kind: "external_service", Message: message, Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Kind: "internal", Message: "unexpected error", Err: err}
}
