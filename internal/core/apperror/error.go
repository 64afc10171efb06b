// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All fiscal rule failures must use AppError so the HTTP layer can render them consistently.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"

	// Validation errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidLineItem = "INVALID_LINE_ITEM"
	CodeInvalidTaxRate  = "INVALID_TAX_RATE"
	CodeInvalidCurrency = "INVALID_CURRENCY"

	// Business rule violations (422)
	CodeBusinessRule           = "BUSINESS_RULE_VIOLATION"
	CodeSeriesInactive         = "SERIES_INACTIVE"
	CodeDocumentCertified      = "DOCUMENT_CERTIFIED"
	CodeDocumentCancelled      = "DOCUMENT_CANCELLED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeSeriesNotAuthorized = "SERIES_NOT_AUTHORIZED"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeDuplicate = "DUPLICATE_ENTRY"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field, line number, offending value)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidLineItem is returned for a malformed quantity, unit price or discount.
func NewInvalidLineItem(field string, value any) *AppError {
	return &AppError{
		Code:       CodeInvalidLineItem,
		Message:    fmt.Sprintf("invalid line item %s", field),
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field, "value": value},
	}
}

// NewInvalidTaxRate is returned when a rate is not one of the legal tiers.
func NewInvalidTaxRate(rate any, allowed any) *AppError {
	return &AppError{
		Code:       CodeInvalidTaxRate,
		Message:    "tax rate is not an allowed tier",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"rate": rate, "allowed": allowed},
	}
}

// NewInvalidCurrency is returned for an unknown currency code or a non-positive exchange rate.
func NewInvalidCurrency(code string, reason string) *AppError {
	return &AppError{
		Code:       CodeInvalidCurrency,
		Message:    reason,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"currency": code},
	}
}

// NewSeriesInactive is returned when allocating against a disabled series.
func NewSeriesInactive(seriesCode string) *AppError {
	return &AppError{
		Code:       CodeSeriesInactive,
		Message:    fmt.Sprintf("series %s is inactive", seriesCode),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"series": seriesCode},
	}
}

// NewSeriesNotAuthorized is returned when the acting user is not on the series allow-list.
func NewSeriesNotAuthorized(seriesCode, userID string) *AppError {
	return &AppError{
		Code:       CodeSeriesNotAuthorized,
		Message:    fmt.Sprintf("user is not allowed to issue on series %s", seriesCode),
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]any{"series": seriesCode, "user_id": userID},
	}
}

// NewDocumentCertified is returned when a locked field of a certified document is modified.
func NewDocumentCertified(number string, field string) *AppError {
	return &AppError{
		Code:       CodeDocumentCertified,
		Message:    "Cannot modify a certified document",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"number": number, "field": field},
	}
}

// NewDocumentCancelled is returned for operations on a cancelled document.
func NewDocumentCancelled(number string) *AppError {
	return &AppError{
		Code:       CodeDocumentCancelled,
		Message:    "Document is cancelled",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"number": number},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another user. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given AppError code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsBusinessFailure reports whether err is a rule or validation failure that must never be retried.
func IsBusinessFailure(err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		return false
	}
	return appErr.HTTPStatus >= 400 && appErr.HTTPStatus < 500
}
