package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactories_HTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", NewValidation("bad"), CodeValidation, http.StatusBadRequest},
		{"line item", NewInvalidLineItem("quantity", "0"), CodeInvalidLineItem, http.StatusBadRequest},
		{"tax rate", NewInvalidTaxRate("13", []string{"14"}), CodeInvalidTaxRate, http.StatusBadRequest},
		{"currency", NewInvalidCurrency("XX", "unknown"), CodeInvalidCurrency, http.StatusBadRequest},
		{"inactive", NewSeriesInactive("A"), CodeSeriesInactive, http.StatusUnprocessableEntity},
		{"certified", NewDocumentCertified("FT/A/2026/1", "items"), CodeDocumentCertified, http.StatusUnprocessableEntity},
		{"cancelled", NewDocumentCancelled("FT/A/2026/1"), CodeDocumentCancelled, http.StatusUnprocessableEntity},
		{"not authorized", NewSeriesNotAuthorized("A", "u1"), CodeSeriesNotAuthorized, http.StatusForbidden},
		{"not found", NewNotFound("document", "x"), CodeNotFound, http.StatusNotFound},
		{"concurrent", NewConcurrentModification("document", "x"), CodeConcurrentModification, http.StatusConflict},
		{"duplicate", NewDuplicate("series", "code", "A"), CodeDuplicate, http.StatusConflict},
		{"internal", NewInternal(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
		{"unauthorized", NewUnauthorized("no token"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", NewForbidden("no"), CodeForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
		})
	}
}

func TestHelpers_SeeThroughWrapping(t *testing.T) {
	cause := errors.New("row lock timeout")
	err := fmt.Errorf("issue: %w", NewNotFound("series", "A").WithCause(cause))

	appErr, ok := AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, "series", appErr.Details["entity"])
	assert.True(t, IsNotFound(err))
	assert.True(t, HasCode(err, CodeNotFound))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsBusinessFailure(err))

	assert.False(t, IsBusinessFailure(NewInternal(cause)))
	assert.False(t, IsBusinessFailure(cause))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(cause))
}

func TestError_Message(t *testing.T) {
	err := NewValidation("reason is required").WithDetail("field", "reason")
	assert.Equal(t, "VALIDATION_ERROR: reason is required", err.Error())
	assert.Equal(t, "reason", err.Details["field"])

	wrapped := NewInternal(errors.New("boom"))
	assert.Contains(t, wrapped.Error(), "caused by: boom")
}
