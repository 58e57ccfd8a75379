package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	wrapped := Wrap(ErrPersistenceFailure, errors.New("connection refused"))

	assert.ErrorIs(t, wrapped, ErrPersistenceFailure)
	assert.NotErrorIs(t, wrapped, ErrSettingsUnavailable)
	assert.ErrorIs(t, fmt.Errorf("register: %w", wrapped), ErrPersistenceFailure)
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.Equal(t, KindPersistenceFailure, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"email exists", ErrEmailExists, http.StatusConflict, "EMAIL_EXISTS"},
		{"email not found", ErrEmailNotFound, http.StatusNotFound, "EMAIL_NOT_FOUND"},
		{"invalid password", ErrInvalidPassword, http.StatusUnauthorized, "INVALID_PASSWORD"},
		{"pending approval", ErrPendingApproval, http.StatusForbidden, "PENDING_APPROVAL"},
		{"suspended", ErrAccountSuspended, http.StatusForbidden, "ACCOUNT_SUSPENDED"},
		{"deleted", ErrAccountDeleted, http.StatusForbidden, "ACCOUNT_DELETED"},
		{"invalid token", ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
		{"transition", ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
		{"settings", ErrSettingsUnavailable, http.StatusServiceUnavailable, "SETTINGS_UNAVAILABLE"},
		{"persistence", Wrap(ErrPersistenceFailure, errors.New("dsn user:pass@tcp")), http.StatusInternalServerError, "PERSISTENCE_FAILURE"},
		{"untagged", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.NotContains(t, httpErr.Message, "dsn")
		})
	}
}
