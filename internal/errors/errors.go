package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error. Handlers switch on the kind, never on the message.
type Kind string

const (
	KindEmailExists              Kind = "EMAIL_EXISTS"
	KindEmailNotFound            Kind = "EMAIL_NOT_FOUND"
	KindInvalidPassword          Kind = "INVALID_PASSWORD"
	KindPendingApproval          Kind = "PENDING_APPROVAL"
	KindAccountSuspended         Kind = "ACCOUNT_SUSPENDED"
	KindAccountDeleted           Kind = "ACCOUNT_DELETED"
	KindNotActive                Kind = "NOT_ACTIVE"
	KindSettingsUnavailable      Kind = "SETTINGS_UNAVAILABLE"
	KindPersistenceFailure       Kind = "PERSISTENCE_FAILURE"
	KindMailConfigurationMissing Kind = "MAIL_CONFIGURATION_MISSING"
	KindMailDispatchFailure      Kind = "MAIL_DISPATCH_FAILURE"
	KindUserNotFound             Kind = "USER_NOT_FOUND"
	KindForbidden                Kind = "FORBIDDEN"
	KindInvalidTransition        Kind = "INVALID_TRANSITION"
	KindInvalidToken             Kind = "INVALID_TOKEN"
	KindInvalidInput             Kind = "INVALID_INPUT"
	KindInternal                 Kind = "INTERNAL_ERROR"
)

// Error is a domain error tagged with its kind. Two errors match under errors.Is
// when their kinds are equal, so wrapped causes do not break comparisons.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Wrap returns a copy of base carrying err as its cause.
func Wrap(base *Error, err error) *Error {
	return &Error{Kind: base.Kind, Message: base.Message, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// KindOf extracts the kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrEmailExists is returned when registering an email that is already taken.
	ErrEmailExists = &Error{Kind: KindEmailExists, Message: "email is already registered"}
	// ErrEmailNotFound is returned when logging in with an unknown email.
	ErrEmailNotFound = &Error{Kind: KindEmailNotFound, Message: "no account uses this email"}
	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = &Error{Kind: KindInvalidPassword, Message: "incorrect password"}
	// ErrPendingApproval is returned when an engineer account awaits admin approval.
	ErrPendingApproval = &Error{Kind: KindPendingApproval, Message: "account is pending administrator approval"}
	// ErrAccountSuspended is returned when the account was suspended by an admin.
	ErrAccountSuspended = &Error{Kind: KindAccountSuspended, Message: "account is suspended"}
	// ErrAccountDeleted is returned when the account was deleted.
	ErrAccountDeleted = &Error{Kind: KindAccountDeleted, Message: "account has been deleted"}
	// ErrNotActive is returned for any other non-active status.
	ErrNotActive = &Error{Kind: KindNotActive, Message: "account is not active"}
	// ErrSettingsUnavailable is returned when system settings cannot be read.
	ErrSettingsUnavailable = &Error{Kind: KindSettingsUnavailable, Message: "system settings unavailable"}
	// ErrPersistenceFailure is returned when the store fails.
	ErrPersistenceFailure = &Error{Kind: KindPersistenceFailure, Message: "persistence failure"}
	// ErrMailConfigurationMissing is returned when the mail transport is not configured.
	ErrMailConfigurationMissing = &Error{Kind: KindMailConfigurationMissing, Message: "mail transport is not configured"}
	// ErrMailDispatchFailure is returned when sending an email fails.
	ErrMailDispatchFailure = &Error{Kind: KindMailDispatchFailure, Message: "mail dispatch failed"}
	// ErrUserNotFound is returned when a user id does not exist.
	ErrUserNotFound = &Error{Kind: KindUserNotFound, Message: "user not found"}
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = &Error{Kind: KindForbidden, Message: "operation not permitted"}
	// ErrInvalidTransition is returned when the target status change is not allowed.
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "status transition not allowed"}
	// ErrInvalidToken is returned for unknown, used or expired tokens.
	ErrInvalidToken = &Error{Kind: KindInvalidToken, Message: "invalid or expired token"}
	// ErrInvalidInput is returned when input fails validation inside a service.
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

const tryAgainMessage = "something went wrong, please try again later"

// MapErrorToHTTP maps domain errors to HTTP errors. Operational failures
// never leak their cause.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) {
		return NewHTTPError(http.StatusInternalServerError, tryAgainMessage, string(KindInternal))
	}

	switch e.Kind {
	case KindEmailExists, KindInvalidTransition:
		return NewHTTPError(http.StatusConflict, e.Message, string(e.Kind))
	case KindEmailNotFound, KindUserNotFound:
		return NewHTTPError(http.StatusNotFound, e.Message, string(e.Kind))
	case KindInvalidPassword:
		return NewHTTPError(http.StatusUnauthorized, e.Message, string(e.Kind))
	case KindPendingApproval, KindAccountSuspended, KindAccountDeleted, KindNotActive, KindForbidden:
		return NewHTTPError(http.StatusForbidden, e.Message, string(e.Kind))
	case KindInvalidToken, KindInvalidInput:
		return NewHTTPError(http.StatusBadRequest, e.Message, string(e.Kind))
	case KindSettingsUnavailable:
		return NewHTTPError(http.StatusServiceUnavailable, tryAgainMessage, string(e.Kind))
	default:
		return NewHTTPError(http.StatusInternalServerError, tryAgainMessage, string(e.Kind))
	}
}
