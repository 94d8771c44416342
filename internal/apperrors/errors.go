package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the caller is authenticated but lacks the required permission.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized indicates the caller could not be authenticated.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidCredentials covers both "unknown email" and "wrong password" so the
// response cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAccountDeactivated indicates the account exists but has been disabled.
var ErrAccountDeactivated = errors.New("account is deactivated")

// ErrNoToken indicates no token was presented on a protected endpoint.
var ErrNoToken = errors.New("authentication token required")

// ErrInvalidToken indicates a token was presented but failed verification.
var ErrInvalidToken = errors.New("invalid token")

// ErrTokenExpired indicates a cryptographically valid token past its expiry.
// Kept distinct from ErrInvalidToken so clients know a refresh may still succeed.
var ErrTokenExpired = errors.New("token has expired")

// ErrInvalidRefreshToken covers a cryptographically bad, expired, or
// already-rotated-away refresh token. Always terminal for the session.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// ErrNotConfigured indicates an optional integration (e.g. Google OAuth) has no
// configuration and its endpoints are disabled.
var ErrNotConfigured = errors.New("feature not configured")

// Machine-readable codes returned to clients alongside the HTTP status, so the
// frontend can distinguish "retry with refresh" from "log in again".
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeAccountExists   = "ACCOUNT_EXISTS"
	CodeInvalidCreds    = "INVALID_CREDENTIALS"
	CodeDeactivated     = "ACCOUNT_DEACTIVATED"
	CodeNoToken         = "NO_TOKEN"
	CodeTokenInvalid    = "TOKEN_INVALID"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeRefreshInvalid  = "REFRESH_TOKEN_INVALID"
	CodeForbidden       = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound        = "NOT_FOUND"
	CodeNotConfigured   = "NOT_CONFIGURED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeBadGateway      = "UPSTREAM_ERROR"
	CodeTooManyRequests = "RATE_LIMIT_EXCEEDED"
)

// AppError is an error carrying an HTTP status and a machine-readable code.
// Handlers unwrap it with errors.As and serialise it directly.
type AppError struct {
	Code      int    `json:"-"`
	ErrorCode string `json:"code"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError with an explicit HTTP status.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, ErrorCode: CodeInternal, Message: message, Err: err}
}

// NewBadRequestError creates a 400 AppError.
func NewBadRequestError(message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, ErrorCode: CodeValidation, Message: message, Err: ErrValidation}
}

// NewUnauthorizedError creates a 401 AppError.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, ErrorCode: CodeTokenInvalid, Message: message, Err: ErrUnauthorized}
}

// NewForbiddenError creates a 403 AppError.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: http.StatusForbidden, ErrorCode: CodeForbidden, Message: message, Err: ErrForbidden}
}

// NewNotFoundError creates a 404 AppError.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: http.StatusNotFound, ErrorCode: CodeNotFound, Message: message, Err: ErrNotFound}
}

// NewConflictError creates a 409 AppError.
func NewConflictError(message string) *AppError {
	return &AppError{Code: http.StatusConflict, ErrorCode: CodeAccountExists, Message: message, Err: ErrDuplicate}
}

// NewInternalServerError creates a 500 AppError.
func NewInternalServerError(message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, ErrorCode: CodeInternal, Message: message}
}

// NewGatewayTimeoutError creates a 504 AppError for upstream failures.
func NewGatewayTimeoutError(message string) *AppError {
	return &AppError{Code: http.StatusGatewayTimeout, ErrorCode: CodeBadGateway, Message: message}
}

// StatusAndCode maps a sentinel error to its HTTP status and machine code.
// Unrecognised errors map to a 500 so internals never leak by accident.
func StatusAndCode(err error) (int, string) {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, CodeAccountExists
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCreds
	case errors.Is(err, ErrAccountDeactivated):
		return http.StatusForbidden, CodeDeactivated
	case errors.Is(err, ErrNoToken):
		return http.StatusUnauthorized, CodeNoToken
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, CodeTokenExpired
	case errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized, CodeTokenInvalid
	case errors.Is(err, ErrInvalidRefreshToken):
		return http.StatusUnauthorized, CodeRefreshInvalid
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeTokenInvalid
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrNotConfigured):
		return http.StatusNotImplemented, CodeNotConfigured
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
