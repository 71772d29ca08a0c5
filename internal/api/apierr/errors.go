package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNotFound            = "NOT_FOUND"
	CodeCodeExpired         = "CODE_EXPIRED"
	CodeCodeAlreadyConsumed = "CODE_ALREADY_CONSUMED"
	CodeDuplicateLink       = "DUPLICATE_LINK"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeUsernameExists      = "USERNAME_EXISTS"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return &httpError{http.StatusBadRequest, APIError{CodeValidationFailed, verr.Error(), verr.Field}}
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{Code: CodeNotFound, Message: "Not found"}}
	case errors.Is(err, model.ErrExpired):
		return &httpError{http.StatusGone, APIError{Code: CodeCodeExpired, Message: "Access code has expired"}}
	case errors.Is(err, model.ErrAlreadyConsumed):
		return &httpError{http.StatusGone, APIError{Code: CodeCodeAlreadyConsumed, Message: "Access code has already been used"}}
	case errors.Is(err, model.ErrDuplicateLink):
		return &httpError{http.StatusConflict, APIError{Code: CodeDuplicateLink, Message: "Already linked to this player"}}
	case errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{Code: CodeInvalidTransition, Message: "Achievement has already been reviewed"}}
	case errors.Is(err, model.ErrPermissionDenied):
		return &httpError{http.StatusForbidden, APIError{Code: CodePermissionDenied, Message: "Permission denied"}}
	case errors.Is(err, model.ErrValidationFailed):
		return &httpError{http.StatusBadRequest, APIError{Code: CodeValidationFailed, Message: "Validation failed"}}
	case errors.Is(err, model.ErrUsernameTaken):
		return &httpError{http.StatusConflict, APIError{Code: CodeUsernameExists, Message: "Username already exists"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeInvalidCredentials, Message: "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Invalid or expired token"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{Code: CodeInvalidRequest, Message: message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{Code: CodeUnauthorized, Message: "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{Code: CodeInternalError, Message: "Internal server error"}}
}
