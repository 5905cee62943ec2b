package gatesdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/copperline/gate/pkg/httpx"
)

// Error codes returned by the gate service. VerificationFailed and
// ProviderUnavailable are distinct on purpose: an infrastructure outage
// must never be presented as a failed login, and the other way round.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeInvalidToken        = "invalid_token"
	ErrorCodeInsufficientScope   = "insufficient_scope"
	ErrorCodeNotFound            = "not_found"
	ErrorCodeVerificationFailed  = "verification_failed"
	ErrorCodeProviderUnavailable = "provider_unavailable"
	ErrorCodeMethodDisabled      = "method_disabled"
	ErrorCodeServerError         = "server_error"
	ErrorCodeRateLimitExceeded   = "rate_limit_exceeded"
)

// GateError is the typed error body every non-2xx response carries. It is
// shared between the server handlers (to write responses) and the SDK
// client (to represent them).
type GateError struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the machine-readable error code
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes this GateError to an HTTP response writer.
func (e *GateError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

var (
	// ErrInvalidRequest is returned when the request is malformed or is
	// missing required parameters.
	ErrInvalidRequest = &GateError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	// ErrInvalidToken is returned when the bearer service token is missing
	// or does not verify.
	ErrInvalidToken = &GateError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "invalid or missing service token",
	}

	// ErrNotFound is returned when the referenced enrollment, challenge or
	// session does not exist.
	ErrNotFound = &GateError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "the referenced record does not exist",
	}

	// ErrVerificationFailed is returned when the presented code, assertion
	// or remember token did not verify. Retryable by the user.
	ErrVerificationFailed = &GateError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeVerificationFailed,
		Description: "second factor verification failed",
	}

	// ErrProviderUnavailable is returned when an external dependency
	// failed. Transient; retry with backoff.
	ErrProviderUnavailable = &GateError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeProviderUnavailable,
		Description: "factor provider temporarily unavailable",
	}

	// ErrMethodDisabled is returned when the factor kind is switched off
	// for this deployment.
	ErrMethodDisabled = &GateError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeMethodDisabled,
		Description: "this second factor method is disabled",
	}

	// ErrServerError is returned for unexpected internal failures.
	ErrServerError = &GateError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)
