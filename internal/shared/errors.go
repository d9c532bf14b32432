package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")
	ErrTimeout    = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Error kinds reported to HTTP clients.
const (
	KindValidation = "validation_error"
	KindAuth       = "auth_error"
	KindUpstream   = "upstream_error"
	KindInternal   = "internal_error"
)

// UpstreamError describes a failed or malformed response from the catalog service.
//
// Status is the upstream HTTP status code, or 0 when no response was received.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s: upstream status %d: %v", ErrAPIRequest, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrAPIRequest, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is reports every UpstreamError as an [ErrAPIRequest].
func (e *UpstreamError) Is(target error) bool {
	return target == ErrAPIRequest
}

// NewUpstreamError wraps err as an [UpstreamError] for the named operation.
func NewUpstreamError(op string, status int, err error) *UpstreamError {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	return &UpstreamError{Op: op, Status: status, Err: err}
}

// IsValidation reports whether err is caused by missing or malformed caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrMissingArgument) || errors.Is(err, ErrInvalidArgument)
}

// IsAuth reports whether err is caused by missing or rejected catalog credentials.
func IsAuth(err error) bool {
	return errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrAuthFailed)
}

// ErrorKind classifies err into one of the Kind* constants.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return KindValidation
	case IsAuth(err):
		return KindAuth
	case errors.Is(err, ErrAPIRequest):
		return KindUpstream
	default:
		return KindInternal
	}
}

// StatusCode maps err to the HTTP status returned to clients.
func StatusCode(err error) int {
	switch ErrorKind(err) {
	case "":
		return http.StatusOK
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
