package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. All components use these constants instead of
// hardcoded strings so the HTTP layer can map errors consistently.
const (
	// Validation (400)
	ErrCodeValidationTimeWindow    ErrorCode = "validation_time_window_invalid"
	ErrCodeValidationInvalidSignal ErrorCode = "validation_invalid_signal"
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidPhone  ErrorCode = "validation_invalid_phone_number"
	ErrCodeValidationInvalidDate   ErrorCode = "validation_invalid_date"

	// Preconditions (409)
	ErrCodeAlertNoRecipients       ErrorCode = "precondition_no_recipients"
	ErrCodeAlertNoPredictionsToday ErrorCode = "precondition_no_predictions_today"
	ErrCodeConflictPhoneExists     ErrorCode = "conflict_phone_number_exists"

	// Not Found (404)
	ErrCodeNotFoundFarmer     ErrorCode = "not_found_farmer"
	ErrCodeNotFoundPrediction ErrorCode = "not_found_prediction"

	// Upstream (502)
	ErrCodeSensorNoData        ErrorCode = "upstream_sensor_no_data"
	ErrCodeUpstreamSensor      ErrorCode = "upstream_sensor_unavailable"
	ErrCodeUpstreamNotifier    ErrorCode = "upstream_notifier_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"

	// Internal (500)
	ErrCodeInternalStorage     ErrorCode = "internal_storage_error"
	ErrCodeInternalComputation ErrorCode = "internal_computation_error"
	ErrCodeInternalUnexpected  ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeSensorNoData):
		// The upstream answered but had nothing to give; the request itself
		// was well-formed, so this is 404 rather than 502.
		return http.StatusNotFound
	case strings.HasPrefix(s, "precondition_"), strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case s == string(ErrCodeUpstreamRateLimited):
		return http.StatusTooManyRequests // 429
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type. All domain errors are
// expressed as AppError to enable consistent formatting, HTTP status mapping,
// and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain
// errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
