package types

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorCode_HTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationTimeWindow, http.StatusBadRequest},
		{ErrCodeValidationInvalidPhone, http.StatusBadRequest},
		{ErrCodeAlertNoRecipients, http.StatusConflict},
		{ErrCodeAlertNoPredictionsToday, http.StatusConflict},
		{ErrCodeConflictPhoneExists, http.StatusConflict},
		{ErrCodeNotFoundFarmer, http.StatusNotFound},
		{ErrCodeNotFoundPrediction, http.StatusNotFound},
		{ErrCodeSensorNoData, http.StatusNotFound},
		{ErrCodeUpstreamSensor, http.StatusBadGateway},
		{ErrCodeUpstreamNotifier, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternalStorage, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := tc.code.HTTPStatus(); got != tc.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tc.code, got, tc.want)
			}
		})
	}
}

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewAppError(ErrCodeUpstreamSensor, "storage API unreachable", inner)

	if err.Error() != "upstream_sensor_unavailable: storage API unreachable" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var appErr *AppError
	if !errors.As(error(err), &appErr) {
		t.Fatal("errors.As failed")
	}
	if appErr.HTTPStatus() != 502 {
		t.Errorf("HTTPStatus = %d, want 502", appErr.HTTPStatus())
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := NewAppError(ErrCodeValidationMissingField, "invalid request", nil).
		WithDetails(map[string]any{"field": "phone_number"})

	if err.Details["field"] != "phone_number" {
		t.Errorf("Details = %v", err.Details)
	}
}
