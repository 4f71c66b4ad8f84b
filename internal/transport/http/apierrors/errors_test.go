package apierrors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/bearfit-auth/internal/google"
	"github.com/pribylovaa/bearfit-auth/internal/otp"
	"github.com/pribylovaa/bearfit-auth/internal/service"
)

func TestToHTTP_Mapping(t *testing.T) {
	t.Parallel()

	storageDown := fmt.Errorf("service.auth.Login: %w: %w", service.ErrStorage, errors.New("dial tcp: refused"))

	tcs := []struct {
		name       string
		in         error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"input", Invalid("email is required"), http.StatusBadRequest, "invalid_argument", "email is required"},
		{"validation", fmt.Errorf("op: %w", service.ErrIDTokenRequired), http.StatusBadRequest, "invalid_argument", "idToken is required"},
		{"conflict", fmt.Errorf("op: %w", service.ErrEmailTaken), http.StatusConflict, "already_exists", "user already exists"},
		{"credentials", fmt.Errorf("op: %w", service.ErrInvalidCredentials), http.StatusUnauthorized, "unauthenticated", "invalid email or password"},
		{"refresh", fmt.Errorf("op: %w", service.ErrInvalidToken), http.StatusUnauthorized, "unauthenticated", "invalid refresh token"},
		{"storage", storageDown, http.StatusServiceUnavailable, "unavailable", "service unavailable"},
		{"otp storage", fmt.Errorf("otp.Send: %w: %w", otp.ErrStorage, errors.New("x")), http.StatusServiceUnavailable, "unavailable", "service unavailable"},
		{"otp delivery", fmt.Errorf("otp.Send: %w: %w", otp.ErrDelivery, errors.New("x")), http.StatusBadGateway, "delivery_failed", "failed to send OTP"},
		{"google off", google.ErrNotConfigured, http.StatusServiceUnavailable, "unavailable", "google sign-in is not configured"},
		{"deadline inside storage", fmt.Errorf("op: %w: %w", service.ErrStorage, context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
		{"canceled", context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
		{"unknown", errors.New("bcrypt: boom"), http.StatusInternalServerError, "internal", "internal error"},
	}

	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gotStatus, resp := ToHTTP(tc.in)
			require.Equal(t, tc.wantStatus, gotStatus)
			require.Equal(t, tc.wantCode, resp.Error.Code)
			require.Equal(t, tc.wantMsg, resp.Error.Message)
		})
	}
}

func TestToHTTP_NilError_Returns500Internal(t *testing.T) {
	t.Parallel()

	gotStatus, resp := ToHTTP(nil)
	require.Equal(t, http.StatusInternalServerError, gotStatus)
	require.Equal(t, "internal", resp.Error.Code)
	require.Equal(t, "internal error", resp.Error.Message)
}

func TestWriteError_EnvelopeWithRequestID(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-Request-Id", "rid-1")

	WriteError(rr, req, service.ErrInvalidCredentials)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var env ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, APIError{Code: "unauthenticated", Message: "invalid email or password", RequestID: "rid-1"}, env.Error)
}
