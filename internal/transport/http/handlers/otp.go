package handlers

import (
	"net/http"
	"strings"

	"github.com/pribylovaa/bearfit-auth/internal/transport/http/apierrors"
)

// SendOTP: POST /auth/send-otp.
func (h *Handlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var in sendOTPRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.otp.Send(r.Context(), email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP sent"})
}

// VerifyOTP: POST /auth/verify-otp.
func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in verifyOTPRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	email, code := strings.TrimSpace(in.Email), strings.TrimSpace(in.Code)
	if email == "" || code == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("email and code are required"))
		return
	}

	ok, err := h.otp.Verify(r.Context(), email, code)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if !ok {
		apierrors.WriteError(w, r, apierrors.Invalid("Invalid or expired code"))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "OTP verified"})
}
