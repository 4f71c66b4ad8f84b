package handlers

import (
	"net/http"
	"strings"

	"github.com/pribylovaa/bearfit-auth/internal/service"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/apierrors"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/middleware"
)

// Register: POST /auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.Email == "" || in.Password == "" || in.Username == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("Username, email, and password are required"))
		return
	}

	for _, err := range []error{
		validateEmail(in.Email),
		validateUsername(in.Username),
		validatePassword(in.Password),
		validateName(in.Name),
	} {
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
	}

	sess, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Username: in.Username,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse("Registration successful", sess))
}

// Login: POST /auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("email and password are required"))
		return
	}

	sess, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse("Login successful", sess))
}

// Refresh: POST /auth/refresh.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if strings.TrimSpace(in.RefreshToken) == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("refreshToken is required"))
		return
	}

	pair, err := h.auth.Refresh(r.Context(), strings.TrimSpace(in.RefreshToken))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Message:      "Token refreshed successfully",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout: POST /auth/logout: отзыв одного refresh-токена.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if strings.TrimSpace(in.RefreshToken) == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("refreshToken is required"))
		return
	}

	if err := h.auth.RevokeToken(r.Context(), strings.TrimSpace(in.RefreshToken)); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// Google: POST /auth/google: вход по ID-токену или, если разрешено, по e-mail.
func (h *Handlers) Google(w http.ResponseWriter, r *http.Request) {
	var in googleRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := validateGoogle(&in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	fin := service.FederatedInput{IDToken: in.IDToken, Email: in.Email, Username: in.Username, Name: in.Name}

	switch {
	case in.IDToken != "":
		sess, err := h.auth.FederatedSignIn(r.Context(), fin)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse("Google sign-in successful", sess))
	case in.Email != "":
		sess, err := h.auth.FederatedSignInByEmail(r.Context(), fin)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse("Google sign-in (email fallback) successful", sess))
	default:
		apierrors.WriteError(w, r, apierrors.Invalid("Either idToken or email is required"))
	}
}

// RegisterGoogle: POST /auth/register-google.
func (h *Handlers) RegisterGoogle(w http.ResponseWriter, r *http.Request) {
	var in googleRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := validateGoogle(&in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if in.IDToken == "" && in.Email == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("email is required"))
		return
	}

	sess, err := h.auth.CompleteFederatedRegistration(r.Context(), service.FederatedInput{
		IDToken:  in.IDToken,
		Email:    in.Email,
		Username: in.Username,
		Name:     in.Name,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse("Google registration successful", sess))
}

// EmailExists: GET /auth/exists?email=.
func (h *Handlers) EmailExists(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("email query parameter is required"))
		return
	}

	exists, err := h.auth.EmailExists(r.Context(), email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, existsResponse{Exists: exists})
}

// UsernameExists: GET /auth/username-exists?username=.
func (h *Handlers) UsernameExists(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		apierrors.WriteError(w, r, apierrors.Invalid("username query parameter is required"))
		return
	}

	exists, err := h.auth.UsernameExists(r.Context(), username)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, existsResponse{Exists: exists})
}

// Me: GET /auth/me, за RequireAuth. Клеймы токена дополняются текущей
// записью пользователя из хранилища.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PayloadFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidAccessToken)
		return
	}

	user, err := h.auth.Principal(r.Context(), p.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		UserID: p.UserID.String(),
		Email:  p.Email,
		Role:   p.Role,
		User:   toUserResponse(user),
	})
}
