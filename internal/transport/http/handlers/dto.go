package handlers

import (
	"github.com/pribylovaa/bearfit-auth/internal/models"
)

// Модели запросов и ответов REST. Имена полей совпадают с тем, что
// отправляет и читает мобильный клиент.

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type googleRequest struct {
	IDToken  string `json:"idToken"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type userResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type authResponse struct {
	Message      string        `json:"message"`
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         *userResponse `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type meResponse struct {
	UserID string        `json:"userId"`
	Email  string        `json:"email"`
	Role   string        `json:"role"`
	User   *userResponse `json:"user"`
}

func toUserResponse(u *models.User) *userResponse {
	return &userResponse{
		UserID:   u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Name:     u.Name,
		Role:     models.RoleUser,
	}
}

func sessionResponse(msg string, s *models.Session) authResponse {
	return authResponse{
		Message:      msg,
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		User:         toUserResponse(s.User),
	}
}
