package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/log"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
)

// Principal возвращает текущую запись пользователя по ID из access-токена.
// Удалённый или деактивированный пользователь получает ошибку аутентификации,
// даже если токен ещё не истёк.
func (s *Service) Principal(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service.lookup.Principal"

	user, err := s.storage.UserByID(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.metrics.AuthFailure(flowAccess)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
	case err != nil:
		log.From(ctx).Error("principal_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if !user.IsActive {
		s.metrics.AuthFailure(flowAccess)
		return nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	return user, nil
}

// EmailExists сообщает, зарегистрирован ли e-mail.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "service.lookup.EmailExists"

	email = normalizeEmail(email)
	if email == "" {
		return false, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	_, err := s.storage.UserByEmail(ctx, email)
	return exists(op, err)
}

// UsernameExists сообщает, занят ли username.
func (s *Service) UsernameExists(ctx context.Context, username string) (bool, error) {
	const op = "service.lookup.UsernameExists"

	username = strings.TrimSpace(username)
	if username == "" {
		return false, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	_, err := s.storage.UserByUsername(ctx, username)
	return exists(op, err)
}

func exists(op string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}
}
