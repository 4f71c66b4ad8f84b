package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/log"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
	"github.com/pribylovaa/bearfit-auth/internal/token"
)

// Названия сценариев для логов и метрик.
const (
	flowRegister  = "register"
	flowLogin     = "login"
	flowRefresh   = "refresh"
	flowFederated = "federated"
	flowAccess    = "access"
)

// maxIssueAttempts: сколько раз перевыпускать refresh-токен при коллизии в реестре.
const maxIssueAttempts = 3

// issueSession выпускает пару токенов для пользователя и заносит refresh-токен
// в реестр со сроком now + refresh TTL.
func (s *Service) issueSession(ctx context.Context, user *models.User, flow string) (*models.Session, error) {
	const op = "service.token.issueSession"

	lg := log.From(ctx)

	payload := models.Payload{UserID: user.ID, Email: user.Email, Role: models.RoleUser}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		pair, err := s.signPair(payload)
		if err != nil {
			lg.Error("token_sign_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		err = s.storage.SaveRefreshToken(ctx, &models.RefreshToken{
			Token:     pair.RefreshToken,
			UserID:    user.ID,
			ExpiresAt: pair.RefreshExpiresAt,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				continue
			}

			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
		}

		s.metrics.TokensIssued(flow)
		lg.Info("tokens_issued",
			slog.String("op", op),
			slog.String("flow", flow),
			slog.String("user_id", user.ID.String()),
		)

		return &models.Session{User: user, Tokens: pair}, nil
	}

	lg.Error("refresh_collision_exceeded", slog.String("op", op))

	return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
}

func (s *Service) signPair(p models.Payload) (*models.TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(p)
	if err != nil {
		return nil, err
	}

	refresh, refreshExp, err := s.codec.IssueRefresh(p)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh обменивает refresh-токен на новую пару.
//
// Новая запись реестра получает тот же срок, что и старая: ротация не продлевает
// сессию. Старый токен отзывается только при Config.RevokeOnRotate и только
// после сохранения новой записи; иначе он остаётся действительным до своего
// истечения. Коллизия новой записи в реестре считается безвредной и игнорируется.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.token.Refresh"

	lg := log.From(ctx)

	reject := func(event string, attrs ...slog.Attr) (*models.TokenPair, error) {
		s.metrics.AuthFailure(flowRefresh)
		lg.LogAttrs(ctx, slog.LevelInfo, event, append(attrs, slog.String("op", op))...)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	payload, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return reject("refresh_token_invalid", slog.String("err", err.Error()))
	}

	rec, err := s.storage.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return reject("refresh_lookup_not_found", slog.String("user_id", payload.UserID.String()))
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if rec.Revoked {
		return reject("refresh_revoked", slog.String("user_id", rec.UserID.String()))
	}

	if !rec.Active(s.now()) {
		return reject("refresh_expired", slog.String("user_id", rec.UserID.String()))
	}

	if rec.UserID != payload.UserID {
		return reject("refresh_owner_mismatch", slog.String("user_id", rec.UserID.String()))
	}

	pair, err := s.signPair(payload)
	if err != nil {
		lg.Error("token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	pair.RefreshExpiresAt = rec.ExpiresAt

	err = s.storage.SaveRefreshToken(ctx, &models.RefreshToken{
		Token:     pair.RefreshToken,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		if !errors.Is(err, storage.ErrAlreadyExists) {
			lg.Error("save_refresh_token_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
		}

		lg.Warn("refresh_rotation_collision_ignored", slog.String("op", op))
	}

	// Старый токен отзывается только после сохранения нового: сбой на любом
	// шаге оставляет клиенту рабочий старый токен.
	if s.cfg.RevokeOnRotate {
		revoked, err := s.storage.RevokeRefreshToken(ctx, refreshToken)
		switch {
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			s.discardRefreshToken(ctx, pair.RefreshToken)
			lg.Error("refresh_revoke_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
		case err != nil:
			s.discardRefreshToken(ctx, pair.RefreshToken)
			return reject("refresh_lookup_not_found", slog.String("user_id", rec.UserID.String()))
		case !revoked:
			// Конкурентная ротация того же токена уже забрала его.
			s.discardRefreshToken(ctx, pair.RefreshToken)
			return reject("refresh_rotation_lost_race", slog.String("user_id", rec.UserID.String()))
		}
	}

	s.metrics.TokensIssued(flowRefresh)
	lg.Info("tokens_rotated",
		slog.String("op", op),
		slog.String("user_id", rec.UserID.String()),
		slog.Bool("old_revoked", s.cfg.RevokeOnRotate),
	)

	return pair, nil
}

// discardRefreshToken отзывает только что выданный refresh-токен, если ротация
// не состоялась. Ошибка лишь логируется: клиент этот токен не получил.
func (s *Service) discardRefreshToken(ctx context.Context, token string) {
	const op = "service.token.discardRefreshToken"

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if _, err := s.storage.RevokeRefreshToken(dctx, token); err != nil {
		log.From(ctx).Warn("refresh_discard_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
	}
}

// ValidateToken проверяет access-токен (подпись и срок) и возвращает полезную нагрузку.
// Существование пользователя не перепроверяется.
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (models.Payload, error) {
	const op = "service.token.ValidateToken"

	p, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		s.metrics.AuthFailure(flowAccess)
		log.From(ctx).Debug("access_token_invalid",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return models.Payload{}, fmt.Errorf("%s: %w", op, ErrInvalidAccessToken)
	}

	return p, nil
}

// RevokeToken отзывает refresh-токен (logout). Повторный отзыв и отзыв уже
// истёкшего токена не считаются ошибкой.
func (s *Service) RevokeToken(ctx context.Context, refreshToken string) error {
	const op = "service.token.RevokeToken"

	lg := log.From(ctx)

	if _, err := s.codec.VerifyRefresh(refreshToken); err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	revoked, err := s.storage.RevokeRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		lg.Error("refresh_revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	lg.Info("refresh_revoked_by_user",
		slog.String("op", op),
		slog.Bool("was_active", revoked),
	)

	return nil
}

// PurgeExpiredTokens физически удаляет записи реестра, истёкшие более retention назад.
func (s *Service) PurgeExpiredTokens(ctx context.Context, retention time.Duration) (int64, error) {
	const op = "service.token.PurgeExpiredTokens"

	n, err := s.storage.DeleteExpiredTokens(ctx, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	return n, nil
}
