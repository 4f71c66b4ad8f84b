package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/bearfit-auth/internal/google"
	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/log"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/redact"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
)

// FederatedInput: данные входа через Google.
// IDToken приоритетнее Email; Email используется только при включённом
// Config.AllowEmailFallback.
type FederatedInput struct {
	IDToken  string
	Email    string
	Username string
	Name     string
}

// identity: проверенная личность внешнего провайдера.
type identity struct {
	email string
	// nameHints: кандидаты на отображаемое имя по убыванию приоритета.
	nameHints []string
}

// FederatedSignIn выполняет вход по ID-токену Google. Если пользователя с таким
// e-mail нет, он создаётся со случайным паролем; существующий пользователь
// просто получает новую пару токенов.
func (s *Service) FederatedSignIn(ctx context.Context, in FederatedInput) (*models.Session, error) {
	const op = "service.federated.FederatedSignIn"

	id, err := s.verifyIDToken(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.signInOrCreate(ctx, id, in.Username, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sess, nil
}

// FederatedSignInByEmail: вход «через Google» по e-mail без ID-токена.
// Адрес ничем не подтверждён, поэтому путь выключен, пока не задан
// Config.AllowEmailFallback.
func (s *Service) FederatedSignInByEmail(ctx context.Context, in FederatedInput) (*models.Session, error) {
	const op = "service.federated.FederatedSignInByEmail"

	id, err := s.emailIdentity(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.signInOrCreate(ctx, id, in.Username, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sess, nil
}

// CompleteFederatedRegistration завершает регистрацию через Google.
// С ID-токеном ведёт себя как FederatedSignIn; по e-mail создаёт только
// нового пользователя и возвращает ErrEmailTaken для существующего.
func (s *Service) CompleteFederatedRegistration(ctx context.Context, in FederatedInput) (*models.Session, error) {
	const op = "service.federated.CompleteFederatedRegistration"

	if strings.TrimSpace(in.IDToken) != "" {
		return s.FederatedSignIn(ctx, in)
	}

	id, err := s.emailIdentity(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.signInOrCreate(ctx, id, in.Username, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return sess, nil
}

func (s *Service) verifyIDToken(ctx context.Context, in FederatedInput) (identity, error) {
	const op = "service.federated.verifyIDToken"

	raw := strings.TrimSpace(in.IDToken)
	if raw == "" {
		return identity{}, ErrIDTokenRequired
	}

	claims, err := s.google.Verify(ctx, raw)
	if err != nil {
		lg := log.From(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return identity{}, err
		case errors.Is(err, google.ErrNotConfigured):
			lg.Error("google_not_configured", slog.String("op", op))
			return identity{}, err
		case errors.Is(err, google.ErrMissingEmail):
			s.metrics.AuthFailure(flowFederated)
			return identity{}, ErrIDTokenNoEmail
		default:
			s.metrics.AuthFailure(flowFederated)
			lg.Info("google_id_token_rejected",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return identity{}, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
		}
	}

	return identity{
		email:     normalizeEmail(claims.Email),
		nameHints: []string{in.Name, claims.Name, claims.GivenName},
	}, nil
}

func (s *Service) emailIdentity(in FederatedInput) (identity, error) {
	if !s.cfg.AllowEmailFallback {
		return identity{}, ErrIDTokenRequired
	}

	email := normalizeEmail(in.Email)
	if email == "" {
		return identity{}, ErrInvalidInput
	}

	return identity{email: email, nameHints: []string{in.Name}}, nil
}

// signInOrCreate находит пользователя по e-mail или создаёт нового и выдаёт пару.
// requireNew запрещает вход в существующий аккаунт.
func (s *Service) signInOrCreate(ctx context.Context, id identity, username string, requireNew bool) (*models.Session, error) {
	const op = "service.federated.signInOrCreate"

	lg := log.From(ctx)
	username = strings.TrimSpace(username)

	user, err := s.storage.UserByEmail(ctx, id.email)
	switch {
	case err == nil:
		if requireNew {
			return nil, ErrEmailTaken
		}
	case errors.Is(err, storage.ErrNotFound):
		user, err = s.createFederatedUser(ctx, id, username)
		if err != nil {
			if !errors.Is(err, ErrEmailTaken) || requireNew {
				return nil, err
			}

			// Параллельный вход того же пользователя успел создать аккаунт.
			createErr := err
			user, err = s.storage.UserByEmail(ctx, id.email)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				return nil, createErr
			case err != nil:
				return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
			}
		}
	default:
		lg.Error("federated_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if !user.IsActive {
		s.metrics.AuthFailure(flowFederated)
		return nil, ErrAccountDisabled
	}

	return s.issueSession(ctx, user, flowFederated)
}

func (s *Service) createFederatedUser(ctx context.Context, id identity, username string) (*models.User, error) {
	const op = "service.federated.createFederatedUser"

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}

	pw, err := randomPassword()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(pw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name := firstNonEmpty(append(id.nameHints, localPart(id.email))...)
	user, err := s.createUser(ctx, id.email, username, name, hash)
	if err != nil {
		return nil, err
	}

	log.From(ctx).Info("federated_user_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(id.email)),
	)

	return user, nil
}
