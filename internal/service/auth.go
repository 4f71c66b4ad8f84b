package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/log"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/redact"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
)

// RegisterInput: данные регистрации по паролю.
// Формат username/пароля проверяет транспорт до вызова.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Username string
}

// Register создаёт пользователя и выдаёт ему пару токенов.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Session, error) {
	const op = "service.auth.Register"

	lg := log.From(ctx)

	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidInput)
	}

	if err := s.ensureEmailFree(ctx, email); err != nil {
		lg.Info("register_rejected",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.ensureUsernameFree(ctx, username); err != nil {
		lg.Info("register_rejected",
			slog.String("op", op),
			slog.String("username", redact.Username(username)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name := firstNonEmpty(in.Name, username, localPart(email))
	user, err := s.createUser(ctx, email, username, name, hash)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return s.issueSession(ctx, user, flowRegister)
}

// Login выполняет вход по e-mail и паролю.
// Для неизвестного e-mail, неверного пароля и неактивного пользователя
// возвращается одна и та же ошибка ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	email = normalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.AuthFailure(flowLogin)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Сравнение с фиктивным хэшем выравнивает время ответа
			// для существующих и несуществующих адресов.
			s.comparePassword(s.dummyHash(), password)
			s.metrics.AuthFailure(flowLogin)
			lg.Info("login_unknown_email",
				slog.String("op", op),
				slog.String("email", redact.Email(email)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("login_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if !s.comparePassword(user.PasswordHash, password) || !user.IsActive {
		s.metrics.AuthFailure(flowLogin)
		lg.Info("login_rejected",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.Bool("active", user.IsActive),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return s.issueSession(ctx, user, flowLogin)
}

// createUser сохраняет нового пользователя с уже посчитанным хэшем пароля.
func (s *Service) createUser(ctx context.Context, email, username, name, passwordHash string) (*models.User, error) {
	const op = "service.auth.createUser"

	now := s.now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		// Гонка двух регистраций: предварительная проверка прошла у обеих.
		switch {
		case errors.Is(err, storage.ErrUsernameExists):
			return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		log.From(ctx).Error("save_user_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	return user, nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	exists, err := s.EmailExists(ctx, email)
	if err != nil {
		return err
	}

	if exists {
		return ErrEmailTaken
	}

	return nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	if username == "" {
		return nil
	}

	exists, err := s.UsernameExists(ctx, username)
	if err != nil {
		return err
	}

	if exists {
		return ErrUsernameTaken
	}

	return nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func (s *Service) hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	b, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// comparePassword сравнивает пароль с хэшем.
func (s *Service) comparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func (s *Service) dummyHash() string {
	dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.hashCost)
		if err == nil {
			dummy = string(h)
		}
	})

	return dummy
}

// randomPassword: пароль для аккаунтов, созданных через Google: входа по
// паролю у них нет, пока пользователь не задаст пароль сам.
func randomPassword() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// normalizeEmail обрезает пробелы и приводит адрес к нижнему регистру.
func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
