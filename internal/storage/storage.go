// storage описывает контракты хранилища пользователей и реестра refresh-токенов.
// Реализации (postgres) обязаны оборачивать свои ошибки в сентинелы пакета,
// чтобы сервисный слой мог различать «не найдено» и «конфликт уникальности».
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/bearfit-auth/internal/models"
)

var (
	// ErrNotFound: запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists: нарушение уникальности (email/username/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmailExists: e-mail уже занят; errors.Is(err, ErrAlreadyExists) тоже верно.
	ErrEmailExists = fmt.Errorf("email %w", ErrAlreadyExists)
	// ErrUsernameExists: username уже занят; errors.Is(err, ErrAlreadyExists) тоже верно.
	ErrUsernameExists = fmt.Errorf("username %w", ErrAlreadyExists)
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД; ErrEmailExists или
	// ErrUsernameExists при нарушении уникальности.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RefreshTokenStorage: реестр выданных refresh-токенов.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новую запись; ErrAlreadyExists при повторе значения токена.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshToken находит запись по значению токена.
	RefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// RevokeRefreshToken атомарно отзывает активный токен.
	// (true, nil): отозван сейчас; (false, nil): уже был отозван; ErrNotFound: нет записи.
	RevokeRefreshToken(ctx context.Context, token string) (bool, error)
	// DeleteExpiredTokens удаляет записи, истёкшие раньше before.
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close()
}
