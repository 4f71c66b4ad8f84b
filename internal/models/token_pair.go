package models

import (
	"time"

	"github.com/google/uuid"
)

// Payload: полезная нагрузка access/refresh-токенов.
// Не хранится в БД: живёт только внутри подписанного JWT.
type Payload struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// TokenPair: пара токенов, выдаваемая при входе/регистрации/ротации.
//
// Описание:
//   - AccessToken: короткоживущий JWT для доступа к API;
//   - RefreshToken: долгоживущий JWT, учитываемый в реестре refresh-токенов;
//   - AccessExpiresAt: момент истечения access-токена (UTC);
//   - RefreshExpiresAt: момент истечения сессии по записи реестра (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Session: результат входа: пользователь и выданная ему пара токенов.
type Session struct {
	User   *User
	Tokens *TokenPair
}
