package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken: запись реестра выданных refresh-токенов.
// Запись действительна, пока Revoked == false и ExpiresAt в будущем.
type RefreshToken struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Active сообщает, пригодна ли запись для ротации в момент now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
