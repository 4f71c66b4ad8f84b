package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleUser: единственная роль, которую выдаёт сервис.
const RoleUser = "USER"

// User: зарегистрированный пользователь (principal).
//
// Username необязателен: пользователь, пришедший через Google без выбора
// имени, хранится с пустым Username (NULL в БД).
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
