// service содержит бизнес-логику auth-сервиса: регистрацию и вход по паролю,
// вход через Google, выпуск и ротацию пары access/refresh и учёт выданных
// refresh-токенов в реестре.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования, если потокобезопасно переданное хранилище.
//   - Ошибки относятся к одному из видов (ErrValidation, ErrConflict,
//     ErrAuthentication, ErrStorage), которые транспорт маппит на HTTP-статусы.
//   - Внутренних ретраев нет: повтор операции остаётся на вызывающей стороне.
package service

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/bearfit-auth/internal/google"
	"github.com/pribylovaa/bearfit-auth/internal/metrics"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
	"github.com/pribylovaa/bearfit-auth/internal/token"
)

// Config: флаги поведения сервиса.
type Config struct {
	// RevokeOnRotate: отзывать старый refresh-токен при ротации.
	// Выключено: старый токен остаётся действительным до своего истечения.
	RevokeOnRotate bool
	// AllowEmailFallback: разрешить вход через Google по e-mail без ID-токена.
	AllowEmailFallback bool
}

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage  storage.Storage
	codec    *token.Codec
	google   google.Verifier
	cfg      Config
	metrics  *metrics.Metrics
	now      func() time.Time
	hashCost int
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics включает учёт выданных токенов и отказов.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithHashCost задаёт стоимость bcrypt (в тестах bcrypt.MinCost).
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, codec *token.Codec, verifier google.Verifier, cfg Config, opts ...Option) *Service {
	s := &Service{
		storage:  st,
		codec:    codec,
		google:   verifier,
		cfg:      cfg,
		now:      time.Now,
		hashCost: bcrypt.DefaultCost,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}
