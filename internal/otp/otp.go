// otp: одноразовые коды подтверждения e-mail.
//
// Жизненный цикл кода для адреса: нет кода -> ожидает проверки -> нет кода
// (использован или истёк). Новый Send перезаписывает ожидающий код.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/bearfit-auth/internal/cache"
	"github.com/pribylovaa/bearfit-auth/internal/mail"
	"github.com/pribylovaa/bearfit-auth/internal/metrics"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/log"
	"github.com/pribylovaa/bearfit-auth/internal/pkg/redact"
)

const (
	// TTL: время жизни кода.
	TTL = 300 * time.Second

	codeMin = 10000
	codeMax = 99999
)

var (
	// ErrStorage: хранилище кодов недоступно.
	ErrStorage = errors.New("otp storage unavailable")
	// ErrDelivery: письмо с кодом не отправлено.
	ErrDelivery = errors.New("otp delivery failed")
)

// Manager выпускает и проверяет коды.
type Manager struct {
	store   cache.Store
	sender  mail.Sender
	prefix  string
	appName string
	gen     func() (string, error)
	metrics *metrics.Metrics
}

// Option настраивает Manager.
type Option func(*Manager)

// WithGenerator подменяет генератор кодов (тесты).
func WithGenerator(gen func() (string, error)) Option {
	return func(m *Manager) { m.gen = gen }
}

// WithMetrics включает учёт событий в метриках.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// New создаёт Manager. prefix: префикс ключа в хранилище ("otp:").
func New(store cache.Store, sender mail.Sender, prefix, appName string, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		sender:  sender,
		prefix:  prefix,
		appName: appName,
		gen:     GenerateCode,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// GenerateCode возвращает равномерно распределённый код из диапазона 10000–99999.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

func (m *Manager) key(email string) string {
	return m.prefix + strings.ToLower(strings.TrimSpace(email))
}

// Send генерирует код, сохраняет его на TTL и отправляет письмом.
// Если письмо не ушло, удаляется только код этого вызова: код, который
// успел записать и доставить параллельный Send, остаётся действительным.
func (m *Manager) Send(ctx context.Context, email string) error {
	const op = "otp.Send"

	lg := log.From(ctx)

	code, err := m.gen()
	if err != nil {
		lg.Error("otp_generate_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	key := m.key(email)
	if err := m.store.Set(ctx, key, code, TTL); err != nil {
		lg.Error("otp_store_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		m.metrics.OTP("send_failed")
		return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if err := m.sender.Send(ctx, mail.OTPMessage(m.appName, email, code, TTL)); err != nil {
		lg.Error("otp_delivery_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)

		// Откат: отменённый ctx не должен помешать удалить код.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		removed, derr := m.store.CompareAndDelete(rbCtx, key, code)
		switch {
		case derr != nil:
			lg.Warn("otp_rollback_failed",
				slog.String("op", op),
				slog.String("err", derr.Error()),
			)
		case !removed:
			lg.Info("otp_rollback_skipped",
				slog.String("op", op),
				slog.String("email", redact.Email(email)),
			)
		}

		m.metrics.OTP("send_failed")
		return fmt.Errorf("%s: %w: %w", op, ErrDelivery, err)
	}

	m.metrics.OTP("sent")
	lg.Info("otp_sent",
		slog.String("op", op),
		slog.String("email", redact.Email(email)),
	)

	return nil
}

// Verify проверяет код и при совпадении удаляет его.
// Неверный, отсутствующий или истёкший код: (false, nil); неверный код
// не расходует ожидающий. Сравнение и удаление выполняются атомарно,
// поэтому из конкурентных проверок одного кода успешна ровно одна.
func (m *Manager) Verify(ctx context.Context, email, code string) (bool, error) {
	const op = "otp.Verify"

	lg := log.From(ctx)

	if code == "" {
		return false, nil
	}

	ok, err := m.store.CompareAndDelete(ctx, m.key(email), code)
	if err != nil {
		lg.Error("otp_verify_failed",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
			slog.String("err", err.Error()),
		)
		m.metrics.OTP("verify_failed")
		return false, fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
	}

	if !ok {
		m.metrics.OTP("mismatch")
		lg.Info("otp_mismatch",
			slog.String("op", op),
			slog.String("email", redact.Email(email)),
		)
		return false, nil
	}

	m.metrics.OTP("verified")
	lg.Info("otp_verified",
		slog.String("op", op),
		slog.String("email", redact.Email(email)),
	)

	return true, nil
}
