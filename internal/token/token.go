// token: кодек JWT для пары access/refresh.
//
// Токены подписываются HS256 двумя разными секретами и несут одинаковую
// полезную нагрузку (uid, email, role). Дополнительный клейм typ фиксирует вид
// токена, поэтому refresh-токен не пройдёт проверку как access и наоборот,
// даже если секреты по ошибке окажутся одинаковыми.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/bearfit-auth/internal/models"
)

var (
	// ErrExpired: срок действия токена истёк.
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature: подпись, формат или вид токена некорректны.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrMissingSecret: секрет не задан.
	ErrMissingSecret = errors.New("token secret is not configured")
	// ErrSameSecrets: секреты access и refresh совпадают.
	ErrSameSecrets = errors.New("access and refresh secrets must differ")
	// ErrNonPositiveTTL: TTL должен быть > 0.
	ErrNonPositiveTTL = errors.New("token ttl must be positive")
)

// Kind: вид токена.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Config: параметры кодека.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Codec выпускает и проверяет токены. Безопасен для конкурентного использования.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

type claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// New создаёт кодек; отсутствие секрета или совпадение секретов приводит к ошибке старта.
func New(cfg Config, opts ...Option) (*Codec, error) {
	const op = "token.New"

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingSecret)
	}

	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("%s: %w", op, ErrSameSecrets)
	}

	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNonPositiveTTL)
	}

	c := &Codec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AccessTTL возвращает срок жизни access-токена.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL возвращает срок жизни refresh-токена.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess подписывает access-токен; возвращает строку и момент истечения.
func (c *Codec) IssueAccess(p models.Payload) (string, time.Time, error) {
	return c.issue(p, KindAccess)
}

// IssueRefresh подписывает refresh-токен; возвращает строку и момент истечения.
func (c *Codec) IssueRefresh(p models.Payload) (string, time.Time, error) {
	return c.issue(p, KindRefresh)
}

// VerifyAccess проверяет access-токен и возвращает полезную нагрузку.
func (c *Codec) VerifyAccess(raw string) (models.Payload, error) {
	return c.verify(raw, KindAccess)
}

// VerifyRefresh проверяет refresh-токен и возвращает полезную нагрузку.
func (c *Codec) VerifyRefresh(raw string) (models.Payload, error) {
	return c.verify(raw, KindRefresh)
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.refreshSecret
	}

	return c.accessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}

	return c.accessTTL
}

func (c *Codec) issue(p models.Payload, kind Kind) (string, time.Time, error) {
	const op = "token.issue"

	now := c.now().UTC()
	exp := now.Add(c.ttl(kind))

	cl := claims{
		UserID: p.UserID.String(),
		Email:  p.Email,
		Role:   p.Role,
		Type:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti делает каждую строку токена уникальной даже при выпуске в ту же секунду.
			ID:        uuid.NewString(),
			Subject:   p.UserID.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret(kind))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	// В токене exp хранится с точностью до секунды.
	return signed, exp.Truncate(time.Second), nil
}

func (c *Codec) verify(raw string, kind Kind) (models.Payload, error) {
	const op = "token.verify"

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.issuer))
	}

	var cl claims
	tok, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (any, error) {
		return c.secret(kind), nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Payload{}, fmt.Errorf("%s: %w", op, ErrExpired)
		}

		return models.Payload{}, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	if !tok.Valid || cl.Type != kind {
		return models.Payload{}, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	uid, err := uuid.Parse(cl.UserID)
	if err != nil {
		return models.Payload{}, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	return models.Payload{UserID: uid, Email: cl.Email, Role: cl.Role}, nil
}
