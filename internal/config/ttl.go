package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTTL: строка TTL не соответствует формату <целое><единица>.
var ErrInvalidTTL = errors.New("invalid ttl format")

// TTL: длительность в компактной записи: "30s", "15m", "12h", "7d".
// Без единицы значение трактуется как секунды ("300" == 5 минут).
//
// В отличие от time.ParseDuration поддерживаются дни и НЕ поддерживаются
// составные значения ("1h30m") и дробные числа. Некорректная строка даёт ошибку
// загрузки конфигурации, а не нулевой TTL.
type TTL time.Duration

// Duration возвращает значение как time.Duration.
func (t TTL) Duration() time.Duration { return time.Duration(t) }

// String возвращает представление в формате time.Duration.
func (t TTL) String() string { return time.Duration(t).String() }

// SetValue реализует cleanenv.Setter (ENV и env-default).
func (t *TTL) SetValue(s string) error {
	d, err := ParseTTL(s)
	if err != nil {
		return err
	}

	*t = TTL(d)
	return nil
}

// UnmarshalText реализует encoding.TextUnmarshaler (YAML).
func (t *TTL) UnmarshalText(b []byte) error {
	return t.SetValue(string(b))
}

// ParseTTL разбирает компактную запись длительности.
func ParseTTL(raw string) (time.Duration, error) {
	const op = "config.ParseTTL"

	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%s: %q: %w", op, raw, ErrInvalidTTL)
	}

	unit := time.Second
	switch s[len(s)-1] {
	case 's':
		s = s[:len(s)-1]
	case 'm':
		unit = time.Minute
		s = s[:len(s)-1]
	case 'h':
		unit = time.Hour
		s = s[:len(s)-1]
	case 'd':
		unit = 24 * time.Hour
		s = s[:len(s)-1]
	}

	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, fmt.Errorf("%s: %q: %w", op, raw, ErrInvalidTTL)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q: %w", op, raw, ErrInvalidTTL)
	}

	if n > int64(1<<63-1)/int64(unit) {
		return 0, fmt.Errorf("%s: %q: %w", op, raw, ErrInvalidTTL)
	}

	return time.Duration(n) * unit, nil
}
