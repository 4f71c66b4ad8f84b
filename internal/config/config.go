// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
//
// Конфигурация читается один раз на старте, валидируется и далее передаётся
// в компоненты по значению; глобального изменяемого состояния пакет не держит.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

var (
	// ErrMissingSecret: не задан один из JWT-секретов.
	ErrMissingSecret = errors.New("jwt secret is not configured")
	// ErrSameSecrets: секреты access и refresh совпадают.
	ErrSameSecrets = errors.New("access and refresh secrets must differ")
	// ErrNonPositiveTTL: TTL токена должен быть > 0.
	ErrNonPositiveTTL = errors.New("token ttl must be positive")
)

// Config: корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	OTP      OTPConfig     `yaml:"otp"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Mail     MailConfig    `yaml:"mail"`
	Google   GoogleConfig  `yaml:"google"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig: таймауты сервиса.
type TimeoutConfig struct {
	// Service: дедлайн одного HTTP-запроса; ограничивает все вызовы БД/Redis/SMTP внутри него.
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig: сетевые настройки HTTP-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"PORT" env-default:"3001"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
type AuthConfig struct {
	AccessSecret  string `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret string `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTTL     TTL    `yaml:"access_ttl" env:"JWT_ACCESS_EXPIRES_IN" env-default:"15m"`
	RefreshTTL    TTL    `yaml:"refresh_ttl" env:"JWT_REFRESH_EXPIRES_IN" env-default:"7d"`
	Issuer        string `yaml:"issuer" env:"JWT_ISSUER" env-default:"bearfit-auth"`
	// RevokeOnRotate: отзывать старый refresh-токен при ротации.
	// По умолчанию выключено: старый токен живёт до естественного истечения.
	RevokeOnRotate bool `yaml:"revoke_on_rotate" env:"JWT_REVOKE_ON_ROTATE" env-default:"false"`
	// LedgerRetention: сколько хранить просроченные записи refresh-токенов
	// до физического удаления; 0 отключает очистку.
	LedgerRetention time.Duration `yaml:"ledger_retention" env:"LEDGER_RETENTION" env-default:"0s"`
	JanitorPeriod   time.Duration `yaml:"janitor_period" env:"LEDGER_JANITOR_PERIOD" env-default:"30m"`
}

// OTPConfig: параметры хранения одноразовых кодов.
type OTPConfig struct {
	KeyPrefix string `yaml:"key_prefix" env:"OTP_KEY_PREFIX" env-default:"otp:"`
}

// DBConfig: настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL" env-required:"true"`
	Migrate     bool   `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}

// RedisConfig: настройки подключения к Redis.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://redis:6379"`
}

// MailConfig: параметры SMTP-транспорта.
type MailConfig struct {
	Host    string `yaml:"host" env:"EMAIL_HOST" env-default:"smtp.gmail.com"`
	Port    int    `yaml:"port" env:"EMAIL_PORT" env-default:"587"`
	Secure  bool   `yaml:"secure" env:"EMAIL_SECURE" env-default:"false"`
	User    string `yaml:"user" env:"EMAIL_USER"`
	Pass    string `yaml:"pass" env:"EMAIL_PASS"`
	From    string `yaml:"from" env:"EMAIL_FROM"`
	AppName string `yaml:"app_name" env:"EMAIL_APP_NAME" env-default:"Bearfit"`
}

// GoogleConfig: параметры входа через Google.
type GoogleConfig struct {
	ClientIDs   []string `yaml:"client_ids" env:"GOOGLE_CLIENT_IDS" env-separator:","`
	ClientIDWeb string   `yaml:"client_id_web" env:"GOOGLE_CLIENT_ID_WEB"`
	// AllowEmailFallback разрешает вход по e-mail без ID-токена.
	// Клейм не подтверждён Google, поэтому включать только в dev.
	AllowEmailFallback bool `yaml:"allow_email_fallback" env:"GOOGLE_ALLOW_EMAIL_FALLBACK" env-default:"false"`
}

// Audiences возвращает все допустимые client_id (aud) для ID-токенов.
func (g GoogleConfig) Audiences() []string {
	out := make([]string, 0, len(g.ClientIDs)+1)
	for _, id := range g.ClientIDs {
		if id != "" {
			out = append(out, id)
		}
	}

	if g.ClientIDWeb != "" {
		out = append(out, g.ClientIDWeb)
	}

	return out
}

// Validate проверяет инварианты, без которых процесс не должен стартовать.
func (c *Config) Validate() error {
	const op = "config.Validate"

	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return fmt.Errorf("%s: %w", op, ErrMissingSecret)
	}

	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("%s: %w", op, ErrSameSecrets)
	}

	if c.Auth.AccessTTL.Duration() <= 0 || c.Auth.RefreshTTL.Duration() <= 0 {
		return fmt.Errorf("%s: %w", op, ErrNonPositiveTTL)
	}

	return nil
}

// MustLoad: обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q does not exist: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
