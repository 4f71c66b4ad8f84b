// cache: хранилище строковых значений с TTL поверх Redis.
// Используется для одноразовых кодов (OTP): ключ живёт не дольше TTL,
// а проверка значения и удаление ключа выполняются одной атомарной операцией
// (и при проверке кода, и при откате неудачной отправки).
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store: минимальный контракт хранилища значений с TTL.
type Store interface {
	// Set сохраняет значение с TTL, перезаписывая предыдущее.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// CompareAndDelete удаляет ключ, только если его значение равно expected.
	// Возвращает true, если значение совпало и ключ удалён.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	// Ping проверяет доступность Redis (readiness).
	Ping(ctx context.Context) error
	// Close закрывает клиент Redis.
	Close() error
}

// compareAndDelete: GET + DEL в одном скрипте, чтобы два конкурентных
// верификатора не могли оба принять один и тот же код.
var compareAndDelete = redis.NewScript(`
	local current = redis.call('GET', KEYS[1])
	if current == ARGV[1] then
		redis.call('DEL', KEYS[1])
		return 1
	end
	return 0
`)

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
func NewRedisStore(ctx context.Context, redisURL string) (Store, error) {
	const op = "cache.NewRedisStore"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisStore{rdb: rdb}, nil
}

// NewFromClient оборачивает уже созданный клиент (тесты, общий пул).
func NewFromClient(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	const op = "cache.Set"

	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	const op = "cache.CompareAndDelete"

	res, err := compareAndDelete.Run(ctx, s.rdb, []string{key}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return res == 1, nil
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *redisStore) Close() error { return s.rdb.Close() }
