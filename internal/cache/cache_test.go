package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты Redis-хранилища (testcontainers-go, redis:7-alpine).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -race -count=1

// startRedis поднимает временный Redis и возвращает хранилище вместе с
// отдельным клиентом для проверки содержимого ключей.
func startRedis(t *testing.T) (Store, *redis.Client) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	url := fmt.Sprintf("redis://%s:%s/0", host, port.Port())
	st, err := NewRedisStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	raw := redis.NewClient(opt)
	t.Cleanup(func() { _ = raw.Close() })

	return st, raw
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestNewFromClient_UnreachableRedis(t *testing.T) {
	t.Parallel()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	st := NewFromClient(rdb)
	defer st.Close()

	ctx := context.Background()
	require.Error(t, st.Set(ctx, "k", "v", time.Minute))
	require.Error(t, st.Ping(ctx))

	_, err := st.CompareAndDelete(ctx, "k", "v")
	require.Error(t, err)
}

func TestIntegration_SetOverwrites(t *testing.T) {
	st, raw := startRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "otp:a@b.c", "12345", time.Minute))
	require.Equal(t, "12345", raw.Get(ctx, "otp:a@b.c").Val())

	require.NoError(t, st.Set(ctx, "otp:a@b.c", "54321", time.Minute))
	require.Equal(t, "54321", raw.Get(ctx, "otp:a@b.c").Val())

	ttl := raw.TTL(ctx, "otp:a@b.c").Val()
	require.True(t, ttl > 0 && ttl <= time.Minute, "ttl=%s", ttl)
}

func TestIntegration_TTLExpiry(t *testing.T) {
	st, raw := startRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "short", "1", 200*time.Millisecond))
	require.Eventually(t, func() bool {
		return errors.Is(raw.Get(ctx, "short").Err(), redis.Nil)
	}, 3*time.Second, 50*time.Millisecond)
}

func TestIntegration_CompareAndDelete(t *testing.T) {
	st, raw := startRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", "11111", time.Minute))

	ok, err := st.CompareAndDelete(ctx, "k", "22222")
	require.NoError(t, err)
	require.False(t, ok)

	// Неверное значение не удаляет ключ.
	require.Equal(t, "11111", raw.Get(ctx, "k").Val())

	ok, err = st.CompareAndDelete(ctx, "k", "11111")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.CompareAndDelete(ctx, "k", "11111")
	require.NoError(t, err)
	require.False(t, ok)

	// Отсутствующий ключ: не ошибка.
	ok, err = st.CompareAndDelete(ctx, "absent", "11111")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegration_CompareAndDelete_Concurrent(t *testing.T) {
	st, _ := startRedis(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "race", "99999", time.Minute))

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := st.CompareAndDelete(ctx, "race", "99999"); err == nil && ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), won.Load())
}
