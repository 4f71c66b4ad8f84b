package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
	"github.com/pribylovaa/bearfit-auth/mocks"
)

// memStorage: хранилище в памяти с семантикой postgres-реализации.
type memStorage struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*models.User
	tokens map[string]*models.RefreshToken

	// saveTokenErr, если задана, возвращается из SaveRefreshToken.
	saveTokenErr error
}

func (m *memStorage) failTokenSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveTokenErr = err
}

var _ storage.Storage = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{
		users:  make(map[uuid.UUID]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (m *memStorage) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ex := range m.users {
		if strings.EqualFold(ex.Email, u.Email) {
			return storage.ErrEmailExists
		}
		if u.Username != "" && strings.EqualFold(ex.Username, u.Username) {
			return storage.ErrUsernameExists
		}
	}

	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStorage) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memStorage) UserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username != "" && strings.EqualFold(u.Username, username) })
}

func (m *memStorage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memStorage) SaveRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveTokenErr != nil {
		return m.saveTokenErr
	}

	if _, ok := m.tokens[rt.Token]; ok {
		return storage.ErrAlreadyExists
	}

	cp := *rt
	m.tokens[rt.Token] = &cp
	return nil
}

func (m *memStorage) RefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, ok := m.tokens[token]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *rt
	return &cp, nil
}

func (m *memStorage) RevokeRefreshToken(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rt, ok := m.tokens[token]
	if !ok {
		return false, storage.ErrNotFound
	}

	if rt.Revoked {
		return false, nil
	}

	rt.Revoked = true
	return true, nil
}

func (m *memStorage) DeleteExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, rt := range m.tokens {
		if !rt.ExpiresAt.After(before) {
			delete(m.tokens, k)
			n++
		}
	}

	return n, nil
}

func (m *memStorage) Close() {}

func newScenario(t *testing.T, cfg Config) (*Service, *memStorage, *testClock) {
	t.Helper()
	clk := newClock()
	st := newMemStorage()
	svc := New(st, newCodec(t, clk), mocks.NewMockVerifier(gomock.NewController(t)), cfg, WithClock(clk.Now), WithHashCost(bcrypt.MinCost))
	return svc, st, clk
}

// TestScenario_SessionLifecycle: регистрация, вход, ротация и выход.
func TestScenario_SessionLifecycle(t *testing.T) {
	t.Parallel()

	svc, st, clk := newScenario(t, Config{})
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Name: "Misha", Email: "misha@bear.fit", Password: "Secret1!", Username: "misha"})
	require.NoError(t, err)
	sessionEnd := reg.Tokens.RefreshExpiresAt

	taken, err := svc.UsernameExists(ctx, "MISHA")
	require.NoError(t, err)
	require.True(t, taken)

	_, err = svc.Register(ctx, RegisterInput{Email: "MISHA@bear.fit", Password: "Other1!"})
	require.ErrorIs(t, err, ErrEmailTaken)

	clk.Advance(time.Minute)
	login, err := svc.Login(ctx, "Misha@Bear.fit", "Secret1!")
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, login.User.ID)

	clk.Advance(time.Hour)
	rotated, err := svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, sessionEnd, rotated.RefreshExpiresAt, "сессия не продлевается ротацией")

	rec, err := st.RefreshToken(ctx, rotated.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, sessionEnd, rec.ExpiresAt)

	// Без RevokeOnRotate старый токен остаётся действительным.
	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)

	p, err := svc.ValidateToken(ctx, rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, p.UserID)

	require.NoError(t, svc.RevokeToken(ctx, rotated.RefreshToken))
	require.NoError(t, svc.RevokeToken(ctx, rotated.RefreshToken))
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Access-токен живёт своё время и после отзыва refresh.
	_, err = svc.ValidateToken(ctx, rotated.AccessToken)
	require.NoError(t, err)
	clk.Advance(15 * time.Minute)
	_, err = svc.ValidateToken(ctx, rotated.AccessToken)
	require.ErrorIs(t, err, ErrInvalidAccessToken)

	// Сессия заканчивается в исходный срок, сколько бы ротаций ни было.
	clk.t = sessionEnd
	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	n, err := svc.PurgeExpiredTokens(ctx, 0)
	require.NoError(t, err)
	require.Greater(t, n, int64(0))
}

func TestScenario_RevokeOnRotate(t *testing.T) {
	t.Parallel()

	svc, _, _ := newScenario(t, Config{RevokeOnRotate: true})
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "a@bear.fit", Password: "Secret1!"})
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

// TestScenario_RevokeOnRotate_SaveFailureKeepsSession: если новую запись
// сохранить не удалось, старый токен остаётся рабочим.
func TestScenario_RevokeOnRotate_SaveFailureKeepsSession(t *testing.T) {
	t.Parallel()

	svc, st, _ := newScenario(t, Config{RevokeOnRotate: true})
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "keep@bear.fit", Password: "Secret1!"})
	require.NoError(t, err)

	st.failTokenSaves(errors.New("db down"))
	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrStorage)

	rec, err := st.RefreshToken(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)
	require.False(t, rec.Revoked)

	st.failTokenSaves(nil)
	next, err := svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, reg.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

// TestScenario_ConcurrentRotation: из N одновременных ротаций выигрывает одна.
func TestScenario_ConcurrentRotation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newScenario(t, Config{RevokeOnRotate: true})
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "race@bear.fit", Password: "Secret1!"})
	require.NoError(t, err)

	const n = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, reg.Tokens.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}
