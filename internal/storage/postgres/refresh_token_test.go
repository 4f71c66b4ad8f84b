package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/storage"
)

// seedUser создаёт пользователя и возвращает его ID.
func seedUser(t *testing.T, st *Storage, email string) uuid.UUID {
	t.Helper()
	u := newUser(email, "")
	require.NoError(t, st.SaveUser(context.Background(), u))
	return u.ID
}

func newRefresh(userID uuid.UUID, value string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		Token:     value,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
}

func TestIntegration_SaveRefreshToken_And_Get_OK(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	exp := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "token-1", exp)))

	got, err := st.RefreshToken(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, userID, got.UserID)
	require.False(t, got.Revoked)
	require.WithinDuration(t, exp, got.ExpiresAt, time.Second)
	require.True(t, got.Active(time.Now()))
	require.Equal(t, "token-1", got.Token)
}

// TestIntegration_SaveRefreshToken_StoresHashOnly: значение токена в БД не попадает.
func TestIntegration_SaveRefreshToken_StoresHashOnly(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "secret-token", time.Now().UTC().Add(time.Hour))))

	var stored string
	require.NoError(t, st.db.QueryRow(ctx, `SELECT token_hash FROM refresh_tokens WHERE user_id = $1`, userID).Scan(&stored))
	require.NotEqual(t, "secret-token", stored)
	require.Equal(t, hashToken("secret-token"), stored)
}

func TestIntegration_SaveRefreshToken_Duplicate(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	exp := time.Now().UTC().Add(time.Hour)
	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "dup", exp)))

	err := st.SaveRefreshToken(ctx, newRefresh(userID, "dup", exp))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_RefreshToken_NotFound(t *testing.T) {
	st := startPostgres(t)

	_, err := st.RefreshToken(context.Background(), "absent")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_RevokeRefreshToken_Flow(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "to-revoke", time.Now().UTC().Add(time.Hour))))

	// 1) Активный токен: (true, nil).
	ok, err := st.RevokeRefreshToken(ctx, "to-revoke")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := st.RefreshToken(ctx, "to-revoke")
	require.NoError(t, err)
	require.True(t, got.Revoked)

	// 2) Уже отозван: (false, nil).
	ok, err = st.RevokeRefreshToken(ctx, "to-revoke")
	require.NoError(t, err)
	require.False(t, ok)

	// 3) Нет записи: (false, ErrNotFound).
	ok, err = st.RevokeRefreshToken(ctx, "absent")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.False(t, ok)
}

// TestIntegration_RevokeRefreshToken_Concurrent: из N конкурентных отзывов ровно один получает true.
func TestIntegration_RevokeRefreshToken_Concurrent(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")

	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "race", time.Now().UTC().Add(time.Hour))))

	const workers = 8
	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.RevokeRefreshToken(ctx, "race")
			if err == nil && ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), won.Load())
}

func TestIntegration_DeleteExpiredTokens_DeletesOnlyExpired(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	userID := seedUser(t, st, "user@example.com")
	now := time.Now().UTC()

	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "past", now.Add(-time.Minute))))
	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "edge", now)))
	require.NoError(t, st.SaveRefreshToken(ctx, newRefresh(userID, "future", now.Add(30*time.Minute))))

	n, err := st.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = st.RefreshToken(ctx, "past")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshToken(ctx, "edge")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshToken(ctx, "future")
	require.NoError(t, err)
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, hashToken("a"), hashToken("a"))
	require.NotEqual(t, hashToken("a"), hashToken("b"))
	require.Len(t, hashToken("a"), 43)
}
