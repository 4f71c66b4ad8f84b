package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/bearfit-auth/internal/models"
)

func testCfg() Config {
	return Config{
		AccessSecret:  "unit-access-secret",
		RefreshSecret: "unit-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "bearfit-auth",
	}
}

// clock: управляемые часы для проверки истечения.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newCodec(t *testing.T) (*Codec, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c, err := New(testCfg(), WithClock(clk.Now))
	require.NoError(t, err)
	return c, clk
}

func testPayload() models.Payload {
	return models.Payload{UserID: uuid.New(), Email: "a@x.com", Role: models.RoleUser}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.AccessSecret = ""
	_, err := New(cfg)
	require.ErrorIs(t, err, ErrMissingSecret)

	cfg = testCfg()
	cfg.RefreshSecret = ""
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrMissingSecret)

	cfg = testCfg()
	cfg.RefreshSecret = cfg.AccessSecret
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrSameSecrets)

	cfg = testCfg()
	cfg.AccessTTL = 0
	_, err = New(cfg)
	require.ErrorIs(t, err, ErrNonPositiveTTL)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c, clk := newCodec(t)
	p := testPayload()

	at, atExp, err := c.IssueAccess(p)
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(15*time.Minute), atExp)

	got, err := c.VerifyAccess(at)
	require.NoError(t, err)
	require.Equal(t, p, got)

	rt, rtExp, err := c.IssueRefresh(p)
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(7*24*time.Hour), rtExp)

	got, err = c.VerifyRefresh(rt)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestIssue_UniqueStrings(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(t)
	p := testPayload()

	a, _, err := c.IssueRefresh(p)
	require.NoError(t, err)
	b, _, err := c.IssueRefresh(p)
	require.NoError(t, err)

	require.NotEqual(t, a, b, "один и тот же момент времени не должен давать одинаковые токены")
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c, clk := newCodec(t)
	p := testPayload()

	at, _, err := c.IssueAccess(p)
	require.NoError(t, err)

	clk.Advance(15*time.Minute - time.Second)
	_, err = c.VerifyAccess(at)
	require.NoError(t, err, "до истечения окна токен валиден")

	clk.Advance(2 * time.Second)
	_, err = c.VerifyAccess(at)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_CrossKindRejected(t *testing.T) {
	t.Parallel()

	c, _ := newCodec(t)
	p := testPayload()

	at, _, err := c.IssueAccess(p)
	require.NoError(t, err)
	rt, _, err := c.IssueRefresh(p)
	require.NoError(t, err)

	_, err = c.VerifyRefresh(at)
	require.ErrorIs(t, err, ErrInvalidSignature)

	_, err = c.VerifyAccess(rt)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

// TestVerify_TypeClaimChecked: даже при подписи «правильным» секретом
// токен с чужим typ отвергается.
func TestVerify_TypeClaimChecked(t *testing.T) {
	t.Parallel()

	c, clk := newCodec(t)
	p := testPayload()

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":   p.UserID.String(),
		"email": p.Email,
		"role":  p.Role,
		"typ":   "refresh",
		"iss":   "bearfit-auth",
		"exp":   clk.Now().Add(time.Hour).Unix(),
	})
	signed, err := forged.SignedString([]byte(testCfg().AccessSecret))
	require.NoError(t, err)

	_, err = c.VerifyAccess(signed)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c, clk := newCodec(t)
	p := testPayload()

	t.Run("garbage", func(t *testing.T) {
		_, err := c.VerifyAccess("not.a.jwt")
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := c.VerifyRefresh("")
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong alg", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
			"uid": p.UserID.String(),
			"typ": "access",
			"iss": "bearfit-auth",
			"exp": clk.Now().Add(time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte(testCfg().AccessSecret))
		require.NoError(t, err)

		_, err = c.VerifyAccess(signed)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"uid": p.UserID.String(),
			"typ": "access",
			"iss": "someone-else",
			"exp": clk.Now().Add(time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte(testCfg().AccessSecret))
		require.NoError(t, err)

		_, err = c.VerifyAccess(signed)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("no exp", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"uid": p.UserID.String(),
			"typ": "access",
			"iss": "bearfit-auth",
		})
		signed, err := tok.SignedString([]byte(testCfg().AccessSecret))
		require.NoError(t, err)

		_, err = c.VerifyAccess(signed)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("bad uid", func(t *testing.T) {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"uid": "not-a-uuid",
			"typ": "access",
			"iss": "bearfit-auth",
			"exp": clk.Now().Add(time.Hour).Unix(),
		})
		signed, err := tok.SignedString([]byte(testCfg().AccessSecret))
		require.NoError(t, err)

		_, err = c.VerifyAccess(signed)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("tampered", func(t *testing.T) {
		at, _, err := c.IssueAccess(p)
		require.NoError(t, err)

		_, err = c.VerifyAccess(at[:len(at)-2] + "xx")
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}
