package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/bearfit-auth/internal/token"
	"github.com/pribylovaa/bearfit-auth/mocks"
)

// Генерация моков:
//   mockgen -source=./internal/storage/storage.go -destination=./mocks/storage.go -package=mocks
//   mockgen -source=./internal/google/google.go -destination=./mocks/google.go -package=mocks

// testClock: управляемые часы, общие для сервиса и кодека.
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newCodec(t *testing.T, clk *testClock) *token.Codec {
	t.Helper()
	c, err := token.New(token.Config{
		AccessSecret:  "unit-access-secret",
		RefreshSecret: "unit-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "bearfit-auth",
	}, token.WithClock(clk.Now))
	require.NoError(t, err)
	return c
}

type fixture struct {
	svc    *Service
	st     *mocks.MockStorage
	google *mocks.MockVerifier
	codec  *token.Codec
	clock  *testClock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	clk := newClock()
	codec := newCodec(t, clk)
	st := mocks.NewMockStorage(ctrl)
	gv := mocks.NewMockVerifier(ctrl)

	svc := New(st, codec, gv, cfg, WithClock(clk.Now), WithHashCost(bcrypt.MinCost))

	return &fixture{svc: svc, st: st, google: gv, codec: codec, clock: clk}
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}
