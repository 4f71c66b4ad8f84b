package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pribylovaa/bearfit-auth/internal/models"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/apierrors"
)

// TokenValidator проверяет access-токен.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (models.Payload, error)
}

type payloadKey struct{}

// RequireAuth пропускает запрос только с действительным Bearer access-токеном
// и кладёт его полезную нагрузку в контекст (см. PayloadFrom).
func RequireAuth(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				apierrors.WriteUnauthorized(w, r, "Authorization token required")
				return
			}

			p, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), payloadKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PayloadFrom возвращает полезную нагрузку токена, положенную RequireAuth.
func PayloadFrom(ctx context.Context) (models.Payload, bool) {
	p, ok := ctx.Value(payloadKey{}).(models.Payload)
	return p, ok
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}

	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
