package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pribylovaa/bearfit-auth/internal/pkg/log"
)

// Logging кладёт в контекст логгер запроса (с request_id) и пишет
// итоговую запись о запросе. Ставится после RequestID.
func Logging(l *slog.Logger) Middleware {
	if l == nil {
		l = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := log.Into(r.Context(), l)
			if rid := RequestIDFrom(ctx); rid != "" {
				ctx = log.With(ctx, slog.String("request_id", rid))
			}
			r = r.WithContext(ctx)

			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			if sw.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			log.From(ctx).LogAttrs(ctx, level, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.Status()),
				slog.Duration("dur", time.Since(start)),
				slog.Int("bytes", sw.count),
			)
		})
	}
}
