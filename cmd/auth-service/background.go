package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// pinger проверяет доступность зависимости.
type pinger func(ctx context.Context) error

// purger удаляет давно истёкшие записи реестра refresh-токенов.
type purger interface {
	PurgeExpiredTokens(ctx context.Context, retention time.Duration) (int64, error)
}

// readinessHandler отвечает 200, только если процесс готов и все
// зависимости отвечают на ping.
func readinessHandler(ready *atomic.Bool, log *slog.Logger, deps map[string]pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, ping := range deps {
			if err := ping(ctx); err != nil {
				log.Warn("readiness_check_failed",
					slog.String("dep", name),
					slog.String("err", err.Error()),
				)
				http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

// startRefreshJanitor запускает фоновую задачу, которая периодически удаляет
// записи реестра, истёкшие более retention назад. retention <= 0 отключает очистку.
func startRefreshJanitor(ctx context.Context, p purger, log *slog.Logger, period, retention time.Duration) {
	if period <= 0 || retention <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				purgeOnce(ctx, p, log, retention)
			}
		}
	}()
}

func purgeOnce(ctx context.Context, p purger, log *slog.Logger, retention time.Duration) {
	n, err := p.PurgeExpiredTokens(ctx, retention)
	if err != nil {
		log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
		return
	}

	if n > 0 {
		log.Info("refresh_janitor_purged", slog.Int64("count", n))
	}
}
