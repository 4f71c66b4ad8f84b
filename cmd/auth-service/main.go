package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/bearfit-auth/internal/cache"
	"github.com/pribylovaa/bearfit-auth/internal/config"
	"github.com/pribylovaa/bearfit-auth/internal/google"
	"github.com/pribylovaa/bearfit-auth/internal/mail"
	"github.com/pribylovaa/bearfit-auth/internal/metrics"
	"github.com/pribylovaa/bearfit-auth/internal/otp"
	"github.com/pribylovaa/bearfit-auth/internal/service"
	"github.com/pribylovaa/bearfit-auth/internal/storage/postgres"
	"github.com/pribylovaa/bearfit-auth/internal/token"
	authhttp "github.com/pribylovaa/bearfit-auth/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		return err
	}
	defer str.Close()
	log.Info("postgres_connected")

	if cfg.DB.Migrate {
		migCtx, migCancel := context.WithTimeout(rootCtx, 30*time.Second)
		err := str.Migrate(migCtx)
		migCancel()
		if err != nil {
			log.Error("postgres_migrate_failed", slog.String("err", err.Error()))
			return err
		}
		log.Info("postgres_migrated")
	}

	redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
	store, err := cache.NewRedisStore(redisCtx, cfg.Redis.RedisURL)
	redisCancel()
	if err != nil {
		log.Error("redis_connect_failed", slog.String("err", err.Error()))
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
		}
	}()
	log.Info("redis_connected")

	sender, err := mail.NewSMTPSender(cfg.Mail)
	if err != nil {
		log.Error("smtp_init_failed", slog.String("err", err.Error()))
		return err
	}
	if cfg.Mail.User == "" || cfg.Mail.Pass == "" {
		log.Warn("smtp_not_configured")
	}

	audiences := cfg.Google.Audiences()
	if len(audiences) == 0 {
		log.Warn("google_not_configured")
	}
	if cfg.Google.AllowEmailFallback {
		log.Warn("google_email_fallback_enabled")
	}
	verifier := google.New(rootCtx, audiences)

	codec, err := token.New(token.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		AccessTTL:     cfg.Auth.AccessTTL.Duration(),
		RefreshTTL:    cfg.Auth.RefreshTTL.Duration(),
		Issuer:        cfg.Auth.Issuer,
	})
	if err != nil {
		log.Error("token_codec_init_failed", slog.String("err", err.Error()))
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Сервис.
	srvc := service.New(str, codec, verifier, service.Config{
		RevokeOnRotate:     cfg.Auth.RevokeOnRotate,
		AllowEmailFallback: cfg.Google.AllowEmailFallback,
	}, service.WithMetrics(m))
	otpMgr := otp.New(store, sender, cfg.OTP.KeyPrefix, cfg.Mail.AppName, otp.WithMetrics(m))
	log.Info("service_initialized")

	// Фоновая очистка просроченных записей реестра refresh-токенов.
	startRefreshJanitor(rootCtx, srvc, log, cfg.Auth.JanitorPeriod, cfg.Auth.LedgerRetention)

	var ready atomic.Bool

	apiHandler := authhttp.NewRouter(srvc, otpMgr, authhttp.Options{
		Logger:  log,
		Timeout: cfg.Timeouts.Service,
		Metrics: m,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/healthz", readinessHandler(&ready, log, map[string]pinger{
		"postgres": str.Ping,
		"redis":    store.Ping,
	}))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		return err
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)
	log.Info("service_ready")

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	return serveErr
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
