// http собирает REST-роутер сервиса на chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/bearfit-auth/internal/metrics"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/apierrors"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/handlers"
	"github.com/pribylovaa/bearfit-auth/internal/transport/http/middleware"
)

// Service: операции сервиса, доступные через HTTP.
type Service interface {
	handlers.AuthService
	middleware.TokenValidator
}

// Options: параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Metrics  *metrics.Metrics
	BasePath string // например, "/api"; если пустой, роуты регистрируются на корне.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc Service, otp handlers.OTPManager, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // X-Request-Id нужен логам и телу ошибки
		middleware.Logging(opts.Logger), // логгер запроса в контексте
		middleware.Recover(),            // паника -> 500, после Logging, чтобы попасть в лог
		middleware.Metrics(opts.Metrics),
		middleware.Timeout(opts.Timeout),
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteNotFound(w, r)
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteMethodNotAllowed(w, r)
	})

	h := handlers.New(svc, otp)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes: единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.TokenValidator) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Post("/google", h.Google)
		r.Post("/register-google", h.RegisterGoogle)

		r.Get("/exists", h.EmailExists)
		r.Get("/username-exists", h.UsernameExists)

		r.Post("/send-otp", h.SendOTP)
		r.Post("/verify-otp", h.VerifyOTP)

		r.With(middleware.RequireAuth(v)).Get("/me", h.Me)
	})
}
