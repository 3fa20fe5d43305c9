// http собирает REST API auth-сервиса на chi.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pribylovaa/go-photo-sharing/internal/transport/http/handlers"
	"github.com/pribylovaa/go-photo-sharing/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *zerolog.Logger
	Timeout time.Duration
	// BasePath, например "/api"; пустой — роуты на корне.
	BasePath string
	// TrustProxy включает chi RealIP (X-Forwarded-For / X-Real-IP).
	TrustProxy bool
}

// NewRouter собирает http.Handler с подключёнными middleware и роутами.
func NewRouter(svc handlers.AuthService, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний). RealIP стоит до Logging,
	// чтобы и лог, и сессия видели адрес клиента, а не прокси.
	if opts.TrustProxy {
		root.Use(chimw.RealIP)
	}
	root.Use(
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Recover(),
		middleware.AuthBearer(),
		middleware.Timeout(opts.Timeout),
	)

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes — единая точка регистрации REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/logout-all", h.LogoutAll)
		r.Post("/validate", h.Validate)
		r.Post("/password", h.ChangePassword)
		r.Get("/me", h.Me)
		r.Get("/sessions", h.Sessions)
		r.Delete("/sessions/current", h.RevokeCurrent)
	})
}
