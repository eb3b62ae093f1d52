package server

import (
	"net/http"

	"github.com/cloo-solutions/msassist/internal/api"
	"github.com/cloo-solutions/msassist/internal/api/handlers"
	"github.com/cloo-solutions/msassist/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultMaxBodyBytes   int64 = 5 * 1024 * 1024
	defaultMaxUploadBytes int64 = 25 * 1024 * 1024
)

type RouterConfig struct {
	Logger          *zap.Logger
	TokenValidator  middleware.TokenValidator
	AuthHandler     *handlers.AuthHandler
	SessionHandler  *handlers.SessionHandler
	SymptomHandler  *handlers.SymptomHandler
	DocumentHandler *handlers.DocumentHandler
	MaxBodyBytes    int64
	MaxUploadBytes  int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Multipart uploads get their own, larger body limit.
	r.With(middleware.JWTAuth(cfg.TokenValidator), middleware.MaxBodyBytes(cfg.MaxUploadBytes)).
		Post("/documents", cfg.DocumentHandler.Upload)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(cfg.MaxBodyBytes))

		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(cfg.TokenValidator))

			r.Get("/auth/me", cfg.AuthHandler.Me)
			r.Put("/auth/password", cfg.AuthHandler.ChangePassword)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", cfg.SessionHandler.Create)
				r.Get("/", cfg.SessionHandler.List)
				r.Get("/{id}", cfg.SessionHandler.Get)
				r.Get("/{id}/messages", cfg.SessionHandler.ListMessages)
				r.Post("/{id}/messages", cfg.SessionHandler.SendMessage)
				r.Get("/{id}/export", cfg.SessionHandler.Export)
			})

			r.Post("/chat", cfg.SessionHandler.Chat)

			r.Get("/symptoms", cfg.SymptomHandler.List)
			r.Post("/symptoms/analyze", cfg.SymptomHandler.Analyze)

			r.Get("/documents", cfg.DocumentHandler.List)
			r.Route("/documents/uploads", func(r chi.Router) {
				r.Post("/", cfg.DocumentHandler.InitUpload)
				r.Post("/{id}/complete", cfg.DocumentHandler.CompleteUpload)
				r.Get("/{id}", cfg.DocumentHandler.GetJob)
			})
		})
	})

	return r
}
