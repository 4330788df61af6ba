// Package authgate предоставляет маршруты для основного приложения.
package authgate

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/basimtrading/auth-gate/internal/http/handlers/auth/login"
	"github.com/basimtrading/auth-gate/internal/http/handlers/auth/result"
	"github.com/basimtrading/auth-gate/internal/http/handlers/decision/webhook"
	"github.com/basimtrading/auth-gate/internal/http/handlers/health"
	renewalcreate "github.com/basimtrading/auth-gate/internal/http/handlers/renewal/create"
	"github.com/basimtrading/auth-gate/internal/http/handlers/subscription/status"
	"github.com/basimtrading/auth-gate/internal/http/middlewarectx"
	"github.com/basimtrading/auth-gate/internal/lib/jwt"
	loginservice "github.com/basimtrading/auth-gate/internal/services/login"
	renewalservice "github.com/basimtrading/auth-gate/internal/services/renewal"
	subscriptionservice "github.com/basimtrading/auth-gate/internal/services/subscription"
	"github.com/basimtrading/auth-gate/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	loginService *loginservice.Service, renewalService *renewalservice.Service,
	db *repository.Storage, ledger *subscriptionservice.LedgerService,
	maker jwt.Maker, limiter *rate.Limiter, webhookSecret string) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
			r.Post("/login", login.New(logger, loginService, maker).ServeHTTP)
			r.Get("/login/result/{request_id}", result.New(logger, loginService, maker).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(maker, logger))
			r.Post("/renewal", renewalcreate.New(logger, renewalService).ServeHTTP)
			r.Get("/subscription/status", status.New(logger, db, ledger).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации, подпись HMAC)
		r.Post("/decisions/webhook", webhook.New(logger, loginService, webhookSecret).ServeHTTP)
	})

	r.Get("/health", health.New(logger).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
