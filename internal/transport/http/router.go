package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-ticket-otp/internal/application/account"
	"github.com/go-ticket-otp/internal/application/registration"
	"github.com/go-ticket-otp/internal/config"
	jwtinfra "github.com/go-ticket-otp/internal/infrastructure/jwt"
	"github.com/go-ticket-otp/internal/metrics"
	"github.com/go-ticket-otp/internal/transport/http/handler"
	appmiddleware "github.com/go-ticket-otp/internal/transport/http/middleware"
	"github.com/go-ticket-otp/internal/transport/ws"
	"golang.org/x/time/rate"
)

// SessionStore records browser sessions issued by the session middleware.
type SessionStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Deps holds the services and infrastructure the router wires together.
type Deps struct {
	Registration registration.Service
	Accounts     account.Service // optional
	Sessions     SessionStore
	Hub          *ws.Hub
	JWTProvider  *jwtinfra.Provider // optional
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !slices.Contains(cfg.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on endpoints that queue messages or check codes.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)
	session := appmiddleware.Session(deps.Sessions, cfg.SessionCookieName, cfg.RegistrationTTL, cfg.AppEnv == "production")

	healthH := handler.NewHealthHandler()
	regH := handler.NewRegistrationHandler(deps.Registration, deps.Accounts)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit, session)
			r.Post("/register", regH.Register)
			r.Post("/otpVerify", regH.Verify)
		})

		r.Get("/ws/otp_status", ws.Handler(deps.Hub, cfg.AllowedOrigins))

		if deps.JWTProvider != nil {
			r.With(appmiddleware.Auth(deps.JWTProvider)).Get("/me", handler.Me)
		}
	})

	return r
}
