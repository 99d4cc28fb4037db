package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/incidenthub/auth-gateway/docs"
	"github.com/incidenthub/auth-gateway/internal/api/handler"
	"github.com/incidenthub/auth-gateway/internal/api/middleware"
	"github.com/incidenthub/auth-gateway/internal/core/domain"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs. Readiness lists the
// dependency probes exposed on /health/ready. Metrics defaults to the
// global Prometheus registry.
type Deps struct {
	AuthService ports.AuthService
	Tokens      ports.TokenCodec
	Readiness   map[string]handler.Check
	Metrics     *prometheus.Registry
	RateLimit   RateLimit
	Log         zerolog.Logger
}

// RateLimit is a per-client token bucket for /api/auth. A zero RPS disables it.
type RateLimit struct {
	RPS   float64
	Burst int
}

const rateLimitClientTTL = 3 * time.Minute

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Metrics != nil {
		registerer, gatherer = deps.Metrics, deps.Metrics
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.BodyLimit("64K"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "authgw",
		Registerer: registerer,
	}))
	e.Use(middleware.Authenticate(deps.Tokens, deps.Log))
	e.Use(middleware.RequestLogger(deps.Log))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Tokens)
	auth := e.Group("/api/auth")
	if deps.RateLimit.RPS > 0 {
		auth.Use(echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStoreWithConfig(
			echomiddleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(deps.RateLimit.RPS),
				Burst:     deps.RateLimit.Burst,
				ExpiresIn: rateLimitClientTTL,
			},
		)))
	}
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me, middleware.RequireAuth())
	auth.POST("/introspect", authHandler.Introspect, middleware.RBAC(domain.RoleAdmin))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
