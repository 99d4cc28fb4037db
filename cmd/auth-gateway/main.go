// Command auth-gateway is the entry point for the IncidentHub authentication
// gateway.
//
//	@title						IncidentHub Auth Gateway API
//	@version					1.0
//	@description				Registration, login and bearer token validation for IncidentHub services.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/incidenthub/auth-gateway/internal/api"
	"github.com/incidenthub/auth-gateway/internal/api/handler"
	"github.com/incidenthub/auth-gateway/internal/core/ports"
	"github.com/incidenthub/auth-gateway/internal/core/service"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/config"
	mongostore "github.com/incidenthub/auth-gateway/internal/infrastructure/db/mongo"
	redisstore "github.com/incidenthub/auth-gateway/internal/infrastructure/db/redis"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/directory"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/password"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/queue"
	"github.com/incidenthub/auth-gateway/internal/infrastructure/token"
	"github.com/incidenthub/auth-gateway/pkg/logger"
)

const (
	serviceName     = "auth-gateway"
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx := context.Background()

	// ── 1. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Service: serviceName})
		bootLog.Fatal().Err(err).Msg("load configuration")
	}

	// ── 2. Logger ─────────────────────────────────────────────────────────
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	must(log, cfg.Validate(), "validate configuration")
	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("directory_url", cfg.Directory.URL).
		Dur("token_ttl", cfg.TokenTTL).
		Msg("configuration loaded")

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	// ── 3. Security primitives ────────────────────────────────────────────
	key, err := cfg.SigningKey()
	must(log, err, "decode signing key")
	codec, err := token.NewCodec(key)
	must(log, err, "initialize token codec")
	hasher := password.NewBcryptHasher(cfg.BcryptCost)

	// ── 4. User directory ─────────────────────────────────────────────────
	dir := directory.New(cfg.Directory.URL, cfg.Directory.Timeout, log.With().Str("component", "directory").Logger())
	readiness := map[string]handler.Check{"directory": dir.Ping}

	opts := []service.Option{}

	// ── 5. Login throttle (optional) ──────────────────────────────────────
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(startupCtx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		must(log, err, "connect to redis")
		defer func() {
			if cerr := rdb.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("redis close error")
			}
		}()
		opts = append(opts, service.WithLoginThrottle(
			redisstore.NewLoginThrottle(rdb, cfg.Throttle.MaxFailures, cfg.Throttle.Lockout),
		))
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Int("max_failures", cfg.Throttle.MaxFailures).Dur("lockout", cfg.Throttle.Lockout).Msg("login throttle enabled")
	}

	// ── 6. Audit trail (optional) ─────────────────────────────────────────
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var dispatcher *queue.Dispatcher
	if cfg.Mongo.URI != "" {
		client, db, err := mongostore.Connect(startupCtx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  serviceName,
		})
		must(log, err, "connect to mongodb")
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if cerr := client.Disconnect(dctx); cerr != nil {
				log.Error().Err(cerr).Msg("mongodb disconnect error")
			}
		}()

		repo := mongostore.NewAuditRepository(db)
		if err := repo.EnsureIndexes(startupCtx); err != nil {
			log.Warn().Err(err).Msg("audit index creation failed")
		}
		dispatcher = queue.NewDispatcher(cfg.Mongo.AuditWorkers, repo, log.With().Str("component", "audit").Logger())
		dispatcher.Start(workerCtx)
		opts = append(opts, service.WithAuditSink(dispatcher))
		readiness["mongodb"] = func(ctx context.Context) error { return mongostore.Ping(ctx, client) }
		log.Info().Str("database", cfg.Mongo.Database).Msg("audit trail enabled")
	} else {
		opts = append(opts, service.WithAuditSink(ports.NopAuditSink{}))
	}

	// ── 7. Gateway + HTTP ─────────────────────────────────────────────────
	authService := service.NewAuthService(dir, hasher, codec, cfg.TokenTTL, log.With().Str("component", "auth").Logger(), opts...)

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Tokens:      codec,
		Readiness:   readiness,
		RateLimit:   api.RateLimit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
		Log:         log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// ── 8. Graceful shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	stopWorkers()
	if dispatcher != nil {
		dispatcher.Wait()
	}

	log.Info().Msg("server stopped cleanly")
}

// must logs a fatal error and terminates the process if err is non-nil.
// Only used during startup wiring.
func must(log zerolog.Logger, err error, step string) {
	if err != nil {
		log.Fatal().Err(err).Str("step", step).Msg("startup failed")
	}
}
