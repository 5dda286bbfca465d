package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roumel00/skeleton/internal/config"
	"github.com/roumel00/skeleton/internal/database"
	"github.com/roumel00/skeleton/internal/http/handler"
	"github.com/roumel00/skeleton/internal/http/middleware"
	"github.com/roumel00/skeleton/internal/http/router"
	"github.com/roumel00/skeleton/internal/observability"
	"github.com/roumel00/skeleton/internal/provider"
	"github.com/roumel00/skeleton/internal/provider/google"
	"github.com/roumel00/skeleton/internal/repository"
	"github.com/roumel00/skeleton/internal/security"
	"github.com/roumel00/skeleton/internal/service"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	Server *http.Server

	shutdownFns []func(context.Context) error
}

// New loads configuration and wires the whole service together.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	a := &App{Config: cfg, Logger: logger}

	tracerProvider, err := observability.InitTracing(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownFns = append(a.shutdownFns, tracerProvider.Shutdown)

	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	users := repository.NewUserRepository(db)
	resetTokens := repository.NewPasswordResetTokenRepository(db)

	// Redis keeps pending OAuth states across instances; without it a
	// single-instance in-memory store serves.
	var states service.OAuthStateStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.shutdownFns = append(a.shutdownFns, func(context.Context) error {
			return redisClient.Close()
		})
		states = service.NewRedisOAuthStateStore(redisClient, "oauthstate")
	} else {
		logger.Warn("REDIS_ADDR not set, oauth states kept in process memory")
		states = service.NewMemoryOAuthStateStore()
	}

	googleProvider, err := google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if err != nil {
		return nil, fmt.Errorf("configure google provider: %w", err)
	}
	providers := provider.NewRegistry(googleProvider)

	tokens := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTTTL)
	cookies := security.NewCookiePolicy(cfg.JWTTTL)

	authSvc := service.NewAuthService(users, logger)
	resetSvc := service.NewPasswordResetService(
		users, resetTokens,
		service.NewDevPasswordResetNotifier(logger),
		logger, cfg.ResetTokenTTL, cfg.FrontendBaseURL,
	)

	authHandler := handler.NewAuthHandler(authSvc, resetSvc, tokens, cookies)
	oauthHandler := handler.NewOAuthHandler(
		providers, states, authSvc, tokens, cookies,
		cfg.StateSigningSecret, cfg.StateTTL, cfg.FrontendBaseURL,
	)
	authMw := middleware.NewAuthMiddleware(tokens)

	a.Server = &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router.New(authHandler, oauthHandler, authMw),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Shutdown releases the resources New acquired, in reverse order.
func (a *App) Shutdown(ctx context.Context) {
	for i := len(a.shutdownFns) - 1; i >= 0; i-- {
		if err := a.shutdownFns[i](ctx); err != nil {
			a.Logger.Error("shutdown step failed", "error", err)
		}
	}
}

// RunMigrationOnly opens the database, applies the schema, and exits.
func RunMigrationOnly() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
