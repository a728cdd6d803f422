// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-marketplace-api/config"
	"go-marketplace-api/db"
	"go-marketplace-api/handler"
	"go-marketplace-api/logger"
	"go-marketplace-api/metrics"
	"go-marketplace-api/repository"
	"go-marketplace-api/router"
	"go-marketplace-api/service"

	"github.com/redis/go-redis/v9"
)

// App holds the wired dependency graph. Tests build one against their own
// database and serve Router directly.
type App struct {
	DB          *sql.DB
	Redis       *redis.Client
	Router      http.Handler
	Auth        *service.AuthService
	Ledger      *service.RevocationLedger
	Housekeeper *service.Housekeeper
}

// NewApp wires repositories, services and handlers. rdb may be nil, in which
// case revocation checks go straight to the database.
func NewApp(database *sql.DB, rdb *redis.Client, cfg *config.Config) *App {
	var cache service.ICacheClient
	if rdb != nil {
		cache = rdb
	}

	userRepo := repository.NewUserRepository(database)
	revocationRepo := repository.NewRevocationRepository(database)

	hasher := service.NewPasswordHasher(cfg.Password)
	tokens := service.NewTokenService(cfg.JWT)
	ledger := service.NewRevocationLedger(revocationRepo, cache)

	authService := service.NewAuthService(userRepo, tokens, ledger, hasher, cfg.Session.ReturnRotatedRefreshToken)
	userService := service.NewUserService(userRepo)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	limiter := handler.NewRateLimiter(handler.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		Burst:    cfg.RateLimit.Burst,
	})
	requireAuth := handler.AuthMiddleware(tokens, ledger, userRepo)

	return &App{
		DB:          database,
		Redis:       rdb,
		Router:      router.NewRouter(authHandler, userHandler, requireAuth, limiter),
		Auth:        authService,
		Ledger:      ledger,
		Housekeeper: service.NewHousekeeper(ledger, cfg.Housekeeping.Interval),
	}
}

func Run() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Init()
	logger.Log.Info("Configuration loaded successfully")
	metrics.Init()

	if err := db.Migrate(cfg.DSN()); err != nil {
		logger.Log.Fatalf("Error running migrations: %v", err)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	rdb, err := db.ConnectRedis(context.Background(), cfg)
	if err != nil {
		logger.Log.WithError(err).Warn("Continuing without the revocation cache")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	a := NewApp(database, rdb, cfg)
	a.Housekeeper.Start()
	defer a.Housekeeper.Stop()

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	logger.Log.Info("Server exited properly")
}
