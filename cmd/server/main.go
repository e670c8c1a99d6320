package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/backoffice-api/internal/authz"
	"github.com/iliyamo/backoffice-api/internal/config"
	"github.com/iliyamo/backoffice-api/internal/database"
	"github.com/iliyamo/backoffice-api/internal/handler"
	"github.com/iliyamo/backoffice-api/internal/metrics"
	"github.com/iliyamo/backoffice-api/internal/middleware"
	"github.com/iliyamo/backoffice-api/internal/repository"
	"github.com/iliyamo/backoffice-api/internal/router"
	"github.com/iliyamo/backoffice-api/internal/service"
	"github.com/iliyamo/backoffice-api/internal/utils"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Error("database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logger.Error("migrate", "err", err)
			os.Exit(1)
		}
	}

	// Redis is optional: without it rate limiting and caching are off.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled", "addr", cfg.Redis.Address())
	} else {
		defer rdb.Close()
	}

	deps := service.Deps{Logger: logger}
	if cfg.RabbitMQ.URL != "" {
		pub := service.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		defer pub.Close()
		deps.Publisher = pub
	} else {
		logger.Info("RABBITMQ_URL not set, domain events disabled")
	}

	store := repository.NewSQLStore(db)
	tokens := utils.NewTokenService(cfg.Auth.JWTSecret)
	hasher := utils.NewPasswordHasher(cfg.Auth.PasswordSalt, cfg.Auth.BcryptCost)
	ledger := service.NewLedger(deps)

	authSvc := service.NewAuthService(store, tokens, hasher, cfg.Auth, deps)
	userSvc := service.NewUserService(store, hasher, deps)
	catalogSvc := service.NewCatalogService(store, ledger, deps)
	orderSvc := service.NewOrderService(store, ledger, deps)
	returnSvc := service.NewReturnService(store, ledger, deps)
	deliverySvc := service.NewDeliveryService(store, deps)
	inventorySvc := service.NewInventoryService(store)

	if b := cfg.Bootstrap; b.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		u, err := authSvc.EnsureAdmin(ctx, b.Username, b.Email, b.Password)
		cancel()
		if err != nil {
			logger.Error("bootstrap admin", "err", err)
			os.Exit(1)
		}
		logger.Info("bootstrap admin ready", "user_id", u.ID, "email", u.Email)
	}

	gate := authz.NewGate(tokens)
	handlers := router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, userSvc),
		Users:     handler.NewUserHandler(userSvc),
		Catalog:   handler.NewCatalogHandler(catalogSvc, returnSvc, inventorySvc),
		Orders:    handler.NewOrderHandler(orderSvc, deliverySvc),
		Returns:   handler.NewReturnHandler(returnSvc),
		Delivery:  handler.NewDeliveryHandler(deliverySvc),
		Inventory: handler.NewInventoryHandler(inventorySvc),
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(metrics.Middleware())

	router.RegisterOps(e, db)
	router.Register(e, gate, router.Routes(handlers, router.Deps{
		Gate:      gate,
		Rdb:       rdb,
		RateLimit: cfg.RateLimit,
		Cache:     cfg.Cache,
		Logger:    logger,
	}))

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("server stopped")
}
