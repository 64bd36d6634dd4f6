// Command server runs the shop session gateway: the durable SQLite session
// store, the notification broker, the catalog and permission caches, and the
// HTTP surface for the storefront and the admin console.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/avlonitis/go-shop-backend/docs"
	"github.com/avlonitis/go-shop-backend/internal/auth"
	"github.com/avlonitis/go-shop-backend/internal/cart"
	"github.com/avlonitis/go-shop-backend/internal/catalog"
	"github.com/avlonitis/go-shop-backend/internal/config"
	httpapi "github.com/avlonitis/go-shop-backend/internal/http"
	"github.com/avlonitis/go-shop-backend/internal/http/middleware"
	"github.com/avlonitis/go-shop-backend/internal/notify"
	"github.com/avlonitis/go-shop-backend/internal/observability"
	"github.com/avlonitis/go-shop-backend/internal/remote"
	"github.com/avlonitis/go-shop-backend/internal/store"
	"github.com/avlonitis/go-shop-backend/internal/sysutil"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("sqlite open failed")
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	durable := store.NewDurable(db)
	client := remote.New(cfg.Remote.BaseURL, &http.Client{Timeout: cfg.Remote.Timeout}, log.Logger)

	broker := notify.New(durable, notify.Options{
		Capacity:     cfg.Notify.Capacity,
		Lifetime:     cfg.Notify.Lifetime,
		ReplayWindow: cfg.Notify.ReplayWindow,
		SweepEvery:   cfg.Notify.SweepEvery,
	}, log.Logger)
	defer broker.Close()

	perms := auth.NewPermissionCache(client.AuthorizeAdmin, log.Logger)
	catalogCache := catalog.New(client, durable, log.Logger)
	cartStore := cart.New(durable, log.Logger)

	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	defer limiter.Stop()

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:      db,
		Durable: durable,
		Remote:  client,
		Broker:  broker,
		Perms:   perms,
		Catalog: catalogCache,
		Cart:    cartStore,
		Limiter: limiter,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
