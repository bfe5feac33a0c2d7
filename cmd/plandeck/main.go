package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ManuelReschke/PlanDeck/app/controllers"
	"github.com/ManuelReschke/PlanDeck/app/repository"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/auth"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/backend"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/cache"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/catalog"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/checkout"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/config"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/confirmation"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/database"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/env"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/eventbus"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/hcaptcha"
	applog "github.com/ManuelReschke/PlanDeck/internal/pkg/logger"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/router"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/session"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/subscription"
	"github.com/ManuelReschke/PlanDeck/internal/pkg/viewmodel"
)

const (
	checkoutGuardTTL = 30 * time.Second
	sweepInterval    = time.Minute
	confirmMaxAge    = 10 * time.Minute
	shutdownTimeout  = 10 * time.Second
)

func main() {
	envFile, envErr := env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := applog.New(cfg.AppEnv)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("ignoring unreadable env file")
	} else if envFile != "" {
		log.Debug().Str("file", envFile).Msg("loaded env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := NewApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}
	defer cleanup()

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.ListenAddr()).Msg("listening")
	if err := app.Listen(cfg.ListenAddr()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// NewApplication wires every service and returns the fiber app plus a
// cleanup func for the resources it opened.
func NewApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*fiber.App, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	basePath, err := findBasePath()
	if err != nil {
		return nil, cleanup, err
	}

	plans := catalog.Default()
	if cfg.PlanCatalogFile != "" {
		if plans, err = catalog.LoadFile(cfg.PlanCatalogFile); err != nil {
			return nil, cleanup, err
		}
	}
	log.Info().Int("plans", plans.Len()).Msg("plan catalog loaded")

	client := backend.New(backend.Config{
		BaseURL: cfg.BackendURL,
		AnonKey: cfg.BackendAnonKey,
		Timeout: cfg.HTTPTimeout,
	}, log)

	tokens, err := auth.NewTokenParser(ctx, cfg.JWTSecret, cfg.JWKSURL)
	if err != nil {
		return nil, cleanup, fmt.Errorf("token parser: %w", err)
	}
	if !tokens.Verifies() {
		log.Warn().Msg("JWT_SECRET and JWKS_URL are unset, access tokens are not verified locally")
	}

	bus := eventbus.New()
	closers = append(closers, bus.Close)
	accessor := auth.NewAccessor(client,
		auth.WithBus(bus),
		auth.WithTokenParser(tokens),
		auth.WithLogger(log),
	)

	fetcher, closeFetcher, err := newFetcher(ctx, cfg, client)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, closeFetcher)

	subs := subscription.NewRegistry(fetcher, plans, log)
	confirmations := confirmation.NewRegistry(confirmation.Config{
		Grace:         cfg.ConfirmGrace,
		FollowUps:     cfg.ConfirmFollowUps,
		FollowUpDelay: cfg.ConfirmFollowUpDelay,
	}, log)

	go subs.Watch(ctx, accessor.Subscribe(eventbus.SignedIn, eventbus.SignedOut, eventbus.Expired))
	go subs.Run(ctx, sweepInterval, cfg.SessionTTL)
	go confirmations.Watch(ctx, accessor.Subscribe(eventbus.SignedIn, eventbus.SignedOut, eventbus.Expired))
	go confirmations.Run(ctx, sweepInterval, confirmMaxAge)

	opts := []checkout.Option{checkout.WithLogger(log)}
	if cfg.CheckoutGuard == "redis" {
		rdb := cache.SetupCache(ctx, cfg, log)
		closers = append(closers, func() { _ = rdb.Close() })
		opts = append(opts, checkout.WithGuard(checkout.NewRedisGuard(rdb, checkoutGuardTTL, log)))
	}

	var attempts repository.CheckoutAttemptRepository
	if cfg.AuditEnabled {
		db, err := database.SetupDatabase(ctx, cfg, log)
		if err != nil {
			return nil, cleanup, err
		}
		if sqlDB, err := db.DB(); err == nil {
			closers = append(closers, func() { _ = sqlDB.Close() })
		}
		attempts = repository.NewFactory(db).GetCheckoutAttemptRepository()
		opts = append(opts, checkout.WithRecorder(repository.NewAttemptRecorder(attempts)))
	}
	initiator := checkout.NewInitiator(cfg.CheckoutURL(), opts...)

	store := session.NewSessionStore(cfg)

	portal := controllers.NewPortal(controllers.Deps{
		Config:        cfg,
		Catalog:       plans,
		Accessor:      accessor,
		Store:         store,
		Subscriptions: subs,
		Checkout:      initiator,
		Confirmations: confirmations,
		Attempts:      attempts,
		Captcha:       hcaptcha.New(cfg.HCaptchaSiteKey, cfg.HCaptchaSecret),
		Log:           log,
	})

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:                 viewmodel.NewEngine(basePath+"views", cfg.IsDev()),
		DisableStartupMessage: !cfg.IsDev(),
	})

	// ignore favicon requests
	app.Use(favicon.New())

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	if cfg.MetricsPassword != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				cfg.MetricsUser: cfg.MetricsPassword,
			},
		}), monitor.New())
	}

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Portal:          portal,
		Store:           store,
		Accessor:        accessor,
		IdentityTimeout: cfg.HTTPTimeout,
		SecureCookies:   !cfg.IsDev(),
		Log:             log,
	})

	return app, cleanup, nil
}

// newFetcher picks where subscription rows are read from.
func newFetcher(ctx context.Context, cfg *config.Config, client *backend.Client) (subscription.Fetcher, func(), error) {
	if cfg.SubscriptionSource != "postgres" {
		return subscription.NewRESTFetcher(client), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.SubscriptionDatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("subscription database: %w", err)
	}
	return subscription.NewPostgresFetcher(pool), pool.Close, nil
}

// findBasePath locates the project root from the working directory.
func findBasePath() (string, error) {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/plandeck to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("could not find project root directory")
}
