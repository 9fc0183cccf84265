package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/database"
	"github.com/iliyamo/ticket-marketplace/internal/handler"
	"github.com/iliyamo/ticket-marketplace/internal/logger"
	"github.com/iliyamo/ticket-marketplace/internal/middleware"
	"github.com/iliyamo/ticket-marketplace/internal/notify"
	"github.com/iliyamo/ticket-marketplace/internal/queue"
	"github.com/iliyamo/ticket-marketplace/internal/repository"
	"github.com/iliyamo/ticket-marketplace/internal/router"
	"github.com/iliyamo/ticket-marketplace/internal/scancode"
	"github.com/iliyamo/ticket-marketplace/internal/scheduler"
	"github.com/iliyamo/ticket-marketplace/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env (optional) then the typed config
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	// Cancelled on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db, log); err != nil {
			return err
		}
	}
	store := repository.NewSQLStore(db, log) // transactional store for the services
	if err := store.EnsurePlatformWallet(ctx); err != nil {
		return fmt.Errorf("platform wallet: %w", err)
	}

	users := repository.NewUserRepo(db)
	mailer, err := notify.New(cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	rdb := config.NewRedisClient(log) // nil when Redis is unreachable
	if rdb != nil {
		defer rdb.Close()
	}

	opts := service.Options{
		Store:          store,
		Log:            log,
		CommissionRate: cfg.CommissionRate,
		Currency:       cfg.Currency,
		Renderer:       scancode.NewRenderer(cfg.QR.AssetDir, cfg.QR.BaseURL),
		Notifier:       mailer,
		Directory:      users,
	}
	// Broker is optional; without it receipts go out directly
	if cfg.EventsEnabled() {
		opts.Publisher = queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Exchange)
		consumer := &queue.ReceiptConsumer{
			URL:      cfg.Broker.URL,
			Exchange: cfg.Broker.Exchange,
			Queue:    cfg.Broker.ReceiptQueue,
			Notifier: mailer,
			Log:      log,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("receipt consumer stopped", zap.Error(err))
			}
		}()
	}
	svc := service.New(opts)

	var payouts scheduler.PayoutJobs
	if cfg.PayoutSweepEnabled {
		payouts = svc.Payouts
	}
	sched, err := scheduler.New(payouts, cfg.PayoutSweepInterval, log)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	tokens, otps := repository.NewTokenRepo(db), repository.NewOTPRepo(db)
	if err := sched.AddPurge("refresh_tokens", tokens, time.Hour); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := sched.AddPurge("email_otps", otps, time.Hour); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	sched.Start() // payout job runs once right away
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	// Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Recover(log))
	e.Static(cfg.QR.BaseURL, cfg.QR.AssetDir) // ticket code images

	// Both guards pass through when Redis is nil
	guards := router.Guards{
		Limit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, otps, mailer, log), cfg.JWTSecret, guards)
	router.RegisterPublic(e, handler.NewPublicHandler(svc.Catalog, log), guards)
	router.RegisterCustomer(e, handler.NewCustomerHandler(svc, log), cfg.JWTSecret, guards)
	router.RegisterOrganizer(e, handler.NewOrganizerHandler(svc, log), cfg.JWTSecret, guards)

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	// Wait for a server error or a shutdown signal
	select {
	case err := <-errc:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
