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

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"github.com/Lingges1210/tutorlink-sub001/config"
	"github.com/Lingges1210/tutorlink-sub001/internal/api"
	"github.com/Lingges1210/tutorlink-sub001/internal/auth"
	"github.com/Lingges1210/tutorlink-sub001/internal/booking"
	"github.com/Lingges1210/tutorlink-sub001/internal/db"
	"github.com/Lingges1210/tutorlink-sub001/internal/jobs"
	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/mailer"
	"github.com/Lingges1210/tutorlink-sub001/internal/notification"
	"github.com/Lingges1210/tutorlink-sub001/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().Str("path", configPath).Msg("configuration loaded")

	bookingCfg, err := booking.ConfigFrom(&cfg.Booking)
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid booking configuration")
	}

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logging.Fatal().Err(err).Msg("JWT_SECRET must be configured")
	}
	if cfg.Cron.SharedSecret == "" {
		logging.Warn().Msg("CRON_SECRET is not set, cron endpoints are locked")
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logging.Warn().Msg("VAPID keys not configured, notifications stay in the in-app feed")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	logging.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
	pool.Start(ctx)

	mail := mailer.New(&cfg.Mail)
	svc := booking.NewService(appStore, pool, mail, bookingCfg)
	alloc := booking.NewAllocator(appStore, pool, bookingCfg)
	sweeper := booking.NewSweeper(appStore, pool, bookingCfg)

	var runner *jobs.Runner
	if cfg.Cron.Enabled {
		runner = jobs.NewRunner(
			jobs.SweepJob(sweeper, cfg.Cron.SweepInterval),
			jobs.AllocateJob(alloc, cfg.Cron.AllocateInterval),
		)
		runner.Start(ctx)
	}

	router := api.NewRouter(api.NewHandler(appStore, svc, alloc, sweeper, webpushOptions), api.RouterOptions{
		Verifier:   verifier,
		CronSecret: cfg.Cron.SharedSecret,
		RateLimit:  rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:   time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logging.Info().Msg("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown")
	}
	cancel()
	if runner != nil {
		runner.Wait()
	}

	logging.Info().Msg("server gracefully stopped")
}
