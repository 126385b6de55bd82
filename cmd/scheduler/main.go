package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/config"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/services"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/gateways"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/httpclient"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/repositories"
)

// The scheduler daemon runs the recurring maintenance work: sweeping expired
// verification requests and dispatching pending webhook callbacks. Multiple
// instances coordinate through the shared lock table.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Error(context.Background(), "cannot load config", "err", err)
		os.Exit(1)
	}
	ctx, cancel := signal.NotifyContext(log.NewContext(context.Background(), cfg.Log.Level, cfg.Log.Mode, os.Stdout), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	log.Config(cfg.Log.Level, cfg.Log.Mode, os.Stdout)

	if err := cfg.Sanitize(); err != nil {
		log.Error(ctx, "there are errors in the configuration", "err", err)
		os.Exit(1)
	}

	storage, err := db.NewStorage(cfg.Database.URL)
	if err != nil {
		log.Error(ctx, "cannot connect to database", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := storage.Close(); err != nil {
			log.Error(ctx, "error closing database connection", "err", err)
		}
	}()

	managementRepo := repositories.NewManagement()
	managementService := services.NewManagement(storage, managementRepo, cfg.Verification.TTL, cfg.Verification.JWTSecuredAuthzRequests)

	jobs := []services.Job{
		{
			Name:     "expired-management-sweep",
			Interval: cfg.Verification.DataClearInterval,
			Run: func(ctx context.Context) error {
				_, err := managementService.DeleteExpired(ctx)
				return err
			},
		},
	}

	if cfg.Webhook.CallbackURL != "" {
		httpClient := httpclient.DefaultClientWithRetry(cfg.DidResolver.Timeout)
		webhook := gateways.NewWebhook(httpClient, cfg.Webhook.CallbackURL, cfg.Webhook.APIKeyHeader, cfg.Webhook.APIKeyValue)
		dispatcher := services.NewCallbackDispatcher(storage, repositories.NewCallback(), webhook)
		jobs = append(jobs, services.Job{
			Name:     "callback-dispatch",
			Interval: cfg.Webhook.CallbackInterval,
			Run:      dispatcher.DispatchPending,
		})
	} else {
		log.Info(ctx, "no callback url configured, callback dispatch disabled")
	}

	scheduler := services.NewScheduler(storage, repositories.NewLock(), cfg.Scheduler.LockAtMostFor)
	log.Info(ctx, "scheduler started", "jobs", len(jobs))
	scheduler.Start(ctx, jobs...)
	log.Info(ctx, "scheduler stopped")
}
