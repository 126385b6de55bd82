package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/api"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/cache"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/config"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/services"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/gateways"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/httpclient"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/redis"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/repositories"
)

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

	statusListCache := cache.NewMemoryCache()
	if cfg.Cache.RedisUrl != "" {
		client, err := redis.Open(cfg.Cache.RedisUrl)
		if err != nil {
			log.Error(ctx, "cannot connect to redis", "err", err, "url", cfg.Cache.RedisUrl)
			os.Exit(1)
		}
		statusListCache = cache.NewRedisCache(client)
	}

	httpClient := httpclient.DefaultClientWithRetry(cfg.DidResolver.Timeout)
	didResolver := gateways.NewDIDResolver(httpClient, cfg.DidResolver.BaseURL)

	statusListResolver := services.NewStatusListResolver(httpClient, statusListCache, services.StatusListResolverConfig{
		AcceptedHosts:  cfg.StatusList.AcceptedHosts,
		CacheTTL:       cfg.StatusList.CacheTTL,
		MaxPayloadSize: cfg.StatusList.MaxPayloadSize,
	})
	statusListVerifier := services.NewStatusListVerifier(statusListResolver, didResolver, cfg.StatusList.MaxPayloadSize, cfg.Verification.AcceptedAlgorithms)
	sdJWTVerifier := services.NewSdJWTVerifier(didResolver, statusListVerifier, services.SdJWTVerifierConfig{
		AcceptedAlgorithms: cfg.Verification.AcceptedAlgorithms,
		ProofTimeWindow:    cfg.Verification.ProofTimeWindow,
	})
	registry := services.NewVerifierRegistry(sdJWTVerifier)

	managementRepo := repositories.NewManagement()
	callbackRepo := repositories.NewCallback()
	callbackProducer := services.NewCallbackProducer(callbackRepo, cfg.Webhook.CallbackURL != "")

	managementService := services.NewManagement(storage, managementRepo, cfg.Verification.TTL, cfg.Verification.JWTSecuredAuthzRequests)
	verificationService := services.NewVerification(storage, managementRepo, callbackProducer, registry)

	server := api.NewServer(cfg, storage, managementService, verificationService)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: server.Routes(ctx),
	}

	go func() {
		log.Info(ctx, "verifier agent listening", "port", cfg.ServerPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "starting http server", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		log.Error(ctx, "shutting down http server", "err", err)
	}
}
