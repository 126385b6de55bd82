package main

import (
	"context"
	"os"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/config"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/db/schema"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Error(context.Background(), "cannot load config", "err", err)
		os.Exit(1)
	}
	ctx := log.NewContext(context.Background(), cfg.Log.Level, cfg.Log.Mode, os.Stdout)
	log.Config(cfg.Log.Level, cfg.Log.Mode, os.Stdout)

	if cfg.Database.URL == "" {
		log.Error(ctx, "database url is required")
		os.Exit(1)
	}
	if err := schema.Migrate(cfg.Database.URL); err != nil {
		log.Error(ctx, "error migrating database", "err", err)
		os.Exit(1)
	}
	log.Info(ctx, "migration done")
}
