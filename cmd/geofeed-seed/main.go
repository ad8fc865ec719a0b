// geofeed-seed loads a JSON catalog snapshot into the store and creates the
// search indexes.
//
// Usage:
//
//	ENV=local geofeed-seed -file catalog.json [-reindex]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geofeed/internal/config"
	dbRedis "github.com/kailas-cloud/geofeed/internal/db/redis"
	logpkg "github.com/kailas-cloud/geofeed/internal/logger"
	catalogrepo "github.com/kailas-cloud/geofeed/internal/repository/catalog"
	engagementrepo "github.com/kailas-cloud/geofeed/internal/repository/engagement"
)

func main() {
	file := flag.String("file", "", "path to the JSON catalog snapshot")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall load timeout")
	reindex := flag.Bool("reindex", false, "drop and recreate the catalog indexes before loading")
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*file, *timeout, *reindex, cfg, logger); err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
}

func run(path string, timeout time.Duration, reindex bool, cfg config.Config, logger *zap.Logger) error {
	if path == "" {
		return fmt.Errorf("-file is required")
	}
	fh, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer func() { _ = fh.Close() }()

	seed, err := readSeed(fh)
	if err != nil {
		return err
	}
	snap, err := seed.snapshot()
	if err != nil {
		return err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	cat := catalogrepo.New(store, cfg.Storage.KeyPrefix)
	if reindex {
		if err := cat.DropIndexes(ctx); err != nil {
			return err
		}
		logger.Info("Catalog indexes dropped")
	}
	if err := cat.EnsureIndexes(ctx); err != nil {
		return err
	}

	start := time.Now()
	if err := cat.Put(ctx, snap); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	prefs := engagementrepo.New(store, cfg.Storage.KeyPrefix)
	for _, p := range seed.Preferences {
		if err := prefs.AddPreferences(ctx, p.UserID, p.Kind, p.CategoryIDs...); err != nil {
			return err
		}
	}

	logger.Info("Catalog loaded",
		zap.Int("venues", len(snap.Venues)),
		zap.Int("events", len(snap.Events)),
		zap.Int("promotions", len(snap.Promotions)),
		zap.Int("performers", len(snap.Performers)),
		zap.Int("preferences", len(seed.Preferences)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}
