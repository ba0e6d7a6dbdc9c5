package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rsned/production-planner/internal/config"
	"github.com/rsned/production-planner/internal/planner/catalog"
	"github.com/rsned/production-planner/internal/planner/db"
	"github.com/rsned/production-planner/internal/planner/engine"
)

// app holds the wired collaborators shared by the subcommands.
type app struct {
	db      *db.DB
	world   *config.WorldConfig
	catalog *catalog.Catalog
	configs *db.ConfigStore
	engine  *engine.Engine
}

func openApp(ctx context.Context) (*app, error) {
	world, err := config.LoadWorld(cfg.WorldConfigPath)
	if err != nil {
		return nil, err
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	database, err := db.OpenAndInit(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	recipes := db.NewRecipeStore(database)
	configs := db.NewConfigStore(database)
	cat := catalog.New(recipes, cfg.CatalogCacheSize, cfg.CatalogTTL)

	eng := engine.New(world, cat,
		engine.WithLogger(log),
		engine.WithSelectionSource(configs),
		engine.WithLookup(recipes, db.NewItemStore(database)),
	)

	log.Info("planner ready",
		"db", cfg.DBPath,
		"world", world.Name,
		"raw_resources", len(world.RawResourceLimits),
		"solver_timeout", world.Timeout())

	return &app{
		db:      database,
		world:   world,
		catalog: cat,
		configs: configs,
		engine:  eng,
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}
