// Package app assembles the engine from configuration: registries, machine
// types, the record store and the world. cmd/server drives it.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/warp/machine-storage/api"
	"github.com/warp/machine-storage/factory"
	"github.com/warp/machine-storage/fluid"
	"github.com/warp/machine-storage/internal/config"
	"github.com/warp/machine-storage/item"
	"github.com/warp/machine-storage/machine"
	"github.com/warp/machine-storage/store/memory"
	"github.com/warp/machine-storage/store/redis"
	"github.com/warp/machine-storage/store/sqlite"
	"go.uber.org/zap"
)

// App is a fully wired engine. Close releases the store.
type App struct {
	Types  *machine.Types
	Store  machine.Store
	World  *machine.World
	logger *zap.Logger
	closer io.Closer
}

// Catalogue builds the item and fluid registries and installs the built-in
// machine types plus any definitions at path.
func Catalogue(path string) (*machine.Types, error) {
	items, fluids := item.NewRegistry(), fluid.NewRegistry()
	if err := item.Defaults(items); err != nil {
		return nil, fmt.Errorf("failed to register items: %w", err)
	}
	if err := fluid.Defaults(fluids); err != nil {
		return nil, fmt.Errorf("failed to register fluids: %w", err)
	}

	defs, err := factory.Defaults()
	if err != nil {
		return nil, err
	}
	if path != "" {
		extra, err := factory.Load(path)
		if err != nil {
			return nil, err
		}
		defs = defs.Merge(extra)
	}

	types := machine.NewTypes(items, fluids)
	if _, err := factory.NewResolver(items, fluids).Install(types, defs); err != nil {
		return nil, fmt.Errorf("failed to install machine types: %w", err)
	}
	return types, nil
}

// OpenStore opens the configured record store. The closer is nil for the
// memory driver.
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (machine.Store, io.Closer, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil, nil
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLitePath, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.DriverRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redis.New(client, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithLogger(logger)), client, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
}

// New wires everything and restores persisted machines.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	types, err := Catalogue(cfg.DefinitionsPath)
	if err != nil {
		return nil, err
	}
	store, closer, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}

	world := machine.NewWorld(types, store,
		machine.WithLogger(logger),
		machine.WithAutosaveEvery(cfg.AutosaveEvery))
	if _, err := world.Restore(ctx); err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	return &App{Types: types, Store: store, World: world, logger: logger, closer: closer}, nil
}

// Router is the HTTP API over the app's world.
func (a *App) Router(allowedOrigins ...string) http.Handler {
	return api.NewRouter(api.NewHandler(a.World, a.logger), allowedOrigins...)
}

func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
