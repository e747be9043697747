package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/hermanshu/targ-site-sub000/internal/config"
	"github.com/hermanshu/targ-site-sub000/internal/logger"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
	"github.com/hermanshu/targ-site-sub000/internal/store"
	"github.com/hermanshu/targ-site-sub000/internal/store/postgres"
	"github.com/hermanshu/targ-site-sub000/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the configured store adapter with shutdown capability.
type StoreHandle struct {
	store.Adapter
	Driver string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the store adapter selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	adapter, err := OpenStore(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	log.Info("Store initialized", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)
	return &StoreHandle{Adapter: adapter, Driver: cfg.Storage.Driver}, nil
}

// OpenStore opens a store adapter. Shared with the operator CLI.
func OpenStore(cfg config.StorageConfig, log *logger.Logger) (store.Adapter, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		return store.OpenBadger(cfg.Path, log.Logger)
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path, log.Logger)
	case config.DriverPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.Open(ctx, postgres.Config{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    cfg.MaxConns,
		}, log.Logger)
	case config.DriverMemory:
		log.Warn("Using in-memory store, favorites are lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
