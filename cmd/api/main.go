// Package main runs the favorites server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/hermanshu/targ-site-sub000/internal/config"
	"github.com/hermanshu/targ-site-sub000/internal/di"
	"github.com/hermanshu/targ-site-sub000/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "favorites server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	injector := di.NewContainer()
	if err := di.Bootstrap(injector); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	cfg := do.MustInvoke[*config.Config](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("favorites server ready",
		"port", cfg.Server.Port,
		"public_url", cfg.Server.PublicURL)
	<-ctx.Done()
	stop()

	log.Info("shutting down")

	// Handles shut down in reverse dependency order: HTTP server first,
	// the store last.
	if err := injector.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %v", err)
	}

	log.Info("server stopped")
	return nil
}
