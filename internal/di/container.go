// Package di provides dependency injection configuration for the favorites server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/hermanshu/targ-site-sub000/internal/auth"
	"github.com/hermanshu/targ-site-sub000/internal/config"
	"github.com/hermanshu/targ-site-sub000/internal/di/providers"
	"github.com/hermanshu/targ-site-sub000/internal/listings"
	"github.com/hermanshu/targ-site-sub000/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Favorites
	do.Provide(injector, providers.ProvideCatalog)
	do.Provide(injector, providers.ProvideSessions)
	do.Provide(injector, providers.ProvideShareLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[listings.Catalog](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.SessionsHandle](injector)
	_ = do.MustInvoke[*providers.ShareLimiterHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
