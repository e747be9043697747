package providers

import (
	"context"
	"strings"

	"github.com/samber/do/v2"

	"github.com/hermanshu/targ-site-sub000/internal/config"
	"github.com/hermanshu/targ-site-sub000/internal/favorites"
	"github.com/hermanshu/targ-site-sub000/internal/listings"
	"github.com/hermanshu/targ-site-sub000/internal/logger"
	"github.com/hermanshu/targ-site-sub000/internal/ratelimit"
)

// ProvideCatalog provides the listings collaborator used by category filters
// and shared folders.
func ProvideCatalog(i do.Injector) (listings.Catalog, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	switch {
	case cfg.Listings.ServiceURL != "":
		log.Info("Using listings service", "url", cfg.Listings.ServiceURL)
		return listings.NewHTTPCatalog(strings.TrimRight(cfg.Listings.ServiceURL, "/"), cfg.Listings.Timeout, log.Logger), nil
	case cfg.Listings.CatalogFile != "":
		catalog, err := listings.LoadFile(cfg.Listings.CatalogFile)
		if err != nil {
			return nil, err
		}
		log.Info("Loaded listings catalog", "path", cfg.Listings.CatalogFile, "listings", catalog.Len())
		return catalog, nil
	default:
		log.Warn("No listings source configured, category filters match nothing")
		return listings.NewStaticCatalog(), nil
	}
}

// SessionsHandle wraps the favorites session manager and its store watcher.
type SessionsHandle struct {
	*favorites.Sessions
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SessionsHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvideSessions provides per-owner favorites sessions and starts watching
// the store for writes from other processes.
func ProvideSessions(i do.Injector) (*SessionsHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	catalog := do.MustInvoke[listings.Catalog](i)

	sessions := favorites.NewSessions(storeHandle.Adapter, log.Logger,
		favorites.WithCatalog(catalog),
		favorites.WithEmitter(sseHandle.Manager),
		favorites.WithBaseURL(cfg.Server.PublicURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := sessions.Watch(ctx); err != nil {
			log.WithError(err).Error("Store watcher stopped, sessions no longer reload on external writes")
		}
	}()

	return &SessionsHandle{Sessions: sessions, cancel: cancel}, nil
}

// ShareLimiterHandle wraps the share-link rate limiter. Limiter is nil when
// throttling is disabled.
type ShareLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *ShareLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideShareLimiter provides the per-address limiter for anonymous
// share-link requests.
func ProvideShareLimiter(i do.Injector) (*ShareLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Share.RequestsPerMinute == 0 {
		log.Info("Share-link rate limiting disabled")
		return &ShareLimiterHandle{}, nil
	}

	limiter := ratelimit.New(
		ratelimit.PerInterval(cfg.Share.RequestsPerMinute, shareInterval),
		cfg.Share.Burst,
	)
	return &ShareLimiterHandle{Limiter: limiter}, nil
}
