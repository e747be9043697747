package favorites

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/hermanshu/targ-site-sub000/internal/store"
)

// Sessions keeps one Facade per owner so concurrent requests for the same
// owner are serialised by the same session.
type Sessions struct {
	mu       sync.Mutex
	adapter  store.Adapter
	opts     []Option
	logger   *slog.Logger
	sessions map[string]*Facade

	pendingMu sync.Mutex
	pending   map[string]bool
	wake      chan struct{}
}

// NewSessions creates a session manager. opts apply to every Facade.
func NewSessions(adapter store.Adapter, logger *slog.Logger, opts ...Option) *Sessions {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sessions{
		adapter:  adapter,
		opts:     append(opts, WithLogger(logger)),
		logger:   logger,
		sessions: make(map[string]*Facade),
		pending:  make(map[string]bool),
		wake:     make(chan struct{}, 1),
	}
}

// Get returns the owner's session, loading it on first use. Loading
// happens outside the manager lock; when two requests race to load the
// same owner, the first session stored wins and the other is discarded.
func (s *Sessions) Get(ctx context.Context, ownerID string) (*Facade, error) {
	s.mu.Lock()
	f, ok := s.sessions[ownerID]
	s.mu.Unlock()
	if ok {
		return f, nil
	}

	loaded, err := Open(ctx, ownerID, s.adapter, s.opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.sessions[ownerID]; ok {
		return f, nil
	}
	s.sessions[ownerID] = loaded
	return loaded, nil
}

// Shared returns a resolver for anonymous share-link requests.
func (s *Sessions) Shared() *SharedFolders {
	o := buildOptions(s.opts)
	return NewSharedFolders(s.adapter, o.catalog)
}

// Len returns the number of loaded sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Watch reloads loaded sessions whose keys another writer changed. It does
// nothing useful unless the adapter implements store.Watcher. Blocks until
// ctx is cancelled or the adapter's watch fails, and returns that failure.
func (s *Sessions) Watch(ctx context.Context) error {
	w, ok := s.adapter.(store.Watcher)
	if !ok {
		s.logger.Debug("store adapter cannot report external changes")
		<-ctx.Done()
		return nil
	}

	loopCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.reloadLoop(loopCtx)
	}()

	err := w.Watch(ctx, s.markChanged)
	stop()
	wg.Wait()
	return err
}

// markChanged runs on the adapter's notification path, possibly while a
// session is mid-write, so it only records owners and wakes the reload loop.
func (s *Sessions) markChanged(keys []string) {
	s.pendingMu.Lock()
	for _, key := range keys {
		if owner, ok := store.OwnerOf(key); ok {
			s.pending[owner] = true
		}
	}
	s.pendingMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sessions) reloadLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}

		s.pendingMu.Lock()
		owners := slices.Sorted(maps.Keys(s.pending))
		clear(s.pending)
		s.pendingMu.Unlock()

		for _, owner := range owners {
			s.mu.Lock()
			f, ok := s.sessions[owner]
			s.mu.Unlock()
			if !ok {
				continue
			}
			if err := f.Reload(ctx); err != nil {
				s.logger.Warn("reload after external change failed", "owner_id", owner, "error", err)
				continue
			}
			s.logger.Debug("session reloaded after store change", "owner_id", owner)
		}
	}
}
