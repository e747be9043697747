// Package favorites implements a marketplace user's saved listings, the
// folders they organise them into, and public share links to folders.
//
// All state for one owner lives in a Facade (a session). Every mutating call
// is one transaction: the next state is computed on a copy, checked against
// the invariants, written to the store in a single atomic Apply, and only
// then made visible and announced to the owner's clients. If the write fails
// the session keeps its previous state and the call returns a persistence
// error.
package favorites

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/id"
	"github.com/hermanshu/targ-site-sub000/internal/listings"
	"github.com/hermanshu/targ-site-sub000/internal/normalize"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
	"github.com/hermanshu/targ-site-sub000/internal/store"
	"github.com/hermanshu/targ-site-sub000/internal/validation"
)

// shareTokenAttempts bounds retries when a new token is already indexed.
const shareTokenAttempts = 3

// EventEmitter receives change notifications. *sse.Manager implements it.
type EventEmitter interface {
	Emit(event any)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(any) {}

type options struct {
	catalog   listings.Catalog
	emitter   EventEmitter
	logger    *slog.Logger
	validator *validation.Validator
	now       func() time.Time
	newID     func() (string, error)
	newToken  func() (string, error)
	baseURL   string
}

// Option configures a Facade.
type Option func(*options)

// WithCatalog sets the listing lookup used for category filtering.
func WithCatalog(c listings.Catalog) Option { return func(o *options) { o.catalog = c } }

// WithEmitter sets where change events go.
func WithEmitter(e EventEmitter) Option { return func(o *options) { o.emitter = e } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithBaseURL sets the public site URL share links are built on.
func WithBaseURL(u string) Option { return func(o *options) { o.baseURL = u } }

// WithTokenGenerator overrides share token generation.
func WithTokenGenerator(fn func() (string, error)) Option {
	return func(o *options) { o.newToken = fn }
}

// WithIDGenerator overrides folder ID generation.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(o *options) { o.newID = fn }
}

func buildOptions(opts []Option) options {
	o := options{
		emitter:  NoopEmitter{},
		now:      time.Now,
		newID:    func() (string, error) { return id.Generate("fld") },
		newToken: id.ShareToken,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.validator == nil {
		o.validator = validation.New()
	}
	if o.catalog == nil {
		o.catalog = listings.NewStaticCatalog()
	}
	return o
}

// Facade is one owner's favorites session.
type Facade struct {
	mu        sync.Mutex
	ownerID   string
	adapter   store.Adapter
	opts      options
	logger    *slog.Logger
	st        *state
	persisted map[string]string // payload last read from or written to each owner key
	indexed   map[string]bool   // share tokens the store maps to this owner
	repairs   []string          // fixes applied by the last load
}

// ToggleResult reports the favorite state after ToggleFavorite.
type ToggleResult struct {
	IsFavorite bool `json:"is_favorite"`
}

// Open loads ownerID's favorites from adapter. Inconsistent stored data is
// repaired in memory and written back with the next change.
func Open(ctx context.Context, ownerID string, adapter store.Adapter, opts ...Option) (*Facade, error) {
	if ownerID == "" {
		return nil, domainerrors.Validation("owner ID is required")
	}
	o := buildOptions(opts)
	f := &Facade{
		ownerID: ownerID,
		adapter: adapter,
		opts:    o,
		logger:  o.logger.With("owner_id", ownerID),
	}
	if err := f.load(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// OwnerID returns the session owner.
func (f *Facade) OwnerID() string { return f.ownerID }

// Reload discards the in-memory state and reads it again from the store.
// Used when another writer changed the owner's keys.
func (f *Facade) Reload(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(ctx)
}

// Repairs describes the fixes the last load applied to stored data. They
// reach the store with the next change or with Persist.
func (f *Facade) Repairs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.repairs)
}

// Persist writes any in-memory repairs back to the store. It writes nothing
// when the stored data is already current.
func (f *Facade) Persist(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.update(ctx, func(*state) ([]sse.Event, error) { return nil, nil }); err != nil {
		return err
	}
	f.repairs = nil
	return nil
}

// Snapshot is a copy of one owner's data.
type Snapshot struct {
	OwnerID     string                `json:"owner_id"`
	Favorites   []domain.SavedListing `json:"favorites"`
	Folders     []domain.Folder       `json:"folders"`
	Assignments []domain.Assignment   `json:"assignments"`
}

// Snapshot returns a copy of the current state.
func (f *Facade) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.st.clone()
	return Snapshot{
		OwnerID:     f.ownerID,
		Favorites:   c.favorites,
		Folders:     c.folders,
		Assignments: c.assignments,
	}
}

func (f *Facade) load(ctx context.Context) error {
	payloads := make(map[string]string, 3)
	for _, key := range store.OwnerKeys(f.ownerID) {
		v, ok, err := f.adapter.Get(ctx, key)
		if err != nil {
			return domainerrors.Persistence(err, "load favorites")
		}
		if ok {
			payloads[key] = v
		}
	}

	st, err := decodeState(f.ownerID, payloads)
	if err != nil {
		return domainerrors.Persistence(err, "load favorites")
	}
	// A token another owner holds is cleared so repair issues a new one.
	indexed := make(map[string]bool, len(st.folders))
	for i := range st.folders {
		tok := st.folders[i].ShareToken
		if tok == "" {
			continue
		}
		owner, ok, err := f.adapter.Get(ctx, store.ShareKey(tok))
		if err != nil {
			return domainerrors.Persistence(err, "load share index")
		}
		switch {
		case ok && owner == f.ownerID:
			indexed[tok] = true
		case ok:
			st.folders[i].ShareToken = ""
		}
	}

	taken := st.tokens()
	reissue := func() (string, error) {
		tok, err := f.newShareToken(ctx, taken)
		if err == nil {
			taken[tok] = true
		}
		return tok, err
	}
	fixes, err := st.repair(f.ownerID, reissue)
	if err != nil {
		return err
	}
	for _, fix := range fixes {
		f.logger.Warn("repaired stored favorites", "fix", fix)
	}

	f.st = st
	f.persisted = payloads
	f.indexed = indexed
	f.repairs = fixes
	f.logger.Debug("favorites loaded",
		"favorites", len(st.favorites), "folders", len(st.folders))
	return nil
}

// update runs one transaction. mutate edits next and returns the events to
// emit on success. Callers hold f.mu.
func (f *Facade) update(ctx context.Context, mutate func(next *state) ([]sse.Event, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := f.st.clone()
	events, err := mutate(next)
	if err != nil {
		return err
	}

	if err := next.checkInvariants(f.ownerID); err != nil {
		f.logger.Error("refusing to write inconsistent favorites", "error", err)
		return domainerrors.Internalf("favorites invariant violated: %v", err)
	}

	payloads, err := next.encode(f.ownerID)
	if err != nil {
		return domainerrors.Internalf("encode favorites: %v", err)
	}

	var mutations []store.Mutation
	for _, key := range store.OwnerKeys(f.ownerID) {
		if prev, ok := f.persisted[key]; !ok || prev != payloads[key] {
			mutations = append(mutations, store.Set(key, payloads[key]))
		}
	}

	before, after := f.indexed, next.tokens()
	for _, tok := range slices.Sorted(maps.Keys(before)) {
		if !after[tok] {
			mutations = append(mutations, store.Remove(store.ShareKey(tok)))
		}
	}
	for _, tok := range slices.Sorted(maps.Keys(after)) {
		if !before[tok] {
			mutations = append(mutations, store.Set(store.ShareKey(tok), f.ownerID))
		}
	}

	if len(mutations) > 0 {
		if err := f.adapter.Apply(ctx, mutations); err != nil {
			f.logger.Error("favorites write failed, state unchanged", "error", err)
			return domainerrors.Persistence(err, "save favorites")
		}
	}

	f.st = next
	f.persisted = payloads
	f.indexed = after
	for _, e := range events {
		f.opts.emitter.Emit(e)
	}
	return nil
}

// newShareToken returns a token not present in the global share index.
func (f *Facade) newShareToken(ctx context.Context, taken map[string]bool) (string, error) {
	for range shareTokenAttempts {
		tok, err := f.opts.newToken()
		if err != nil {
			return "", domainerrors.Internalf("generate share token: %v", err)
		}
		if taken[tok] {
			continue
		}
		_, exists, err := f.adapter.Get(ctx, store.ShareKey(tok))
		if err != nil {
			return "", domainerrors.Persistence(err, "check share token")
		}
		if !exists {
			return tok, nil
		}
	}
	return "", domainerrors.Conflict("could not allocate a unique share token")
}

// Repository returns the saved-listings view of this session.
func (f *Facade) Repository() *Repository { return &Repository{f: f} }

// Registry returns the folders view of this session.
func (f *Facade) Registry() *Registry { return &Registry{f: f} }

// Index returns the assignments view of this session.
func (f *Facade) Index() *Index { return &Index{f: f} }

// ShareLinks returns the share-link view of this session.
func (f *Facade) ShareLinks() *ShareLinks { return &ShareLinks{f: f} }

// ToggleFavorite saves listingID if it is not saved and removes it otherwise.
func (f *Facade) ToggleFavorite(ctx context.Context, listingID string) (ToggleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	listingID = normalize.Text(listingID)
	if f.st.favoriteIndex(listingID) >= 0 {
		if err := f.removeLocked(ctx, listingID); err != nil {
			return ToggleResult{IsFavorite: true}, err
		}
		return ToggleResult{IsFavorite: false}, nil
	}
	if _, err := f.addLocked(ctx, listingID, nil); err != nil {
		return ToggleResult{IsFavorite: false}, err
	}
	return ToggleResult{IsFavorite: true}, nil
}

// MoveToFolder assigns a saved listing to folderID, or unfiles it when
// folderID is nil.
func (f *Facade) MoveToFolder(ctx context.Context, listingID string, folderID *string) error {
	return f.Index().Assign(ctx, listingID, folderID)
}

// FolderSummaries returns every folder with its current item count, in
// creation order.
func (f *Facade) FolderSummaries() []domain.FolderSummary {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := f.st.counts()
	out := make([]domain.FolderSummary, len(f.st.folders))
	for i, folder := range f.st.folders {
		out[i] = domain.FolderSummary{Folder: folder, ItemCount: counts[folder.ID]}
	}
	return out
}

// FilteredView returns saved listing IDs within scope whose category matches
// category ignoring case. An empty category keeps everything in scope;
// listings the catalog does not know never match a category.
func (f *Facade) FilteredView(ctx context.Context, scope domain.FolderScope, category string) ([]string, error) {
	f.mu.Lock()
	var ids []string
	switch scope.Kind {
	case domain.ScopeAll:
		ids = make([]string, len(f.st.favorites))
		for i, fav := range f.st.favorites {
			ids[i] = fav.ListingID
		}
	case domain.ScopeUnfiled:
		ids = f.st.itemsIn(nil)
	case domain.ScopeFolder:
		if f.st.folderIndex(scope.FolderID) < 0 {
			f.mu.Unlock()
			return nil, domainerrors.NotFoundf("folder %s not found", scope.FolderID)
		}
		ids = f.st.itemsIn(&scope.FolderID)
	default:
		f.mu.Unlock()
		return nil, domainerrors.Validationf("unknown folder scope %d", scope.Kind)
	}
	f.mu.Unlock()

	category = normalize.Text(category)
	if category == "" || len(ids) == 0 {
		return ids, nil
	}

	found, err := f.opts.catalog.Listings(ctx, ids)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "look up listings")
	}

	out := make([]string, 0, len(ids))
	for _, lid := range ids {
		if l, ok := found[lid]; ok && normalize.SameCategory(l.Category, category) {
			out = append(out, lid)
		}
	}
	return out, nil
}

// AddToFavorites saves a listing, optionally straight into a folder.
func (f *Facade) AddToFavorites(ctx context.Context, listingID string, folderID *string) (*domain.SavedListing, error) {
	return f.Repository().Add(ctx, listingID, folderID)
}

// RemoveFromFavorites unsaves a listing.
func (f *Facade) RemoveFromFavorites(ctx context.Context, listingID string) error {
	return f.Repository().Remove(ctx, listingID)
}

// CreateFolder creates a folder.
func (f *Facade) CreateFolder(ctx context.Context, in FolderInput) (*domain.Folder, error) {
	return f.Registry().Create(ctx, in)
}

// UpdateFolder applies a partial update to a folder.
func (f *Facade) UpdateFolder(ctx context.Context, folderID string, patch domain.FolderPatch) (*domain.Folder, error) {
	return f.Registry().Update(ctx, folderID, patch)
}

// DeleteFolder deletes a folder; its listings become unfiled.
func (f *Facade) DeleteFolder(ctx context.Context, folderID string) error {
	return f.Registry().Delete(ctx, folderID)
}

// ToggleFolderPublic flips whether a folder's share link resolves.
func (f *Facade) ToggleFolderPublic(ctx context.Context, folderID string) (*domain.Folder, error) {
	return f.ShareLinks().TogglePublic(ctx, folderID)
}
