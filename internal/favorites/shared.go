package favorites

import (
	"context"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/id"
	"github.com/hermanshu/targ-site-sub000/internal/listings"
	"github.com/hermanshu/targ-site-sub000/internal/store"
)

// SharedFolder is what an anonymous visitor of a share link sees.
type SharedFolder struct {
	Folder     domain.Folder
	ListingIDs []string
	Listings   []domain.Listing // catalog entries for ListingIDs that exist
}

// SharedFolders resolves share tokens for anonymous visitors. It holds no
// session state and reads the store on every call, so visibility changes
// apply to the next request. It has no way to modify anything.
type SharedFolders struct {
	adapter store.Adapter
	catalog listings.Catalog
}

// NewSharedFolders creates a resolver. catalog may be nil.
func NewSharedFolders(adapter store.Adapter, catalog listings.Catalog) *SharedFolders {
	return &SharedFolders{adapter: adapter, catalog: catalog}
}

// Resolve returns the public folder carrying token. Unknown tokens and
// private folders are both NotFound.
func (s *SharedFolders) Resolve(ctx context.Context, token string) (*domain.Folder, error) {
	folder, _, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// Open resolves token and lists the folder's items.
func (s *SharedFolders) Open(ctx context.Context, token string) (*SharedFolder, error) {
	folder, st, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	shared := &SharedFolder{Folder: *folder, ListingIDs: st.itemsIn(&folder.ID)}
	if s.catalog == nil || len(shared.ListingIDs) == 0 {
		return shared, nil
	}

	found, err := s.catalog.Listings(ctx, shared.ListingIDs)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "look up listings")
	}
	for _, lid := range shared.ListingIDs {
		if l, ok := found[lid]; ok {
			shared.Listings = append(shared.Listings, l)
		}
	}
	return shared, nil
}

func (s *SharedFolders) resolve(ctx context.Context, token string) (*domain.Folder, *state, error) {
	notFound := domainerrors.NotFound("shared folder not found")
	if !id.IsShareToken(token) {
		return nil, nil, notFound
	}

	ownerID, ok, err := s.adapter.Get(ctx, store.ShareKey(token))
	if err != nil {
		return nil, nil, domainerrors.Persistence(err, "resolve share token")
	}
	if !ok {
		return nil, nil, notFound
	}

	payloads := make(map[string]string, 2)
	for _, key := range []string{store.FoldersKey(ownerID), store.AssignmentsKey(ownerID)} {
		v, ok, err := s.adapter.Get(ctx, key)
		if err != nil {
			return nil, nil, domainerrors.Persistence(err, "load shared folder")
		}
		if ok {
			payloads[key] = v
		}
	}
	st, err := decodeState(ownerID, payloads)
	if err != nil {
		return nil, nil, domainerrors.Persistence(err, "load shared folder")
	}

	for _, folder := range st.folders {
		if folder.ShareToken == token {
			if !folder.IsPublic {
				return nil, nil, notFound
			}
			return folder.Clone(), st, nil
		}
	}
	return nil, nil, notFound
}
