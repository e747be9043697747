package favorites

import (
	"context"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/normalize"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
)

// Repository is the set of listings the owner has saved.
type Repository struct {
	f *Facade
}

// Add saves listingID. Saving an already saved listing returns the existing
// record; if folderID is given the listing is moved there in either case.
// A folderID that does not exist rejects the whole call.
func (r *Repository) Add(ctx context.Context, listingID string, folderID *string) (*domain.SavedListing, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.addLocked(ctx, normalize.Text(listingID), folderID)
}

// Remove unsaves listingID and drops its assignment. Removing a listing that
// is not saved does nothing.
func (r *Repository) Remove(ctx context.Context, listingID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.removeLocked(ctx, normalize.Text(listingID))
}

// Contains reports whether listingID is saved.
func (r *Repository) Contains(listingID string) bool {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.st.favoriteIndex(normalize.Text(listingID)) >= 0
}

// List returns saved listings, oldest first.
func (r *Repository) List() []domain.SavedListing {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	out := make([]domain.SavedListing, len(r.f.st.favorites))
	copy(out, r.f.st.favorites)
	return out
}

func (f *Facade) addLocked(ctx context.Context, listingID string, folderID *string) (*domain.SavedListing, error) {
	if listingID == "" {
		return nil, domainerrors.Validation("listing ID is required")
	}
	if folderID != nil && f.st.folderIndex(*folderID) < 0 {
		return nil, domainerrors.NotFoundf("folder %s not found", *folderID)
	}

	if i := f.st.favoriteIndex(listingID); i >= 0 {
		existing := f.st.favorites[i]
		if folderID != nil {
			if err := f.assignLocked(ctx, listingID, folderID); err != nil {
				return nil, err
			}
		}
		return &existing, nil
	}

	saved := domain.SavedListing{
		ListingID: listingID,
		OwnerID:   f.ownerID,
		SavedAt:   f.opts.now().UTC(),
	}
	err := f.update(ctx, func(next *state) ([]sse.Event, error) {
		next.favorites = append(next.favorites, saved)
		next.assignments = append(next.assignments, domain.Assignment{
			ListingID: listingID,
			FolderID:  copyID(folderID),
		})

		events := []sse.Event{sse.NewFavoriteChangedEvent(f.ownerID, listingID, true)}
		if folderID != nil {
			events = append(events, sse.NewAssignmentChangedEvent(f.ownerID, listingID, folderID))
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("listing saved", "listing_id", listingID, "folder_id", derefOr(folderID, ""))
	return &saved, nil
}

func (f *Facade) removeLocked(ctx context.Context, listingID string) error {
	if listingID == "" {
		return domainerrors.Validation("listing ID is required")
	}
	if f.st.favoriteIndex(listingID) < 0 {
		return nil
	}

	err := f.update(ctx, func(next *state) ([]sse.Event, error) {
		i := next.favoriteIndex(listingID)
		next.favorites = append(next.favorites[:i], next.favorites[i+1:]...)
		if j := next.assignmentIndex(listingID); j >= 0 {
			next.assignments = append(next.assignments[:j], next.assignments[j+1:]...)
		}
		return []sse.Event{sse.NewFavoriteChangedEvent(f.ownerID, listingID, false)}, nil
	})
	if err != nil {
		return err
	}

	f.logger.Info("listing unsaved", "listing_id", listingID)
	return nil
}

func derefOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
