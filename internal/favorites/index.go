package favorites

import (
	"context"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/normalize"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
)

// Index maps each saved listing to at most one folder. It is the only record
// of folder membership.
type Index struct {
	f *Facade
}

// Assign moves a saved listing to folderID, or unfiles it when folderID is
// nil. The listing must be saved and the folder must exist.
func (x *Index) Assign(ctx context.Context, listingID string, folderID *string) error {
	x.f.mu.Lock()
	defer x.f.mu.Unlock()
	return x.f.assignLocked(ctx, normalize.Text(listingID), folderID)
}

// FolderOf returns the listing's folder, nil when unfiled.
func (x *Index) FolderOf(listingID string) (*string, error) {
	x.f.mu.Lock()
	defer x.f.mu.Unlock()

	i := x.f.st.assignmentIndex(normalize.Text(listingID))
	if i < 0 {
		return nil, domainerrors.NotFoundf("listing %s is not saved", listingID)
	}
	return copyID(x.f.st.assignments[i].FolderID), nil
}

// ItemsOf returns the listings in folderID, in the order they were saved.
func (x *Index) ItemsOf(folderID string) ([]string, error) {
	x.f.mu.Lock()
	defer x.f.mu.Unlock()

	if x.f.st.folderIndex(folderID) < 0 {
		return nil, domainerrors.NotFoundf("folder %s not found", folderID)
	}
	return x.f.st.itemsIn(&folderID), nil
}

// ItemsUnfiled returns saved listings that are in no folder.
func (x *Index) ItemsUnfiled() []string {
	x.f.mu.Lock()
	defer x.f.mu.Unlock()
	return x.f.st.itemsIn(nil)
}

func (f *Facade) assignLocked(ctx context.Context, listingID string, folderID *string) error {
	i := f.st.assignmentIndex(listingID)
	if i < 0 || f.st.favoriteIndex(listingID) < 0 {
		return domainerrors.NotFoundf("listing %s is not saved", listingID)
	}
	if folderID != nil && f.st.folderIndex(*folderID) < 0 {
		return domainerrors.NotFoundf("folder %s not found", *folderID)
	}
	if sameAssignment(f.st.assignments[i], assignmentOf(listingID, folderID)) {
		return nil
	}

	err := f.update(ctx, func(next *state) ([]sse.Event, error) {
		j := next.assignmentIndex(listingID)
		next.assignments[j].FolderID = copyID(folderID)
		return []sse.Event{sse.NewAssignmentChangedEvent(f.ownerID, listingID, folderID)}, nil
	})
	if err != nil {
		return err
	}

	f.logger.Info("listing moved", "listing_id", listingID, "folder_id", derefOr(folderID, ""))
	return nil
}

// onFolderDeleted unfiles every listing in folderID and returns them.
func onFolderDeleted(next *state, folderID string) []string {
	var unfiled []string
	for i := range next.assignments {
		if next.assignments[i].InFolder(folderID) {
			next.assignments[i].FolderID = nil
			unfiled = append(unfiled, next.assignments[i].ListingID)
		}
	}
	return unfiled
}

func assignmentOf(listingID string, folderID *string) domain.Assignment {
	return domain.Assignment{ListingID: listingID, FolderID: folderID}
}
