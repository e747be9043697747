package favorites

import (
	"context"
	"sync"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/normalize"
)

// SelectorState is the phase of a "move to folder" interaction.
type SelectorState int

const (
	// SelectorIdle means no folder picker is open.
	SelectorIdle SelectorState = iota
	// SelectorSelecting means a picker is open for one listing.
	SelectorSelecting
)

// String returns the state name.
func (s SelectorState) String() string {
	if s == SelectorSelecting {
		return "selecting"
	}
	return "idle"
}

// FolderSelector drives the folder picker:
//
//	Idle --Open(L)--> Selecting(L) --Pick(F|nil)--> Idle
//	                  Selecting(L) --Dismiss------> Idle
//
// Pick moves the listing; Dismiss changes nothing. A failed Pick leaves the
// picker open.
type FolderSelector struct {
	mu        sync.Mutex
	facade    *Facade
	state     SelectorState
	listingID string
}

// NewFolderSelector creates an idle selector for facade.
func NewFolderSelector(facade *Facade) *FolderSelector {
	return &FolderSelector{facade: facade}
}

// Open starts selecting a folder for a saved listing and returns the folders
// to choose from. Opening while already selecting switches listings.
func (s *FolderSelector) Open(listingID string) ([]domain.FolderSummary, error) {
	listingID = normalize.Text(listingID)
	if !s.facade.Repository().Contains(listingID) {
		return nil, domainerrors.NotFoundf("listing %s is not saved", listingID)
	}

	s.mu.Lock()
	s.state = SelectorSelecting
	s.listingID = listingID
	s.mu.Unlock()

	return s.facade.FolderSummaries(), nil
}

// Pick moves the selected listing to folderID (nil unfiles it) and returns
// to idle.
func (s *FolderSelector) Pick(ctx context.Context, folderID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SelectorSelecting {
		return domainerrors.Validation("no listing is being moved")
	}
	if err := s.facade.MoveToFolder(ctx, s.listingID, folderID); err != nil {
		return err
	}
	s.state = SelectorIdle
	s.listingID = ""
	return nil
}

// Dismiss closes the picker without moving anything.
func (s *FolderSelector) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SelectorIdle
	s.listingID = ""
}

// State returns the current phase and, while selecting, the listing.
func (s *FolderSelector) State() (SelectorState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.listingID
}
