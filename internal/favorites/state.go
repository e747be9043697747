package favorites

import (
	"encoding/json/v2"
	"fmt"
	"slices"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	"github.com/hermanshu/targ-site-sub000/internal/store"
)

// state is one owner's complete favorites data. Mutations always work on a
// clone; the session swaps it in only after the write succeeded.
type state struct {
	favorites   []domain.SavedListing
	folders     []domain.Folder
	assignments []domain.Assignment
}

func (s *state) clone() *state {
	c := &state{
		favorites:   slices.Clone(s.favorites),
		folders:     slices.Clone(s.folders),
		assignments: make([]domain.Assignment, len(s.assignments)),
	}
	for i, a := range s.assignments {
		c.assignments[i] = domain.Assignment{ListingID: a.ListingID, FolderID: copyID(a.FolderID)}
	}
	return c
}

func copyID(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (s *state) favoriteIndex(listingID string) int {
	return slices.IndexFunc(s.favorites, func(f domain.SavedListing) bool {
		return f.ListingID == listingID
	})
}

func (s *state) folderIndex(folderID string) int {
	return slices.IndexFunc(s.folders, func(f domain.Folder) bool {
		return f.ID == folderID
	})
}

func (s *state) assignmentIndex(listingID string) int {
	return slices.IndexFunc(s.assignments, func(a domain.Assignment) bool {
		return a.ListingID == listingID
	})
}

func (s *state) folder(folderID string) (*domain.Folder, bool) {
	i := s.folderIndex(folderID)
	if i < 0 {
		return nil, false
	}
	return &s.folders[i], true
}

// itemsIn returns the listings assigned to folderID, or the unfiled ones when
// folderID is nil, in favorites order.
func (s *state) itemsIn(folderID *string) []string {
	items := []string{}
	for _, a := range s.assignments {
		if folderID == nil && a.Unfiled() || folderID != nil && a.InFolder(*folderID) {
			items = append(items, a.ListingID)
		}
	}
	return items
}

func (s *state) counts() map[string]int {
	counts := make(map[string]int, len(s.folders))
	for _, a := range s.assignments {
		if a.FolderID != nil {
			counts[*a.FolderID]++
		}
	}
	return counts
}

func (s *state) tokens() map[string]bool {
	tokens := make(map[string]bool, len(s.folders))
	for _, f := range s.folders {
		tokens[f.ShareToken] = true
	}
	return tokens
}

// encode serialises the state into the payload stored under each owner key.
func (s *state) encode(ownerID string) (map[string]string, error) {
	out := make(map[string]string, 3)
	for key, v := range map[string]any{
		store.FavoritesKey(ownerID):   s.favorites,
		store.FoldersKey(ownerID):     s.folders,
		store.AssignmentsKey(ownerID): s.assignments,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		out[key] = string(data)
	}
	return out, nil
}

// decodeState parses stored payloads. Missing keys decode as empty.
func decodeState(ownerID string, payloads map[string]string) (*state, error) {
	st := &state{}
	targets := map[string]any{
		store.FavoritesKey(ownerID):   &st.favorites,
		store.FoldersKey(ownerID):     &st.folders,
		store.AssignmentsKey(ownerID): &st.assignments,
	}
	for key, dst := range targets {
		raw, ok := payloads[key]
		if !ok || raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	return st, nil
}

// repair brings loaded data back in line with the invariants and describes
// each change. Data written by this package never needs repair; stored data
// edited by hand or by an older writer might.
func (s *state) repair(ownerID string, newToken func() (string, error)) ([]string, error) {
	var fixes []string

	seen := make(map[string]bool, len(s.favorites))
	favs := s.favorites[:0]
	for _, f := range s.favorites {
		if f.ListingID == "" || seen[f.ListingID] {
			fixes = append(fixes, "dropped duplicate or empty saved listing "+f.ListingID)
			continue
		}
		seen[f.ListingID] = true
		if f.OwnerID != ownerID {
			f.OwnerID = ownerID
			fixes = append(fixes, "reassigned saved listing "+f.ListingID+" to owner")
		}
		favs = append(favs, f)
	}
	s.favorites = favs

	folderSeen := make(map[string]bool, len(s.folders))
	tokenSeen := make(map[string]bool, len(s.folders))
	folders := s.folders[:0]
	for _, f := range s.folders {
		if f.ID == "" || folderSeen[f.ID] {
			fixes = append(fixes, "dropped duplicate or empty folder "+f.ID)
			continue
		}
		folderSeen[f.ID] = true
		if f.OwnerID != ownerID {
			f.OwnerID = ownerID
			fixes = append(fixes, "reassigned folder "+f.ID+" to owner")
		}
		if f.ShareToken == "" || tokenSeen[f.ShareToken] {
			tok, err := newToken()
			if err != nil {
				return nil, err
			}
			f.ShareToken = tok
			fixes = append(fixes, "issued new share token for folder "+f.ID)
		}
		tokenSeen[f.ShareToken] = true
		folders = append(folders, f)
	}
	s.folders = folders

	byListing := make(map[string]domain.Assignment, len(s.assignments))
	for _, a := range s.assignments {
		if !seen[a.ListingID] {
			fixes = append(fixes, "dropped assignment for unsaved listing "+a.ListingID)
			continue
		}
		if _, dup := byListing[a.ListingID]; dup {
			fixes = append(fixes, "dropped duplicate assignment for "+a.ListingID)
			continue
		}
		if a.FolderID != nil && !folderSeen[*a.FolderID] {
			fixes = append(fixes, "unfiled "+a.ListingID+" from missing folder "+*a.FolderID)
			a.FolderID = nil
		}
		byListing[a.ListingID] = a
	}

	// Rebuild in favorites order so every saved listing has exactly one row.
	assignments := make([]domain.Assignment, 0, len(s.favorites))
	for _, f := range s.favorites {
		a, ok := byListing[f.ListingID]
		if !ok {
			a = domain.Assignment{ListingID: f.ListingID}
			fixes = append(fixes, "added missing assignment for "+f.ListingID)
		}
		assignments = append(assignments, a)
	}
	if !slices.EqualFunc(assignments, s.assignments, sameAssignment) {
		s.assignments = assignments
	}

	return fixes, nil
}

func sameAssignment(a, b domain.Assignment) bool {
	if a.ListingID != b.ListingID {
		return false
	}
	if a.FolderID == nil || b.FolderID == nil {
		return a.FolderID == nil && b.FolderID == nil
	}
	return *a.FolderID == *b.FolderID
}

// checkInvariants verifies a state before it is written.
func (s *state) checkInvariants(ownerID string) error {
	saved := make(map[string]bool, len(s.favorites))
	for _, f := range s.favorites {
		if saved[f.ListingID] {
			return fmt.Errorf("listing %s saved twice", f.ListingID)
		}
		if f.OwnerID != ownerID {
			return fmt.Errorf("saved listing %s belongs to %s", f.ListingID, f.OwnerID)
		}
		saved[f.ListingID] = true
	}

	folders := make(map[string]bool, len(s.folders))
	tokens := make(map[string]bool, len(s.folders))
	for _, f := range s.folders {
		if folders[f.ID] {
			return fmt.Errorf("folder %s present twice", f.ID)
		}
		if f.OwnerID != ownerID {
			return fmt.Errorf("folder %s belongs to %s", f.ID, f.OwnerID)
		}
		if f.ShareToken == "" || tokens[f.ShareToken] {
			return fmt.Errorf("folder %s has a missing or duplicate share token", f.ID)
		}
		folders[f.ID] = true
		tokens[f.ShareToken] = true
	}

	assigned := make(map[string]bool, len(s.assignments))
	for _, a := range s.assignments {
		if !saved[a.ListingID] {
			return fmt.Errorf("assignment for unsaved listing %s", a.ListingID)
		}
		if assigned[a.ListingID] {
			return fmt.Errorf("listing %s assigned twice", a.ListingID)
		}
		if a.FolderID != nil && !folders[*a.FolderID] {
			return fmt.Errorf("listing %s assigned to missing folder %s", a.ListingID, *a.FolderID)
		}
		assigned[a.ListingID] = true
	}
	if len(assigned) != len(saved) {
		return fmt.Errorf("%d saved listings but %d assignments", len(saved), len(assigned))
	}
	return nil
}
