package domain

import (
	"time"
)

// DefaultFolderColor is used when a folder is created without a color.
const DefaultFolderColor = "#6b7280"

// Limits on folder text, counted in characters.
const (
	MaxFolderNameLength        = 100
	MaxFolderDescriptionLength = 500
)

// SavedListing records that an owner has marked a listing as a favorite.
// At most one exists per (OwnerID, ListingID).
type SavedListing struct {
	SavedAt   time.Time `json:"saved_at"`
	ListingID string    `json:"listing_id"`
	OwnerID   string    `json:"owner_id"`
}

// Folder is a user-named grouping of saved listings. Membership is not
// stored on the folder; it lives in the owner's assignments.
type Folder struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	ShareToken  string    `json:"share_token"`
	IsPublic    bool      `json:"is_public"`
}

// Clone returns a copy of the folder.
func (f *Folder) Clone() *Folder {
	c := *f
	return &c
}

// Assignment places a saved listing in a folder. A nil FolderID means the
// listing is unfiled.
type Assignment struct {
	FolderID  *string `json:"folder_id"`
	ListingID string  `json:"listing_id"`
}

// Unfiled reports whether the listing is not in any folder.
func (a Assignment) Unfiled() bool {
	return a.FolderID == nil
}

// InFolder reports whether the listing is assigned to folderID.
func (a Assignment) InFolder(folderID string) bool {
	return a.FolderID != nil && *a.FolderID == folderID
}

// FolderSummary is a folder together with the number of listings in it.
type FolderSummary struct {
	Folder    Folder `json:"folder"`
	ItemCount int    `json:"item_count"`
}

// FolderPatch describes a partial folder update. Nil fields are unchanged.
type FolderPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsPublic    *bool   `json:"is_public,omitempty"`
}

// Listing is the slice of a marketplace listing this subsystem reads.
// It is owned by the listings service.
type Listing struct {
	ID         string `json:"id"`
	Category   string `json:"category"`
	Title      string `json:"title"`
	Currency   string `json:"currency,omitempty"`
	City       string `json:"city,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	PriceCents int64  `json:"price_cents,omitempty"`
}

// ScopeKind selects which favorites a filtered view starts from.
type ScopeKind int

const (
	// ScopeAll covers every saved listing.
	ScopeAll ScopeKind = iota
	// ScopeUnfiled covers saved listings without a folder.
	ScopeUnfiled
	// ScopeFolder covers the listings in one folder.
	ScopeFolder
)

// String returns the scope name used in query parameters.
func (k ScopeKind) String() string {
	switch k {
	case ScopeAll:
		return "all"
	case ScopeUnfiled:
		return "unfiled"
	case ScopeFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// FolderScope narrows a filtered view.
type FolderScope struct {
	FolderID string
	Kind     ScopeKind
}

// AllFavorites is the scope covering every saved listing.
func AllFavorites() FolderScope { return FolderScope{Kind: ScopeAll} }

// UnfiledFavorites is the scope covering listings without a folder.
func UnfiledFavorites() FolderScope { return FolderScope{Kind: ScopeUnfiled} }

// InFolder is the scope covering one folder's listings.
func InFolder(folderID string) FolderScope {
	return FolderScope{Kind: ScopeFolder, FolderID: folderID}
}

// ParseFolderScope builds a scope from its query form: "all" (or empty),
// "unfiled", or a folder ID.
func ParseFolderScope(s string) FolderScope {
	switch s {
	case "", "all":
		return AllFavorites()
	case "unfiled":
		return UnfiledFavorites()
	default:
		return InFolder(s)
	}
}

// ChangeKind describes what happened to a folder.
type ChangeKind string

// Folder change kinds.
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)
