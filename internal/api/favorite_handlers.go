package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	"github.com/hermanshu/targ-site-sub000/internal/favorites"
)

func (s *Server) registerFavoriteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/favorites",
		Summary:     "List favorites",
		Description: "Returns saved listings, optionally narrowed to a folder scope and a category",
		Tags:        []string{"Favorites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addFavorite",
		Method:        http.MethodPost,
		Path:          "/api/v1/favorites",
		Summary:       "Save listing",
		Description:   "Saves a listing, optionally into a folder. Saving an already saved listing is not an error.",
		Tags:          []string{"Favorites"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleAddFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/favorites/{listingID}/toggle",
		Summary:     "Toggle favorite",
		Description: "Saves the listing if it is not saved and removes it otherwise",
		Tags:        []string{"Favorites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeFavorite",
		Method:        http.MethodDelete,
		Path:          "/api/v1/favorites/{listingID}",
		Summary:       "Remove favorite",
		Description:   "Unsaves a listing. Removing a listing that is not saved succeeds.",
		Tags:          []string{"Favorites"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveFavorite",
		Method:      http.MethodPut,
		Path:        "/api/v1/favorites/{listingID}/folder",
		Summary:     "Move to folder",
		Description: "Moves a saved listing into a folder, or to unfiled when folder_id is null",
		Tags:        []string{"Favorites"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMoveFavorite)
}

// === DTOs ===

// FavoriteResponse is one saved listing in API responses.
type FavoriteResponse struct {
	ListingID string    `json:"listing_id" doc:"Listing ID"`
	FolderID  *string   `json:"folder_id" doc:"Folder ID, null when unfiled"`
	SavedAt   time.Time `json:"saved_at" doc:"When the listing was saved"`
}

// ListFavoritesInput contains filters for listing favorites.
type ListFavoritesInput struct {
	Folder   string `query:"folder" doc:"Folder scope: empty for all, 'unfiled', or a folder ID"`
	Category string `query:"category" doc:"Only listings in this category (case-insensitive)"`
}

// ListFavoritesResponse contains saved listings.
type ListFavoritesResponse struct {
	Favorites []FavoriteResponse `json:"favorites" doc:"Saved listings, oldest first"`
}

// ListFavoritesOutput wraps the list favorites response for Huma.
type ListFavoritesOutput struct {
	Body ListFavoritesResponse
}

// AddFavoriteRequest is the request body for saving a listing.
type AddFavoriteRequest struct {
	ListingID string  `json:"listing_id" minLength:"1" doc:"Listing ID"`
	FolderID  *string `json:"folder_id,omitempty" nullable:"true" doc:"Folder to save into"`
}

// AddFavoriteInput wraps the add favorite request for Huma.
type AddFavoriteInput struct {
	Body AddFavoriteRequest
}

// FavoriteOutput wraps a saved listing for Huma.
type FavoriteOutput struct {
	Body FavoriteResponse
}

// ListingPathInput identifies a listing.
type ListingPathInput struct {
	ListingID string `path:"listingID" doc:"Listing ID"`
}

// ToggleFavoriteOutput wraps the toggle result for Huma.
type ToggleFavoriteOutput struct {
	Body favorites.ToggleResult
}

// MoveFavoriteRequest is the request body for moving a listing.
type MoveFavoriteRequest struct {
	FolderID *string `json:"folder_id" required:"false" nullable:"true" doc:"Target folder ID, null for unfiled"`
}

// MoveFavoriteInput wraps the move request for Huma.
type MoveFavoriteInput struct {
	ListingID string `path:"listingID" doc:"Listing ID"`
	Body      MoveFavoriteRequest
}

// === Handlers ===

// session returns the authenticated owner's favorites session.
func (s *Server) session(ctx context.Context) (*favorites.Facade, error) {
	ownerID, err := GetOwnerID(ctx)
	if err != nil {
		return nil, err
	}
	return s.services.Sessions.Get(ctx, ownerID)
}

func (s *Server) handleListFavorites(ctx context.Context, input *ListFavoritesInput) (*ListFavoritesOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := f.FilteredView(ctx, domain.ParseFolderScope(input.Folder), input.Category)
	if err != nil {
		return nil, err
	}

	return &ListFavoritesOutput{Body: ListFavoritesResponse{Favorites: favoriteResponses(f, ids)}}, nil
}

func (s *Server) handleAddFavorite(ctx context.Context, input *AddFavoriteInput) (*FavoriteOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	saved, err := f.AddToFavorites(ctx, input.Body.ListingID, input.Body.FolderID)
	if err != nil {
		return nil, err
	}

	folderID, err := f.Index().FolderOf(saved.ListingID)
	if err != nil {
		return nil, err
	}
	return &FavoriteOutput{Body: FavoriteResponse{
		ListingID: saved.ListingID,
		FolderID:  folderID,
		SavedAt:   saved.SavedAt,
	}}, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *ListingPathInput) (*ToggleFavoriteOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	result, err := f.ToggleFavorite(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	return &ToggleFavoriteOutput{Body: result}, nil
}

func (s *Server) handleRemoveFavorite(ctx context.Context, input *ListingPathInput) (*struct{}, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.RemoveFromFavorites(ctx, input.ListingID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleMoveFavorite(ctx context.Context, input *MoveFavoriteInput) (*FavoriteOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.MoveToFolder(ctx, input.ListingID, input.Body.FolderID); err != nil {
		return nil, err
	}

	out := favoriteResponses(f, []string{input.ListingID})
	if len(out) == 0 {
		return nil, huma.Error404NotFound("listing is not saved")
	}
	return &FavoriteOutput{Body: out[0]}, nil
}

// favoriteResponses builds responses for ids in the given order.
func favoriteResponses(f *favorites.Facade, ids []string) []FavoriteResponse {
	saved := make(map[string]domain.SavedListing)
	for _, s := range f.Repository().List() {
		saved[s.ListingID] = s
	}

	out := make([]FavoriteResponse, 0, len(ids))
	for _, lid := range ids {
		s, ok := saved[lid]
		if !ok {
			continue
		}
		folderID, err := f.Index().FolderOf(lid)
		if err != nil {
			continue
		}
		out = append(out, FavoriteResponse{ListingID: lid, FolderID: folderID, SavedAt: s.SavedAt})
	}
	return out
}
