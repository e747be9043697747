package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	"github.com/hermanshu/targ-site-sub000/internal/favorites"
)

func (s *Server) registerFolderRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFolders",
		Method:      http.MethodGet,
		Path:        "/api/v1/folders",
		Summary:     "List folders",
		Description: "Returns the owner's folders with item counts, in creation order",
		Tags:        []string{"Folders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFolders)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createFolder",
		Method:        http.MethodPost,
		Path:          "/api/v1/folders",
		Summary:       "Create folder",
		Description:   "Creates a private folder",
		Tags:          []string{"Folders"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateFolder)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFolder",
		Method:      http.MethodGet,
		Path:        "/api/v1/folders/{id}",
		Summary:     "Get folder",
		Description: "Returns a folder with the listings assigned to it",
		Tags:        []string{"Folders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFolder)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateFolder",
		Method:      http.MethodPatch,
		Path:        "/api/v1/folders/{id}",
		Summary:     "Update folder",
		Description: "Changes the given folder fields; omitted fields are kept",
		Tags:        []string{"Folders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateFolder)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteFolder",
		Method:        http.MethodDelete,
		Path:          "/api/v1/folders/{id}",
		Summary:       "Delete folder",
		Description:   "Deletes a folder. Its listings stay saved and become unfiled.",
		Tags:          []string{"Folders"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteFolder)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFolderPublic",
		Method:      http.MethodPost,
		Path:        "/api/v1/folders/{id}/public/toggle",
		Summary:     "Toggle folder visibility",
		Description: "Flips whether the folder's share link resolves",
		Tags:        []string{"Folders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleFolderPublic)

	huma.Register(s.api, huma.Operation{
		OperationID: "regenerateShareToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/folders/{id}/share-token",
		Summary:     "Regenerate share token",
		Description: "Replaces the folder's share token. Links built from the old token stop resolving.",
		Tags:        []string{"Folders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRegenerateShareToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShareLink",
		Method:      http.MethodGet,
		Path:        "/api/v1/folders/{id}/share-link",
		Summary:     "Get share link",
		Description: "Returns the folder's share URL and whether it currently resolves",
		Tags:        []string{"Folders"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetShareLink)
}

// === DTOs ===

// FolderResponse is a folder in API responses.
type FolderResponse struct {
	ID          string    `json:"id" doc:"Folder ID"`
	Name        string    `json:"name" doc:"Folder name"`
	Description string    `json:"description" doc:"Folder description"`
	Color       string    `json:"color" doc:"Display color as #rrggbb"`
	IsPublic    bool      `json:"is_public" doc:"Whether the share link resolves"`
	ShareToken  string    `json:"share_token" doc:"Token used in the share link"`
	ItemCount   int       `json:"item_count" doc:"Number of listings in the folder"`
	CreatedAt   time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

// FolderDetailResponse is a folder with its listing IDs.
type FolderDetailResponse struct {
	FolderResponse
	ListingIDs []string `json:"listing_ids" doc:"Listings assigned to the folder, oldest saved first"`
}

// ListFoldersResponse contains folders.
type ListFoldersResponse struct {
	Folders []FolderResponse `json:"folders" doc:"Folders"`
}

// ListFoldersOutput wraps the list folders response for Huma.
type ListFoldersOutput struct {
	Body ListFoldersResponse
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"100" doc:"Folder name"`
	Description string `json:"description,omitempty" maxLength:"500" doc:"Folder description"`
	Color       string `json:"color,omitempty" doc:"Display color as #rrggbb"`
}

// CreateFolderInput wraps the create folder request for Huma.
type CreateFolderInput struct {
	Body CreateFolderRequest
}

// FolderOutput wraps a folder for Huma.
type FolderOutput struct {
	Body FolderResponse
}

// FolderPathInput identifies a folder.
type FolderPathInput struct {
	ID string `path:"id" doc:"Folder ID"`
}

// FolderDetailOutput wraps a folder with its listings for Huma.
type FolderDetailOutput struct {
	Body FolderDetailResponse
}

// UpdateFolderRequest is the request body for updating a folder.
type UpdateFolderRequest struct {
	Name        *string `json:"name,omitempty" doc:"New name"`
	Description *string `json:"description,omitempty" doc:"New description"`
	Color       *string `json:"color,omitempty" doc:"New display color as #rrggbb"`
	IsPublic    *bool   `json:"is_public,omitempty" doc:"New visibility"`
}

// UpdateFolderInput wraps the update folder request for Huma.
type UpdateFolderInput struct {
	ID   string `path:"id" doc:"Folder ID"`
	Body UpdateFolderRequest
}

// ShareLinkResponse describes a folder's share link.
type ShareLinkResponse struct {
	URL      string `json:"url,omitempty" doc:"Share URL, omitted while the folder is private"`
	Token    string `json:"token" doc:"Share token"`
	IsPublic bool   `json:"is_public" doc:"Whether the link currently resolves"`
}

// ShareLinkOutput wraps the share link response for Huma.
type ShareLinkOutput struct {
	Body ShareLinkResponse
}

// === Handlers ===

func (s *Server) handleListFolders(ctx context.Context, _ *struct{}) (*ListFoldersOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	summaries := f.FolderSummaries()
	resp := ListFoldersResponse{Folders: make([]FolderResponse, 0, len(summaries))}
	for _, sum := range summaries {
		resp.Folders = append(resp.Folders, folderResponse(&sum.Folder, sum.ItemCount))
	}
	return &ListFoldersOutput{Body: resp}, nil
}

func (s *Server) handleCreateFolder(ctx context.Context, input *CreateFolderInput) (*FolderOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := f.CreateFolder(ctx, favorites.FolderInput{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Color:       input.Body.Color,
	})
	if err != nil {
		return nil, err
	}
	return &FolderOutput{Body: folderResponse(folder, 0)}, nil
}

func (s *Server) handleGetFolder(ctx context.Context, input *FolderPathInput) (*FolderDetailOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := f.Registry().Get(input.ID)
	if err != nil {
		return nil, err
	}
	items, err := f.Index().ItemsOf(input.ID)
	if err != nil {
		return nil, err
	}

	return &FolderDetailOutput{Body: FolderDetailResponse{
		FolderResponse: folderResponse(folder, len(items)),
		ListingIDs:     items,
	}}, nil
}

func (s *Server) handleUpdateFolder(ctx context.Context, input *UpdateFolderInput) (*FolderOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := f.UpdateFolder(ctx, input.ID, domain.FolderPatch{
		Name:        input.Body.Name,
		Description: input.Body.Description,
		Color:       input.Body.Color,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return s.folderOutput(f, folder)
}

func (s *Server) handleDeleteFolder(ctx context.Context, input *FolderPathInput) (*struct{}, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	if err := f.DeleteFolder(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleToggleFolderPublic(ctx context.Context, input *FolderPathInput) (*FolderOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := f.ToggleFolderPublic(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return s.folderOutput(f, folder)
}

func (s *Server) handleRegenerateShareToken(ctx context.Context, input *FolderPathInput) (*FolderOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := f.ShareLinks().RegenerateToken(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return s.folderOutput(f, folder)
}

func (s *Server) handleGetShareLink(ctx context.Context, input *FolderPathInput) (*ShareLinkOutput, error) {
	f, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	folder, err := f.Registry().Get(input.ID)
	if err != nil {
		return nil, err
	}
	resp := ShareLinkResponse{Token: folder.ShareToken, IsPublic: folder.IsPublic}
	if folder.IsPublic {
		if resp.URL, err = f.ShareLinks().BuildLink(input.ID); err != nil {
			return nil, err
		}
	}
	return &ShareLinkOutput{Body: resp}, nil
}

func (s *Server) folderOutput(f *favorites.Facade, folder *domain.Folder) (*FolderOutput, error) {
	items, err := f.Index().ItemsOf(folder.ID)
	if err != nil {
		return nil, err
	}
	return &FolderOutput{Body: folderResponse(folder, len(items))}, nil
}

func folderResponse(folder *domain.Folder, count int) FolderResponse {
	return FolderResponse{
		ID:          folder.ID,
		Name:        folder.Name,
		Description: folder.Description,
		Color:       folder.Color,
		IsPublic:    folder.IsPublic,
		ShareToken:  folder.ShareToken,
		ItemCount:   count,
		CreatedAt:   folder.CreatedAt,
		UpdatedAt:   folder.UpdatedAt,
	}
}
