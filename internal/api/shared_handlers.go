package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
)

func (s *Server) registerSharedRoutes() {
	op := huma.Operation{
		OperationID: "getSharedFolder",
		Method:      http.MethodGet,
		Path:        "/api/v1/shared/{token}",
		Summary:     "Open shared folder",
		Description: "Returns a public folder by its share token. No authentication required; private folders are not found.",
		Tags:        []string{"Shared"},
	}
	if s.services.ShareLimiter != nil {
		op.Middlewares = huma.Middlewares{s.rateLimitMiddleware(s.services.ShareLimiter)}
	}
	huma.Register(s.api, op, s.handleGetSharedFolder)
}

// SharedFolderResponse is the read-only view of a shared folder.
type SharedFolderResponse struct {
	Name        string           `json:"name" doc:"Folder name"`
	Description string           `json:"description" doc:"Folder description"`
	Color       string           `json:"color" doc:"Display color as #rrggbb"`
	ListingIDs  []string         `json:"listing_ids" doc:"Listings in the folder"`
	Listings    []domain.Listing `json:"listings" doc:"Catalog details for listings that still exist"`
}

// SharedFolderInput identifies a shared folder.
type SharedFolderInput struct {
	Token string `path:"token" doc:"Share token"`
}

// SharedFolderOutput wraps the shared folder response for Huma.
type SharedFolderOutput struct {
	Body SharedFolderResponse
}

func (s *Server) handleGetSharedFolder(ctx context.Context, input *SharedFolderInput) (*SharedFolderOutput, error) {
	shared, err := s.shared.Open(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	resp := SharedFolderResponse{
		Name:        shared.Folder.Name,
		Description: shared.Folder.Description,
		Color:       shared.Folder.Color,
		ListingIDs:  shared.ListingIDs,
		Listings:    shared.Listings,
	}
	if resp.ListingIDs == nil {
		resp.ListingIDs = []string{}
	}
	if resp.Listings == nil {
		resp.Listings = []domain.Listing{}
	}
	return &SharedFolderOutput{Body: resp}, nil
}
