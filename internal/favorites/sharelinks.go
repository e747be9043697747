package favorites

import (
	"context"
	"strings"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
)

// ShareLinks manages folder share tokens and public visibility. A token is
// stable until RegenerateToken; visibility is toggled independently.
type ShareLinks struct {
	f *Facade
}

// TokenFor returns the folder's share token.
func (s *ShareLinks) TokenFor(folderID string) (string, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	folder, ok := s.f.st.folder(folderID)
	if !ok {
		return "", domainerrors.NotFoundf("folder %s not found", folderID)
	}
	return folder.ShareToken, nil
}

// BuildLink returns the public URL of a folder. Private folders have no link.
func (s *ShareLinks) BuildLink(folderID string) (string, error) {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()

	folder, ok := s.f.st.folder(folderID)
	if !ok {
		return "", domainerrors.NotFoundf("folder %s not found", folderID)
	}
	if !folder.IsPublic {
		return "", domainerrors.Validation("folder is private")
	}
	return strings.TrimRight(s.f.opts.baseURL, "/") + "/shared/" + folder.ShareToken, nil
}

// TogglePublic flips the folder's visibility and keeps its token.
func (s *ShareLinks) TogglePublic(ctx context.Context, folderID string) (*domain.Folder, error) {
	f := s.f
	f.mu.Lock()
	defer f.mu.Unlock()

	folder, ok := f.st.folder(folderID)
	if !ok {
		return nil, domainerrors.NotFoundf("folder %s not found", folderID)
	}

	updated := *folder
	updated.IsPublic = !updated.IsPublic
	updated.UpdatedAt = f.opts.now().UTC()
	if err := f.replaceFolderLocked(ctx, updated); err != nil {
		return nil, err
	}

	f.logger.Info("folder visibility changed", "folder_id", folderID, "is_public", updated.IsPublic)
	return updated.Clone(), nil
}

// RegenerateToken gives the folder a new token. Links built from the old
// token stop resolving at once.
func (s *ShareLinks) RegenerateToken(ctx context.Context, folderID string) (*domain.Folder, error) {
	f := s.f
	f.mu.Lock()
	defer f.mu.Unlock()

	folder, ok := f.st.folder(folderID)
	if !ok {
		return nil, domainerrors.NotFoundf("folder %s not found", folderID)
	}

	token, err := f.newShareToken(ctx, f.st.tokens())
	if err != nil {
		return nil, err
	}

	updated := *folder
	updated.ShareToken = token
	updated.UpdatedAt = f.opts.now().UTC()
	err = f.update(ctx, func(next *state) ([]sse.Event, error) {
		next.folders[next.folderIndex(folderID)] = updated
		return []sse.Event{sse.NewFolderChangedEvent(updated, domain.ChangeUpdated)}, nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("share token regenerated", "folder_id", folderID)
	return updated.Clone(), nil
}
