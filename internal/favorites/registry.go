package favorites

import (
	"context"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/normalize"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
)

// FolderInput is the caller-supplied part of a new folder.
type FolderInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// Registry manages the owner's folders. Folder names need not be unique.
type Registry struct {
	f *Facade
}

// Create validates in and adds a private folder with a fresh share token.
func (r *Registry) Create(ctx context.Context, in FolderInput) (*domain.Folder, error) {
	f := r.f
	f.mu.Lock()
	defer f.mu.Unlock()

	in.Name = normalize.Text(in.Name)
	in.Description = normalize.Multiline(in.Description)
	in.Color = normalize.Color(in.Color)
	if err := f.opts.validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Color == "" {
		in.Color = domain.DefaultFolderColor
	}

	folderID, err := f.opts.newID()
	if err != nil {
		return nil, domainerrors.Internalf("generate folder ID: %v", err)
	}
	token, err := f.newShareToken(ctx, f.st.tokens())
	if err != nil {
		return nil, err
	}

	now := f.opts.now().UTC()
	folder := domain.Folder{
		ID:          folderID,
		OwnerID:     f.ownerID,
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		ShareToken:  token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = f.update(ctx, func(next *state) ([]sse.Event, error) {
		next.folders = append(next.folders, folder)
		return []sse.Event{sse.NewFolderChangedEvent(folder, domain.ChangeCreated)}, nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info("folder created", "folder_id", folder.ID, "name", folder.Name)
	return &folder, nil
}

// Update applies the non-nil fields of patch. A patch that changes nothing
// returns the folder as is without a write.
func (r *Registry) Update(ctx context.Context, folderID string, patch domain.FolderPatch) (*domain.Folder, error) {
	f := r.f
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.st.folder(folderID)
	if !ok {
		return nil, domainerrors.NotFoundf("folder %s not found", folderID)
	}

	updated := *current
	if patch.Name != nil {
		name := normalize.Text(*patch.Name)
		if err := f.opts.validator.Var("name", name, "required,max=100"); err != nil {
			return nil, err
		}
		updated.Name = name
	}
	if patch.Description != nil {
		desc := normalize.Multiline(*patch.Description)
		if err := f.opts.validator.Var("description", desc, "max=500"); err != nil {
			return nil, err
		}
		updated.Description = desc
	}
	if patch.Color != nil {
		color := normalize.Color(*patch.Color)
		if err := f.opts.validator.Var("color", color, "omitempty,hexcolor"); err != nil {
			return nil, err
		}
		if color == "" {
			color = domain.DefaultFolderColor
		}
		updated.Color = color
	}
	if patch.IsPublic != nil {
		updated.IsPublic = *patch.IsPublic
	}

	if updated == *current {
		return current.Clone(), nil
	}
	updated.UpdatedAt = f.opts.now().UTC()

	if err := f.replaceFolderLocked(ctx, updated); err != nil {
		return nil, err
	}

	f.logger.Info("folder updated", "folder_id", folderID)
	return updated.Clone(), nil
}

// Delete removes a folder. Its listings stay saved and become unfiled, and
// its share link stops resolving.
func (r *Registry) Delete(ctx context.Context, folderID string) error {
	f := r.f
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.st.folder(folderID)
	if !ok {
		return domainerrors.NotFoundf("folder %s not found", folderID)
	}
	deleted := *current

	var unfiled []string
	err := f.update(ctx, func(next *state) ([]sse.Event, error) {
		i := next.folderIndex(folderID)
		next.folders = append(next.folders[:i], next.folders[i+1:]...)
		unfiled = onFolderDeleted(next, folderID)

		events := []sse.Event{sse.NewFolderChangedEvent(deleted, domain.ChangeDeleted)}
		for _, listingID := range unfiled {
			events = append(events, sse.NewAssignmentChangedEvent(f.ownerID, listingID, nil))
		}
		return events, nil
	})
	if err != nil {
		return err
	}

	f.logger.Info("folder deleted", "folder_id", folderID, "unfiled", len(unfiled))
	return nil
}

// Get returns one folder.
func (r *Registry) Get(folderID string) (*domain.Folder, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	folder, ok := r.f.st.folder(folderID)
	if !ok {
		return nil, domainerrors.NotFoundf("folder %s not found", folderID)
	}
	return folder.Clone(), nil
}

// ListByOwner returns the owner's folders in creation order.
func (r *Registry) ListByOwner() []domain.Folder {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	out := make([]domain.Folder, len(r.f.st.folders))
	copy(out, r.f.st.folders)
	return out
}

// ResolveByShareToken finds the public folder carrying token, reading the
// store rather than this session so the result is the same for any caller.
func (r *Registry) ResolveByShareToken(ctx context.Context, token string) (*domain.Folder, error) {
	return NewSharedFolders(r.f.adapter, r.f.opts.catalog).Resolve(ctx, token)
}

// replaceFolderLocked swaps in an updated folder and announces it.
func (f *Facade) replaceFolderLocked(ctx context.Context, updated domain.Folder) error {
	return f.update(ctx, func(next *state) ([]sse.Event, error) {
		i := next.folderIndex(updated.ID)
		if i < 0 {
			return nil, domainerrors.NotFoundf("folder %s not found", updated.ID)
		}
		next.folders[i] = updated
		return []sse.Event{sse.NewFolderChangedEvent(updated, domain.ChangeUpdated)}, nil
	})
}
