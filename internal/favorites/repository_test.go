package favorites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/hermanshu/targ-site-sub000/internal/errors"
	"github.com/hermanshu/targ-site-sub000/internal/sse"
)

func TestRepository_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	repo := fx.facade.Repository()

	first, err := repo.Add(ctx, "L1", nil)
	require.NoError(t, err)
	second, err := repo.Add(ctx, "L1", nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.List(), 1)
	assert.Len(t, fx.events.all(), 1)
}

func TestRepository_AddExistingForwardsFolder(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	f := fx.facade

	folder, err := f.CreateFolder(ctx, FolderInput{Name: "Bikes"})
	require.NoError(t, err)
	saved, err := f.Repository().Add(ctx, "L1", nil)
	require.NoError(t, err)

	again, err := f.Repository().Add(ctx, "L1", &folder.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.SavedAt, again.SavedAt)

	got, err := f.Index().FolderOf("L1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, folder.ID, *got)
	assert.Len(t, f.Repository().List(), 1)
}

func TestRepository_AddIntoFolder(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	f := fx.facade

	folder, err := f.CreateFolder(ctx, FolderInput{Name: "Bikes"})
	require.NoError(t, err)
	fx.events.reset()

	saved, err := f.Repository().Add(ctx, "L1", &folder.ID)
	require.NoError(t, err)
	assert.Equal(t, testOwner, saved.OwnerID)
	assert.Equal(t, testNow, saved.SavedAt)

	items, err := f.Index().ItemsOf(folder.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, items)
	assert.Equal(t, []sse.EventType{sse.EventFavoriteChanged, sse.EventAssignmentChanged}, fx.events.types())
}

func TestRepository_AddRejects(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	repo := fx.facade.Repository()

	_, err := repo.Add(ctx, "   ", nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = repo.Add(ctx, "L1", ptr("fld-missing"))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.False(t, repo.Contains("L1"))
}

func TestRepository_RemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.mem.FailWrites(-1, nil)
	require.NoError(t, fx.facade.Repository().Remove(ctx, "never-saved"))
	assert.Empty(t, fx.events.all())
}

func TestRepository_ListKeepsSaveOrder(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	repo := fx.facade.Repository()

	for _, l := range []string{"L3", "L1", "L2"} {
		_, err := repo.Add(ctx, l, nil)
		require.NoError(t, err)
	}
	require.NoError(t, repo.Remove(ctx, "L1"))
	_, err := repo.Add(ctx, "L1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"L3", "L2", "L1"}, listingIDs(fx.facade))

	reopened, err := Open(ctx, testOwner, fx.mem)
	require.NoError(t, err)
	assert.Equal(t, []string{"L3", "L2", "L1"}, listingIDs(reopened))
}

func TestRepository_ListingIDsAreNormalized(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	repo := fx.facade.Repository()

	_, err := repo.Add(ctx, "  L1 ", nil)
	require.NoError(t, err)
	assert.True(t, repo.Contains("L1"))
	assert.Equal(t, []string{"L1"}, listingIDs(fx.facade))
}
