package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignment_InFolder(t *testing.T) {
	folder := "fld-1"
	a := Assignment{ListingID: "l1", FolderID: &folder}

	assert.True(t, a.InFolder("fld-1"))
	assert.False(t, a.InFolder("fld-2"))
	assert.False(t, a.Unfiled())

	unfiled := Assignment{ListingID: "l2"}
	assert.True(t, unfiled.Unfiled())
	assert.False(t, unfiled.InFolder("fld-1"))
}

func TestFolder_CloneIsIndependent(t *testing.T) {
	f := &Folder{ID: "fld-1", Name: "Cars"}
	c := f.Clone()
	c.Name = "Bikes"

	assert.Equal(t, "Cars", f.Name)
}

func TestParseFolderScope(t *testing.T) {
	tests := []struct {
		input string
		want  FolderScope
	}{
		{"", AllFavorites()},
		{"all", AllFavorites()},
		{"unfiled", UnfiledFavorites()},
		{"fld-9", InFolder("fld-9")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFolderScope(tt.input))
		})
	}
}

func TestScopeKind_String(t *testing.T) {
	assert.Equal(t, "all", ScopeAll.String())
	assert.Equal(t, "unfiled", ScopeUnfiled.String())
	assert.Equal(t, "folder", ScopeFolder.String())
	assert.Equal(t, "unknown", ScopeKind(42).String())
}
