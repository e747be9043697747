package store

import (
	"context"
	"slices"
	"strings"
)

// Key prefixes. Owner-scoped keys end in the owner ID; share keys end in the
// share token and hold the owning user's ID.
const (
	favoritesPrefix   = "favorites:"
	foldersPrefix     = "folders:"
	assignmentsPrefix = "assignments:"
	sharePrefix       = "share:"
)

// FavoritesKey holds the owner's saved listings, oldest first.
func FavoritesKey(ownerID string) string { return favoritesPrefix + ownerID }

// FoldersKey holds the owner's folders in creation order.
func FoldersKey(ownerID string) string { return foldersPrefix + ownerID }

// AssignmentsKey holds the owner's listing-to-folder assignments.
func AssignmentsKey(ownerID string) string { return assignmentsPrefix + ownerID }

// ShareKey maps a share token to the ID of the owner whose folder carries it.
func ShareKey(token string) string { return sharePrefix + token }

// OwnerKeys returns the three keys that make up one owner's state.
func OwnerKeys(ownerID string) []string {
	return []string{FavoritesKey(ownerID), FoldersKey(ownerID), AssignmentsKey(ownerID)}
}

// OwnerOf returns the owner ID encoded in an owner-scoped key.
func OwnerOf(key string) (string, bool) {
	for _, prefix := range []string{favoritesPrefix, foldersPrefix, assignmentsPrefix} {
		if owner, ok := strings.CutPrefix(key, prefix); ok && owner != "" {
			return owner, true
		}
	}
	return "", false
}

// IsShareKey reports whether key is a share token index entry.
func IsShareKey(key string) bool {
	return strings.HasPrefix(key, sharePrefix)
}

// TokenOf returns the share token encoded in a share index key.
func TokenOf(key string) (string, bool) {
	if !IsShareKey(key) {
		return "", false
	}
	token := strings.TrimPrefix(key, sharePrefix)
	return token, token != ""
}

// Owners lists every owner that has at least one owner-scoped key, sorted.
func Owners(ctx context.Context, sc Scanner) ([]string, error) {
	seen := make(map[string]bool)
	for _, prefix := range []string{favoritesPrefix, foldersPrefix, assignmentsPrefix} {
		err := sc.Scan(ctx, prefix, func(key, _ string) error {
			if owner, ok := OwnerOf(key); ok {
				seen[owner] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	slices.Sort(owners)
	return owners, nil
}

// ShareIndex returns the share index as token -> owner ID.
func ShareIndex(ctx context.Context, sc Scanner) (map[string]string, error) {
	index := make(map[string]string)
	err := sc.Scan(ctx, sharePrefix, func(key, owner string) error {
		if token, ok := TokenOf(key); ok {
			index[token] = owner
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}
