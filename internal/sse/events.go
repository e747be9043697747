// Package sse pushes favorites changes to the owner's open clients as
// Server-Sent Events, so open views can refresh without polling.
package sse

import (
	"time"

	"github.com/hermanshu/targ-site-sub000/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventFavoriteChanged fires when a listing is saved or unsaved.
	EventFavoriteChanged EventType = "favorite.changed"
	// EventAssignmentChanged fires when a saved listing moves between folders.
	EventAssignmentChanged EventType = "assignment.changed"
	// EventFolderChanged fires when a folder is created, updated or deleted.
	EventFolderChanged EventType = "folder.changed"
	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message delivered to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// OwnerID scopes delivery to one owner's clients. Never sent.
	OwnerID string `json:"-"`
}

// FavoriteChangedData is the payload of favorite.changed.
type FavoriteChangedData struct {
	ListingID  string `json:"listing_id"`
	IsFavorite bool   `json:"is_favorite"`
}

// AssignmentChangedData is the payload of assignment.changed. A nil
// FolderID means the listing is now unfiled.
type AssignmentChangedData struct {
	FolderID  *string `json:"folder_id"`
	ListingID string  `json:"listing_id"`
}

// FolderChangedData is the payload of folder.changed.
type FolderChangedData struct {
	Folder domain.Folder     `json:"folder"`
	Change domain.ChangeKind `json:"change"`
}

// HeartbeatEventData is the payload of heartbeat.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewFavoriteChangedEvent creates a favorite.changed event for ownerID.
func NewFavoriteChangedEvent(ownerID, listingID string, isFavorite bool) Event {
	return Event{
		Type:      EventFavoriteChanged,
		Data:      FavoriteChangedData{ListingID: listingID, IsFavorite: isFavorite},
		Timestamp: time.Now(),
		OwnerID:   ownerID,
	}
}

// NewAssignmentChangedEvent creates an assignment.changed event for ownerID.
func NewAssignmentChangedEvent(ownerID, listingID string, folderID *string) Event {
	var fid *string
	if folderID != nil {
		v := *folderID
		fid = &v
	}
	return Event{
		Type:      EventAssignmentChanged,
		Data:      AssignmentChangedData{ListingID: listingID, FolderID: fid},
		Timestamp: time.Now(),
		OwnerID:   ownerID,
	}
}

// NewFolderChangedEvent creates a folder.changed event for the folder owner.
func NewFolderChangedEvent(folder domain.Folder, change domain.ChangeKind) Event {
	return Event{
		Type:      EventFolderChanged,
		Data:      FolderChangedData{Folder: folder, Change: change},
		Timestamp: time.Now(),
		OwnerID:   folder.OwnerID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: now},
		Timestamp: now,
	}
}
