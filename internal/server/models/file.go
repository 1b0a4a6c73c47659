// Package models defines server-side data models persisted in the metadata
// store, plus the plan and snapshot types produced by the folder tree engine.
package models

import "time"

// File describes a stored blob. ID doubles as the object-store key for the
// content, so a File row and its object share one identifier.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	FolderID  *string   `json:"folder_id"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Private   bool      `json:"private"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *File) Owner() string   { return f.OwnerID }
func (f *File) IsPrivate() bool { return f.Private }

// ParentRef returns the containing folder reference, RootFolderID for root files.
func (f *File) ParentRef() string { return RefFromParent(f.FolderID) }
