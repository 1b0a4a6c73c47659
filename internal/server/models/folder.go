package models

import (
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// Folder is a node in a user's tree. A nil ParentID places the folder at the
// user's home. Size is an advisory byte counter.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	ParentID  *string   `json:"parent_id"`
	Private   bool      `json:"private"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Folder) Owner() string   { return f.OwnerID }
func (f *Folder) IsPrivate() bool { return f.Private }

func (f *Folder) ParentRef() string { return RefFromParent(f.ParentID) }

// IsRoot reports whether ref is the home sentinel (or empty).
func IsRoot(ref string) bool {
	return ref == "" || ref == common.RootFolderID
}

// ParentFromRef converts a folder reference into the nullable parent column
// value: nil for home, otherwise a pointer to the id.
func ParentFromRef(ref string) *string {
	if IsRoot(ref) {
		return nil
	}
	id := ref
	return &id
}

// RefFromParent is the inverse of ParentFromRef.
func RefFromParent(parent *string) string {
	if parent == nil {
		return common.RootFolderID
	}
	return *parent
}

// PathElement is one hop of a resolved root-to-leaf folder path.
type PathElement struct {
	ID   string `json:"uuid"`
	Name string `json:"name"`
}

// HomePathElement is the first element of every resolved path.
var HomePathElement = PathElement{ID: common.RootFolderID, Name: common.RootFolderID}
