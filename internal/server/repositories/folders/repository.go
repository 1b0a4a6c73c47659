// Package folders stores the folder tree. Each row names its parent; a nil
// parent places the folder at the owner's home.
package folders

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type Repository interface {
	// Create inserts folder. A sibling with the same name under the same
	// parent yields common.ErrorAlreadyExists.
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	// FindChild looks up the owner's folder called name directly under parentID.
	FindChild(ctx context.Context, ownerID string, parentID *string, name string) (*models.Folder, error)
	// ListChildren returns direct subfolders ordered by name then id.
	ListChildren(ctx context.Context, ownerID string, parentID *string) ([]*models.Folder, error)
	SetPrivacy(ctx context.Context, id, ownerID string, private bool) error
	AddSize(ctx context.Context, id, ownerID string, delta int64) error
	// Delete removes one folder row. A folder that still has children is
	// rejected with common.ErrorInconsistentState.
	Delete(ctx context.Context, id, ownerID string) error
}
