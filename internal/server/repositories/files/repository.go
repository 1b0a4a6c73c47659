package files

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Repository persists file metadata rows. Object bytes live in the object
// store under File.ID.
type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	// ListInFolder returns the owner's files directly inside folderID
	// (nil for home), ordered by name then id.
	ListInFolder(ctx context.Context, ownerID string, folderID *string) ([]*models.File, error)
	SetPrivacy(ctx context.Context, id, ownerID string, private bool) error
	Delete(ctx context.Context, id, ownerID string) error
	// DeleteMany removes the listed rows that exist and reports how many went.
	DeleteMany(ctx context.Context, ownerID string, ids []string) (int64, error)
}
