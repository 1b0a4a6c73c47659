// Package access decides whether a caller may read or change a file or
// folder. Each item's own privacy flag governs it; a public folder does not
// expose private items inside it.
package access

import (
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// Item is implemented by *models.File and *models.Folder.
type Item interface {
	Owner() string
	IsPrivate() bool
}

// AuthorizeRead allows the owner, and anyone when the item is public.
func AuthorizeRead(item Item, userID string) error {
	if item.Owner() == userID || !item.IsPrivate() {
		return nil
	}
	return fmt.Errorf("read: %w", common.ErrorForbidden)
}

// AuthorizeMutate allows the owner only.
func AuthorizeMutate(item Item, userID string) error {
	if userID != "" && item.Owner() == userID {
		return nil
	}
	return fmt.Errorf("mutate: %w", common.ErrorForbidden)
}

// Visible converts a read denial into NotFound so callers cannot probe for
// private items they do not own.
func Visible(item Item, userID string) error {
	if err := AuthorizeRead(item, userID); err != nil {
		return common.ErrorNotFound
	}
	return nil
}

// Mutable reports NotFound for items the caller cannot even see, and
// Forbidden for public items owned by someone else.
func Mutable(item Item, userID string) error {
	if err := Visible(item, userID); err != nil {
		return err
	}
	return AuthorizeMutate(item, userID)
}
