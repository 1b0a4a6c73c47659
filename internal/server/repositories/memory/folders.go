package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type FolderRepository struct {
	s *Store
}

func copyFolder(f *models.Folder) *models.Folder {
	cp := *f
	cp.ParentID = cloneStr(f.ParentID)
	return &cp
}

func (r *FolderRepository) Create(_ context.Context, folder *models.Folder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("folders.Create"); err != nil {
		return err
	}
	if _, ok := r.s.folders[folder.ID]; ok {
		return fmt.Errorf("create folder: %w", common.ErrorAlreadyExists)
	}
	if _, ok := r.s.users[folder.OwnerID]; !ok {
		return fmt.Errorf("create folder: %w: owner", common.ErrorUnauthorized)
	}
	if folder.ParentID != nil {
		p, ok := r.s.folders[*folder.ParentID]
		if !ok || p.OwnerID != folder.OwnerID {
			return fmt.Errorf("create folder: %w: parent", common.ErrorNotFound)
		}
	}
	for _, f := range r.s.folders {
		if f.OwnerID == folder.OwnerID && f.Name == folder.Name && sameParent(f.ParentID, folder.ParentID) {
			return fmt.Errorf("create folder: %w", common.ErrorAlreadyExists)
		}
	}
	folder.CreatedAt = time.Now()
	r.s.folders[folder.ID] = copyFolder(folder)
	return nil
}

func (r *FolderRepository) GetByID(_ context.Context, id string) (*models.Folder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("folders.GetByID"); err != nil {
		return nil, err
	}
	f, ok := r.s.folders[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyFolder(f), nil
}

func (r *FolderRepository) FindChild(_ context.Context, ownerID string, parentID *string, name string) (*models.Folder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, f := range r.s.folders {
		if f.OwnerID == ownerID && f.Name == name && sameParent(f.ParentID, parentID) {
			return copyFolder(f), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *FolderRepository) ListChildren(_ context.Context, ownerID string, parentID *string) ([]*models.Folder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("folders.ListChildren"); err != nil {
		return nil, err
	}
	var out []*models.Folder
	for _, f := range r.s.folders {
		if f.OwnerID == ownerID && sameParent(f.ParentID, parentID) {
			out = append(out, copyFolder(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *FolderRepository) SetPrivacy(_ context.Context, id, ownerID string, private bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("folders.SetPrivacy"); err != nil {
		return err
	}
	f, ok := r.s.folders[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	f.Private = private
	return nil
}

func (r *FolderRepository) AddSize(_ context.Context, id, ownerID string, delta int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("folders.AddSize"); err != nil {
		return err
	}
	f, ok := r.s.folders[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	f.Size += delta
	return nil
}

func (r *FolderRepository) Delete(_ context.Context, id, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("folders.Delete"); err != nil {
		return err
	}
	f, ok := r.s.folders[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	for _, c := range r.s.folders {
		if c.ParentID != nil && *c.ParentID == id {
			return fmt.Errorf("delete folder: %w: subfolders remain", common.ErrorInconsistentState)
		}
	}
	for _, c := range r.s.files {
		if c.FolderID != nil && *c.FolderID == id {
			return fmt.Errorf("delete folder: %w: files remain", common.ErrorInconsistentState)
		}
	}
	delete(r.s.folders, id)
	return nil
}
