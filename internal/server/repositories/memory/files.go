package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type FileRepository struct {
	s *Store
}

func copyFile(f *models.File) *models.File {
	cp := *f
	cp.FolderID = cloneStr(f.FolderID)
	return &cp
}

func (r *FileRepository) Create(_ context.Context, file *models.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("files.Create"); err != nil {
		return err
	}
	if _, ok := r.s.files[file.ID]; ok {
		return fmt.Errorf("create file: %w", common.ErrorAlreadyExists)
	}
	if _, ok := r.s.users[file.OwnerID]; !ok {
		return fmt.Errorf("create file: %w: owner", common.ErrorUnauthorized)
	}
	if file.FolderID != nil {
		p, ok := r.s.folders[*file.FolderID]
		if !ok || p.OwnerID != file.OwnerID {
			return fmt.Errorf("create file: %w: folder", common.ErrorNotFound)
		}
	}
	file.CreatedAt = time.Now()
	r.s.files[file.ID] = copyFile(file)
	return nil
}

func (r *FileRepository) GetByID(_ context.Context, id string) (*models.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("files.GetByID"); err != nil {
		return nil, err
	}
	f, ok := r.s.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyFile(f), nil
}

func (r *FileRepository) ListInFolder(_ context.Context, ownerID string, folderID *string) ([]*models.File, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fault("files.ListInFolder"); err != nil {
		return nil, err
	}
	var out []*models.File
	for _, f := range r.s.files {
		if f.OwnerID == ownerID && sameParent(f.FolderID, folderID) {
			out = append(out, copyFile(f))
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

func (r *FileRepository) SetPrivacy(_ context.Context, id, ownerID string, private bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("files.SetPrivacy"); err != nil {
		return err
	}
	f, ok := r.s.files[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	f.Private = private
	return nil
}

func (r *FileRepository) Delete(_ context.Context, id, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("files.Delete"); err != nil {
		return err
	}
	f, ok := r.s.files[id]
	if !ok || f.OwnerID != ownerID {
		return common.ErrorNotFound
	}
	delete(r.s.files, id)
	return nil
}

func (r *FileRepository) DeleteMany(_ context.Context, ownerID string, ids []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("files.DeleteMany"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		if f, ok := r.s.files[id]; ok && f.OwnerID == ownerID {
			delete(r.s.files, id)
			n++
		}
	}
	return n, nil
}
