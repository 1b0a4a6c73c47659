package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/access"
	"github.com/dmitrijs2005/filevault/internal/server/archive"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/server/tree"
	"github.com/google/uuid"
)

// Listing is one level of a folder as seen by the caller. Folder is nil
// for home.
type Listing struct {
	Folder  *models.Folder   `json:"folder,omitempty"`
	Folders []*models.Folder `json:"folders"`
	Files   []*models.File   `json:"files"`
}

// Archive is a finished folder download. Closing Body releases its
// scratch space.
type Archive struct {
	Name string
	Size int64
	Body io.ReadCloser
}

// UploadFile is one file of a multipart request.
type UploadFile struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Archiver turns a snapshot into a downloadable archive.
type Archiver interface {
	BuildArchive(ctx context.Context, snapshot *models.SnapshotNode) (io.ReadCloser, int64, error)
}

// FolderService implements folder operations on top of the tree engine
// and the coordinator.
type FolderService struct {
	folders  folders.Repository
	tree     *tree.Engine
	coord    *coordinator.Coordinator
	archiver Archiver
	events   events.Publisher
	log      logging.Logger
	newID    func() string
}

func NewFolderService(coord *coordinator.Coordinator, folderRepo folders.Repository, archiver Archiver, pub events.Publisher, log logging.Logger) *FolderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &FolderService{
		folders:  folderRepo,
		tree:     coord.Tree(),
		coord:    coord,
		archiver: archiver,
		events:   pub,
		log:      log.With("module", "folders"),
		newID:    uuid.NewString,
	}
}

// loadFolder fetches ref and applies check to it.
func (s *FolderService) loadFolder(ctx context.Context, ref, userID string, check func(access.Item, string) error) (*models.Folder, error) {
	f, err := s.folders.GetByID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	if err := check(f, userID); err != nil {
		return nil, err
	}
	return f, nil
}

// writableTarget checks that userID may add children to ref.
func (s *FolderService) writableTarget(ctx context.Context, ref, userID string) error {
	if models.IsRoot(ref) {
		return nil
	}
	_, err := s.loadFolder(ctx, ref, userID, access.Mutable)
	return err
}

// Create makes a new private folder called name under parentRef.
func (s *FolderService) Create(ctx context.Context, userID, parentRef, name string) (*models.Folder, error) {
	if err := tree.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.writableTarget(ctx, parentRef, userID); err != nil {
		return nil, err
	}

	f := &models.Folder{
		ID:       s.newID(),
		Name:     strings.TrimSpace(name),
		OwnerID:  userID,
		ParentID: models.ParentFromRef(parentRef),
		Private:  true,
	}
	if err := s.folders.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("create folder %q: %w", f.Name, err)
	}
	s.events.Publish(events.Event{UserID: userID, Kind: events.FolderCreated, FolderID: f.ParentRef(), ItemID: f.ID})
	s.log.Debug(ctx, "folder created", "folder_id", f.ID, "parent", f.ParentRef())
	return f, nil
}

// List returns one level of ref. Non-owners of a public folder see only
// the public items inside it.
func (s *FolderService) List(ctx context.Context, userID, ref string) (*Listing, error) {
	if models.IsRoot(ref) {
		files, subs, err := s.tree.ListContents(ctx, common.RootFolderID, userID)
		if err != nil {
			return nil, err
		}
		return &Listing{Folders: subs, Files: files}, nil
	}

	folder, err := s.loadFolder(ctx, ref, userID, access.Visible)
	if err != nil {
		return nil, err
	}
	files, subs, err := s.tree.ListContents(ctx, ref, folder.OwnerID)
	if err != nil {
		return nil, err
	}
	if folder.OwnerID != userID {
		files = visibleOnly(files, userID)
		subs = visibleOnly(subs, userID)
	}
	return &Listing{Folder: folder, Folders: subs, Files: files}, nil
}

func visibleOnly[T access.Item](items []T, userID string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if access.Visible(it, userID) == nil {
			out = append(out, it)
		}
	}
	return out
}

// Path returns the breadcrumb from home to ref.
func (s *FolderService) Path(ctx context.Context, userID, ref string) ([]models.PathElement, error) {
	if models.IsRoot(ref) {
		return []models.PathElement{models.HomePathElement}, nil
	}
	folder, err := s.loadFolder(ctx, ref, userID, access.Visible)
	if err != nil {
		return nil, err
	}
	return s.tree.ResolvePath(ctx, ref, folder.OwnerID)
}

// Delete removes ref with everything below it. Home cannot be deleted this
// way; account deletion covers it.
func (s *FolderService) Delete(ctx context.Context, userID, ref string) (*coordinator.DeleteResult, error) {
	if models.IsRoot(ref) {
		return nil, fmt.Errorf("delete home: %w", common.ErrorInvalidInput)
	}
	if _, err := s.loadFolder(ctx, ref, userID, access.Mutable); err != nil {
		return nil, err
	}
	plan, err := s.tree.PlanRecursiveDelete(ctx, ref, userID)
	if err != nil {
		return nil, err
	}
	return s.coord.ExecuteDelete(ctx, plan)
}

// SetPrivacy applies private to ref and its whole subtree.
func (s *FolderService) SetPrivacy(ctx context.Context, userID, ref string, private bool) (*coordinator.CascadeResult, error) {
	if models.IsRoot(ref) {
		return nil, fmt.Errorf("home privacy: %w", common.ErrorInvalidInput)
	}
	if _, err := s.loadFolder(ctx, ref, userID, access.Mutable); err != nil {
		return nil, err
	}
	plan, err := s.tree.PlanPrivacyCascade(ctx, ref, private, userID)
	if err != nil {
		return nil, err
	}
	return s.coord.ExecutePrivacyCascade(ctx, plan)
}

// Upload stores a single private file directly in ref.
func (s *FolderService) Upload(ctx context.Context, userID, ref string, in UploadFile) (*models.File, error) {
	if err := s.writableTarget(ctx, ref, userID); err != nil {
		return nil, err
	}
	return s.coord.ExecuteUpload(ctx, coordinator.UploadRequest{
		OwnerID:   userID,
		FolderRef: ref,
		Name:      in.Name,
		MimeType:  in.MimeType,
		Size:      in.Size,
		Body:      in.Body,
		Private:   true,
	})
}

// UploadTree recreates a client-side directory upload below ref.
func (s *FolderService) UploadTree(ctx context.Context, userID, ref string, items []coordinator.BulkItem) (*coordinator.BulkResult, error) {
	if err := s.writableTarget(ctx, ref, userID); err != nil {
		return nil, err
	}
	return s.coord.ExecuteBulkUpload(ctx, userID, ref, items)
}

// Download archives ref. Only the owner may archive a folder, since the
// archive would otherwise have to leave out private descendants silently.
func (s *FolderService) Download(ctx context.Context, userID, ref string) (*Archive, error) {
	name := common.RootFolderID
	if !models.IsRoot(ref) {
		folder, err := s.loadFolder(ctx, ref, userID, access.Mutable)
		if err != nil {
			return nil, err
		}
		name = folder.Name
	}

	snap, err := s.tree.SnapshotSubtree(ctx, ref, userID)
	if err != nil {
		return nil, err
	}
	body, size, err := s.archiver.BuildArchive(ctx, snap)
	if err != nil {
		return nil, err
	}
	return &Archive{Name: name + ".zip", Size: size, Body: body}, nil
}

var _ Archiver = (*archive.Assembler)(nil)
