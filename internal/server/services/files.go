package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/access"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
)

// Download is an open file body plus what a client needs to save it.
type Download struct {
	File *models.File
	Body io.ReadCloser
}

// Preview is a short-lived direct link to a file's bytes.
type Preview struct {
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileService implements per-file operations.
type FileService struct {
	files      files.Repository
	objects    objectstore.Store
	coord      *coordinator.Coordinator
	presignTTL time.Duration
	log        logging.Logger
}

func NewFileService(coord *coordinator.Coordinator, fileRepo files.Repository, objects objectstore.Store, presignTTL time.Duration, log logging.Logger) *FileService {
	if presignTTL <= 0 {
		presignTTL = common.PreviewURLTTL
	}
	return &FileService{
		files:      fileRepo,
		objects:    objects,
		coord:      coord,
		presignTTL: presignTTL,
		log:        log.With("module", "files"),
	}
}

func (s *FileService) load(ctx context.Context, id, userID string, check func(access.Item, string) error) (*models.File, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if err := check(f, userID); err != nil {
		return nil, err
	}
	return f, nil
}

// Get returns the file's metadata.
func (s *FileService) Get(ctx context.Context, userID, id string) (*models.File, error) {
	return s.load(ctx, id, userID, access.Visible)
}

// Download opens the file's bytes for streaming. A row whose object is gone
// is reported as an inconsistency, not as a missing file.
func (s *FileService) Download(ctx context.Context, userID, id string) (*Download, error) {
	f, err := s.load(ctx, id, userID, access.Visible)
	if err != nil {
		return nil, err
	}
	body, err := s.objects.Get(ctx, f.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "object missing for file row", "file_id", f.ID)
			return nil, fmt.Errorf("object %s: %w", f.ID, common.ErrorInconsistentState)
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return &Download{File: f, Body: body}, nil
}

// Preview returns a presigned GET URL valid for the configured TTL.
func (s *FileService) Preview(ctx context.Context, userID, id string) (*Preview, error) {
	f, err := s.load(ctx, id, userID, access.Visible)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.PresignedGetURL(ctx, f.ID, s.presignTTL)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}
	return &Preview{URL: url, MimeType: f.MimeType, ExpiresAt: time.Now().Add(s.presignTTL)}, nil
}

// Remove deletes the file's object and row.
func (s *FileService) Remove(ctx context.Context, userID, id string) error {
	f, err := s.load(ctx, id, userID, access.Mutable)
	if err != nil {
		return err
	}
	return s.coord.DeleteFile(ctx, f)
}

// SetPrivacy changes one file's flag.
func (s *FileService) SetPrivacy(ctx context.Context, userID, id string, private bool) (*models.File, error) {
	f, err := s.load(ctx, id, userID, access.Mutable)
	if err != nil {
		return nil, err
	}
	if err := s.coord.SetFilePrivacy(ctx, f, private); err != nil {
		return nil, err
	}
	f.Private = private
	return f, nil
}

// ListRoot returns the caller's files at home.
func (s *FileService) ListRoot(ctx context.Context, userID string) ([]*models.File, error) {
	out, err := s.files.ListInFolder(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("list root files: %w", err)
	}
	return out, nil
}
