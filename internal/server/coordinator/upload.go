package coordinator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/tree"
	"github.com/dustin/go-humanize"
)

type UploadRequest struct {
	OwnerID   string
	FolderRef string
	Name      string
	MimeType  string
	Size      int64
	Body      io.Reader
	Private   bool
}

// ExecuteUpload stores the bytes under a fresh id and then records the
// file. If the target folder or the owner vanished meanwhile the object is
// removed again and ErrorNotFound or ErrorUnauthorized is returned; any other
// row failure leaves the object behind and logs it.
func (c *Coordinator) ExecuteUpload(ctx context.Context, req UploadRequest) (*models.File, error) {
	if err := tree.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("empty upload %q: %w", req.Name, common.ErrorInvalidInput)
	}
	if !models.IsRoot(req.FolderRef) {
		folder, err := c.folders.GetByID(ctx, req.FolderRef)
		if err != nil {
			return nil, storeErr("upload target", err)
		}
		if folder.OwnerID != req.OwnerID {
			return nil, common.ErrorNotFound
		}
	}

	mime := req.MimeType
	if mime == "" {
		mime = common.DefaultMimeType
	}
	file := &models.File{
		ID:       c.newID(),
		Name:     strings.TrimSpace(req.Name),
		OwnerID:  req.OwnerID,
		FolderID: models.ParentFromRef(req.FolderRef),
		MimeType: mime,
		Size:     req.Size,
		Private:  req.Private,
	}

	if err := c.objects.Put(ctx, file.ID, req.Body, file.Size, file.MimeType); err != nil {
		return nil, storeErr("store object", err)
	}

	if err := c.files.Create(ctx, file); err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorUnauthorized) {
			if derr := c.objects.Delete(ctx, file.ID); derr != nil {
				c.log.Warn(ctx, "object of rejected upload not removed", "key", file.ID, "error", derr)
			}
			return nil, storeErr("record file", err)
		}
		c.log.Warn(ctx, "file row not written, object orphaned",
			"key", file.ID, "owner_id", file.OwnerID, "size", humanize.Bytes(uint64(file.Size)), "error", err)
		return nil, storeErr("record file", err)
	}

	c.adjustAncestors(ctx, req.OwnerID, req.FolderRef, file.Size)
	c.metrics.AddUploadedBytes(file.Size)
	c.events.Publish(events.Event{UserID: req.OwnerID, Kind: events.FileUploaded, FolderID: file.ParentRef(), ItemID: file.ID})
	c.log.Debug(ctx, "file uploaded", "file_id", file.ID, "folder", file.ParentRef(), "size", file.Size)
	return file, nil
}

type BulkItem struct {
	RelativePath string
	MimeType     string
	Size         int64
	Body         io.Reader
}

type BulkResult struct {
	FilesUploaded  int            `json:"files_uploaded"`
	FoldersCreated int            `json:"folders_created"`
	Bytes          int64          `json:"bytes"`
	Files          []*models.File `json:"files"`
}

// Summary is the message shown to the uploader.
func (r *BulkResult) Summary() string {
	return fmt.Sprintf("Successfully uploaded %d files and created %d folders", r.FilesUploaded, r.FoldersCreated)
}

// ExecuteBulkUpload recreates each item's directory chain below targetRef
// and uploads the leaf into it. Each distinct directory is resolved once
// per batch. The batch stops at the first failing item; the result reports
// what was done before it.
func (c *Coordinator) ExecuteBulkUpload(ctx context.Context, ownerID, targetRef string, items []BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no files: %w", common.ErrorInvalidInput)
	}
	res := &BulkResult{}
	resolved := make(map[string]string)

	for _, item := range items {
		dirs, leaf, err := tree.SplitRelativePath(item.RelativePath)
		if err != nil {
			return res, err
		}
		key, err := prefixKey(dirs)
		if err != nil {
			return res, err
		}

		folderRef, ok := resolved[key]
		if !ok {
			id, created, err := c.tree.EnsurePath(ctx, dirs, ownerID, targetRef)
			res.FoldersCreated += created
			if err != nil {
				return res, storeErr("ensure "+key, err)
			}
			if created > 0 {
				c.events.Publish(events.Event{UserID: ownerID, Kind: events.FolderCreated, FolderID: targetRef})
			}
			resolved[key] = id
			folderRef = id
		}

		f, err := c.ExecuteUpload(ctx, UploadRequest{
			OwnerID:   ownerID,
			FolderRef: folderRef,
			Name:      leaf,
			MimeType:  item.MimeType,
			Size:      item.Size,
			Body:      item.Body,
			Private:   true,
		})
		if err != nil {
			return res, fmt.Errorf("upload %s: %w", item.RelativePath, err)
		}
		res.FilesUploaded++
		res.Bytes += f.Size
		res.Files = append(res.Files, f)
	}

	c.log.Info(ctx, "bulk upload done", "owner_id", ownerID, "target", targetRef,
		"files", res.FilesUploaded, "folders", res.FoldersCreated, "size", humanize.Bytes(uint64(res.Bytes)))
	return res, nil
}

// prefixKey normalizes a directory chain for memoization.
func prefixKey(dirs []string) (string, error) {
	var clean []string
	for _, d := range dirs {
		name, skip, err := tree.CleanSegment(d)
		if err != nil {
			return "", err
		}
		if !skip {
			clean = append(clean, name)
		}
	}
	return strings.Join(clean, "/"), nil
}
