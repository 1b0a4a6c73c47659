package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type DeleteResult struct {
	FilesDeleted   int64 `json:"files_deleted"`
	FoldersDeleted int   `json:"folders_deleted"`
	// ObjectsFailed lists keys whose objects may still exist. Their rows
	// are gone regardless.
	ObjectsFailed []string `json:"objects_failed,omitempty"`
}

// ExecuteDelete removes the plan's objects, then its file rows, then its
// folder rows in plan order. Rows already gone are skipped, so a failed
// delete can simply be retried.
func (c *Coordinator) ExecuteDelete(ctx context.Context, plan *models.DeletePlan) (*DeleteResult, error) {
	res := &DeleteResult{}
	keys := plan.Keys()

	if len(keys) > 0 {
		failed, err := c.objects.DeleteMany(ctx, keys)
		if err != nil {
			res.ObjectsFailed = failed
			c.metrics.CascadeFailed("delete", "object_store")
			c.log.Warn(ctx, "object delete failed, removing metadata anyway",
				"root", plan.RootID, "failed", len(failed), "error", err)
		}
	}

	for start := 0; start < len(keys); start += metadataBatch {
		end := min(start+metadataBatch, len(keys))
		n, err := c.files.DeleteMany(ctx, plan.OwnerID, keys[start:end])
		res.FilesDeleted += n
		if err != nil {
			c.metrics.CascadeFailed("delete", "indeterminate")
			return res, indeterminate("delete files", storeErr("files", err))
		}
	}

	for _, id := range plan.Folders {
		err := c.folders.Delete(ctx, id, plan.OwnerID)
		switch {
		case err == nil:
			res.FoldersDeleted++
		case errors.Is(err, common.ErrorNotFound):
		case errors.Is(err, common.ErrorInconsistentState):
			c.metrics.CascadeFailed("delete", "inconsistent")
			c.log.Error(ctx, "folder still has children after planned delete",
				"folder_id", id, "root", plan.RootID, "error", err)
			return res, fmt.Errorf("delete folder %s: %w", id, err)
		default:
			c.metrics.CascadeFailed("delete", "indeterminate")
			return res, indeterminate("delete folders", storeErr("folder "+id, err))
		}
	}

	c.metrics.AddCascadeItems("delete", "file", int(res.FilesDeleted))
	c.metrics.AddCascadeItems("delete", "folder", res.FoldersDeleted)

	if !models.IsRoot(plan.RootID) {
		c.adjustAncestors(ctx, plan.OwnerID, plan.ParentRef, -plan.TotalSize())
		c.events.Publish(events.Event{UserID: plan.OwnerID, Kind: events.FolderDeleted, FolderID: plan.ParentRef, ItemID: plan.RootID})
	}

	c.log.Info(ctx, "delete executed", "root", plan.RootID,
		"files", res.FilesDeleted, "folders", res.FoldersDeleted, "objects_failed", len(res.ObjectsFailed))
	return res, nil
}

// DeleteFile removes one file the same way: object first, best-effort, then
// the row.
func (c *Coordinator) DeleteFile(ctx context.Context, file *models.File) error {
	if err := c.objects.Delete(ctx, file.ID); err != nil {
		c.metrics.CascadeFailed("delete", "object_store")
		c.log.Warn(ctx, "object delete failed, removing metadata anyway", "file_id", file.ID, "error", err)
	}
	if err := c.files.Delete(ctx, file.ID, file.OwnerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return storeErr("delete file", err)
	}
	c.adjustAncestors(ctx, file.OwnerID, file.ParentRef(), -file.Size)
	c.events.Publish(events.Event{UserID: file.OwnerID, Kind: events.FileDeleted, FolderID: file.ParentRef(), ItemID: file.ID})
	return nil
}

// DeleteAccount deletes everything the user owns, then their tokens and
// the user row itself.
func (c *Coordinator) DeleteAccount(ctx context.Context, userID string) (*DeleteResult, error) {
	plan, err := c.tree.PlanRecursiveDelete(ctx, common.RootFolderID, userID)
	if err != nil {
		return nil, err
	}
	res, err := c.ExecuteDelete(ctx, plan)
	if err != nil {
		return res, err
	}
	if err := c.tokens.DeleteByUser(ctx, userID); err != nil {
		return res, indeterminate("delete account tokens", storeErr("tokens", err))
	}
	if err := c.users.Delete(ctx, userID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return res, indeterminate("delete account", storeErr("user", err))
	}
	c.events.Publish(events.Event{UserID: userID, Kind: events.AccountDeleted, FolderID: common.RootFolderID})
	c.log.Info(ctx, "account deleted", "user_id", userID, "files", res.FilesDeleted, "folders", res.FoldersDeleted)
	return res, nil
}
