package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

type CascadeResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// ExecutePrivacyCascade sets the flag on every planned entity. It keeps
// going past individual failures and reports the operation indeterminate
// if any occurred; reapplying the same plan is harmless.
func (c *Coordinator) ExecutePrivacyCascade(ctx context.Context, plan *models.PrivacyPlan) (*CascadeResult, error) {
	res := &CascadeResult{}
	var firstErr error

	for _, ent := range plan.Entities {
		if err := ctx.Err(); err != nil {
			return res, indeterminate("privacy cascade", err)
		}
		var err error
		switch ent.Kind {
		case models.KindFolder:
			err = c.folders.SetPrivacy(ctx, ent.ID, plan.OwnerID, plan.Private)
		case models.KindFile:
			err = c.files.SetPrivacy(ctx, ent.ID, plan.OwnerID, plan.Private)
		default:
			err = fmt.Errorf("entity %s: %w: kind %q", ent.ID, common.ErrorInconsistentState, ent.Kind)
		}
		switch {
		case err == nil:
			res.Updated++
		case errors.Is(err, common.ErrorNotFound):
			res.Skipped++
		default:
			res.Failed++
			if firstErr == nil {
				firstErr = err
			}
			c.log.Warn(ctx, "privacy update failed", "kind", ent.Kind, "id", ent.ID, "error", err)
		}
	}

	c.metrics.AddCascadeItems("privacy", "entity", res.Updated)
	if firstErr != nil {
		c.metrics.CascadeFailed("privacy", "indeterminate")
		return res, indeterminate(
			fmt.Sprintf("privacy cascade (%d updated, %d failed)", res.Updated, res.Failed),
			storeErr("update", firstErr))
	}

	c.events.Publish(events.Event{UserID: plan.OwnerID, Kind: events.PrivacyChanged, FolderID: plan.RootID})
	return res, nil
}

// SetFilePrivacy updates a single file.
func (c *Coordinator) SetFilePrivacy(ctx context.Context, file *models.File, private bool) error {
	if err := c.files.SetPrivacy(ctx, file.ID, file.OwnerID, private); err != nil {
		return storeErr("file privacy", err)
	}
	c.events.Publish(events.Event{UserID: file.OwnerID, Kind: events.PrivacyChanged, FolderID: file.ParentRef(), ItemID: file.ID})
	return nil
}
