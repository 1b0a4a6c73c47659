// Package coordinator executes tree mutations against the object store and
// the metadata store together.
//
// Neither store can roll the other back, so every operation orders its
// steps to fail toward a recoverable state: uploads write the object before
// the row (an orphan blob is tolerable, a row without bytes is not), and
// deletes remove objects best-effort before the rows (metadata always
// proceeds so no listing ever points at missing content).
package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/users"
	"github.com/dmitrijs2005/filevault/internal/server/tree"
	"github.com/google/uuid"
)

// metadataBatch bounds the ids sent in one files.DeleteMany call.
const metadataBatch = 1000

type Deps struct {
	Folders       folders.Repository
	Files         files.Repository
	Users         users.Repository
	RefreshTokens refreshtokens.Repository
	Objects       objectstore.Store
	Events        events.Publisher
	Metrics       *metrics.Metrics
	Log           logging.Logger
}

type Coordinator struct {
	folders folders.Repository
	files   files.Repository
	users   users.Repository
	tokens  refreshtokens.Repository
	objects objectstore.Store
	tree    *tree.Engine
	events  events.Publisher
	metrics *metrics.Metrics
	log     logging.Logger
	newID   func() string
}

func New(d Deps) *Coordinator {
	pub := d.Events
	if pub == nil {
		pub = events.Nop{}
	}
	log := d.Log
	if log == nil {
		log = logging.NewNop()
	}
	return &Coordinator{
		folders: d.Folders,
		files:   d.Files,
		users:   d.Users,
		tokens:  d.RefreshTokens,
		objects: d.Objects,
		tree:    tree.New(d.Folders, d.Files),
		events:  pub,
		metrics: d.Metrics,
		log:     log.With("module", "coordinator"),
		newID:   uuid.NewString,
	}
}

// Tree exposes the planning engine bound to the same repositories.
func (c *Coordinator) Tree() *tree.Engine {
	return c.tree
}

// indeterminate marks a cascade that stopped partway. Retrying the same
// operation is safe.
func indeterminate(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrorIndeterminate, err)
}

// storeErr classifies raw backend errors as StoreUnavailable, leaving
// errors that already carry a classification alone.
func storeErr(op string, err error) error {
	for _, known := range []error{
		common.ErrorStoreUnavailable, common.ErrorNotFound, common.ErrorInvalidInput,
		common.ErrorAlreadyExists, common.ErrorInconsistentState, common.ErrorUnauthorized,
		context.Canceled, context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, common.ErrorStoreUnavailable, err)
}

// adjustAncestors adds delta to the size counter of folderRef and every
// folder above it. Counters are advisory, so failures are only logged.
func (c *Coordinator) adjustAncestors(ctx context.Context, ownerID, folderRef string, delta int64) {
	if delta == 0 || models.IsRoot(folderRef) {
		return
	}
	path, err := c.tree.ResolvePath(ctx, folderRef, ownerID)
	if err != nil {
		c.log.Warn(ctx, "size accounting skipped", "folder_id", folderRef, "error", err)
		return
	}
	for _, el := range path[1:] {
		if err := c.folders.AddSize(ctx, el.ID, ownerID, delta); err != nil {
			c.log.Warn(ctx, "size accounting failed", "folder_id", el.ID, "delta", delta, "error", err)
		}
	}
}
