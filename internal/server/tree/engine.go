// Package tree plans and queries a user's folder hierarchy. It never
// mutates content; delete and privacy plans are executed elsewhere.
//
// Every traversal uses an explicit stack so tree depth is bounded only by
// memory, and results are ordered by name then id.
package tree

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/files"
	"github.com/dmitrijs2005/filevault/internal/server/repositories/folders"
	"github.com/google/uuid"
)

type Engine struct {
	folders folders.Repository
	files   files.Repository
	newID   func() string
}

func New(folders folders.Repository, files files.Repository) *Engine {
	return &Engine{folders: folders, files: files, newID: uuid.NewString}
}

// ownedFolder loads ref and hides folders owned by someone else.
func (e *Engine) ownedFolder(ctx context.Context, ref, userID string) (*models.Folder, error) {
	f, err := e.folders.GetByID(ctx, ref)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != userID {
		return nil, common.ErrorNotFound
	}
	return f, nil
}

// ListContents returns the files and subfolders directly inside folderRef.
func (e *Engine) ListContents(ctx context.Context, folderRef, userID string) ([]*models.File, []*models.Folder, error) {
	if !models.IsRoot(folderRef) {
		if _, err := e.ownedFolder(ctx, folderRef, userID); err != nil {
			return nil, nil, err
		}
	}
	parent := models.ParentFromRef(folderRef)

	fs, err := e.files.ListInFolder(ctx, userID, parent)
	if err != nil {
		return nil, nil, err
	}
	subs, err := e.folders.ListChildren(ctx, userID, parent)
	if err != nil {
		return nil, nil, err
	}
	return fs, subs, nil
}

// ResolvePath returns the chain from home down to folderRef inclusive.
func (e *Engine) ResolvePath(ctx context.Context, folderRef, userID string) ([]models.PathElement, error) {
	if models.IsRoot(folderRef) {
		return []models.PathElement{models.HomePathElement}, nil
	}

	cur, err := e.ownedFolder(ctx, folderRef, userID)
	if err != nil {
		return nil, err
	}

	chain := []models.PathElement{{ID: cur.ID, Name: cur.Name}}
	seen := map[string]bool{cur.ID: true}

	for cur.ParentID != nil {
		pid := *cur.ParentID
		if seen[pid] {
			return nil, fmt.Errorf("resolve path %s: %w: cycle at %s", folderRef, common.ErrorInconsistentState, pid)
		}
		seen[pid] = true

		parent, err := e.folders.GetByID(ctx, pid)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, fmt.Errorf("resolve path %s: %w: missing ancestor %s", folderRef, common.ErrorInconsistentState, pid)
			}
			return nil, err
		}
		if parent.OwnerID != userID {
			return nil, fmt.Errorf("resolve path %s: %w: ancestor %s has another owner", folderRef, common.ErrorInconsistentState, pid)
		}
		chain = append(chain, models.PathElement{ID: parent.ID, Name: parent.Name})
		cur = parent
	}

	path := make([]models.PathElement, 0, len(chain)+1)
	path = append(path, models.HomePathElement)
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, chain[i])
	}
	return path, nil
}

// EnsurePath walks segments below startParent, creating missing folders as
// private. Blank segments are skipped. It returns the terminal folder
// reference and how many folders it created.
//
// A create that loses a race to a concurrent caller re-reads the winner's
// row, so two callers with the same path end up with one folder per segment.
func (e *Engine) EnsurePath(ctx context.Context, segments []string, userID, startParent string) (string, int, error) {
	current := common.RootFolderID
	if !models.IsRoot(startParent) {
		f, err := e.ownedFolder(ctx, startParent, userID)
		if err != nil {
			return "", 0, err
		}
		current = f.ID
	}

	created := 0
	for _, seg := range segments {
		name, skip, err := CleanSegment(seg)
		if err != nil {
			return "", created, err
		}
		if skip {
			continue
		}

		parent := models.ParentFromRef(current)
		existing, err := e.folders.FindChild(ctx, userID, parent, name)
		if err == nil {
			current = existing.ID
			continue
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return "", created, err
		}

		folder := &models.Folder{
			ID:       e.newID(),
			Name:     name,
			OwnerID:  userID,
			ParentID: parent,
			Private:  true,
		}
		err = e.folders.Create(ctx, folder)
		switch {
		case err == nil:
			created++
			current = folder.ID
		case errors.Is(err, common.ErrorAlreadyExists):
			existing, err := e.folders.FindChild(ctx, userID, parent, name)
			if err != nil {
				return "", created, fmt.Errorf("reread %q after create race: %w", name, err)
			}
			current = existing.ID
		default:
			return "", created, err
		}
	}
	return current, created, nil
}

type frame struct {
	id       string
	expanded bool
}

// PlanRecursiveDelete collects the subtree under folderRef. Folders come out
// in post-order. For home the plan covers the whole account: every top-level
// folder plus the files stored directly at home.
func (e *Engine) PlanRecursiveDelete(ctx context.Context, folderRef, userID string) (*models.DeletePlan, error) {
	plan := &models.DeletePlan{OwnerID: userID, RootID: common.RootFolderID}

	var stack []frame
	if models.IsRoot(folderRef) {
		rootFiles, err := e.files.ListInFolder(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		for _, f := range rootFiles {
			plan.Files = append(plan.Files, *f)
		}
		tops, err := e.folders.ListChildren(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		for i := len(tops) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: tops[i].ID})
		}
	} else {
		f, err := e.ownedFolder(ctx, folderRef, userID)
		if err != nil {
			return nil, err
		}
		plan.RootID = f.ID
		plan.ParentRef = f.ParentRef()
		stack = append(stack, frame{id: f.ID})
	}

	seen := make(map[string]bool)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.expanded {
			plan.Folders = append(plan.Folders, top.id)
			continue
		}
		if seen[top.id] {
			return nil, fmt.Errorf("plan delete: %w: folder %s reached twice", common.ErrorInconsistentState, top.id)
		}
		seen[top.id] = true
		stack = append(stack, frame{id: top.id, expanded: true})

		parent := &top.id
		fs, err := e.files.ListInFolder(ctx, userID, parent)
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			plan.Files = append(plan.Files, *f)
		}
		children, err := e.folders.ListChildren(ctx, userID, parent)
		if err != nil {
			return nil, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i].ID})
		}
	}
	return plan, nil
}

// PlanPrivacyCascade lists the folder, its files, and then every descendant
// folder with its files, each exactly once.
func (e *Engine) PlanPrivacyCascade(ctx context.Context, folderRef string, private bool, userID string) (*models.PrivacyPlan, error) {
	if models.IsRoot(folderRef) {
		return nil, fmt.Errorf("privacy of home: %w", common.ErrorInvalidInput)
	}
	root, err := e.ownedFolder(ctx, folderRef, userID)
	if err != nil {
		return nil, err
	}

	plan := &models.PrivacyPlan{OwnerID: userID, RootID: root.ID, Private: private}
	stack := []string{root.ID}
	seen := make(map[string]bool)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return nil, fmt.Errorf("plan privacy: %w: folder %s reached twice", common.ErrorInconsistentState, id)
		}
		seen[id] = true
		plan.Entities = append(plan.Entities, models.EntityRef{Kind: models.KindFolder, ID: id})

		fs, err := e.files.ListInFolder(ctx, userID, &id)
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			plan.Entities = append(plan.Entities, models.EntityRef{Kind: models.KindFile, ID: f.ID})
		}
		children, err := e.folders.ListChildren(ctx, userID, &id)
		if err != nil {
			return nil, err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i].ID)
		}
	}
	return plan, nil
}
