package tree

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// SnapshotSubtree captures folderRef and everything below it. Relative
// paths start below the snapshot root, so snapshotting "docs" yields
// "a.txt" and "imgs/b.png". Within a folder files come before subfolders;
// clashing names get a " (n)" suffix so archive paths stay unique.
func (e *Engine) SnapshotSubtree(ctx context.Context, folderRef, userID string) (*models.SnapshotNode, error) {
	root := &models.SnapshotNode{ID: common.RootFolderID, Name: common.RootFolderID, Kind: models.KindFolder}
	if !models.IsRoot(folderRef) {
		f, err := e.ownedFolder(ctx, folderRef, userID)
		if err != nil {
			return nil, err
		}
		root.ID, root.Name, root.Size = f.ID, f.Name, f.Size
	}

	stack := []*models.SnapshotNode{root}
	seen := make(map[string]bool)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[node.ID] {
			return nil, fmt.Errorf("snapshot: %w: folder %s reached twice", common.ErrorInconsistentState, node.ID)
		}
		seen[node.ID] = true

		parent := models.ParentFromRef(node.ID)
		fs, err := e.files.ListInFolder(ctx, userID, parent)
		if err != nil {
			return nil, err
		}
		subs, err := e.folders.ListChildren(ctx, userID, parent)
		if err != nil {
			return nil, err
		}

		used := make(map[string]bool, len(fs)+len(subs))
		for _, f := range fs {
			name := uniqueName(used, f.Name)
			node.Children = append(node.Children, &models.SnapshotNode{
				ID:           f.ID,
				Name:         name,
				Kind:         models.KindFile,
				ContentRef:   f.ID,
				RelativePath: path.Join(node.RelativePath, name),
				Size:         f.Size,
			})
		}
		var folderNodes []*models.SnapshotNode
		for _, sub := range subs {
			name := uniqueName(used, sub.Name)
			child := &models.SnapshotNode{
				ID:           sub.ID,
				Name:         name,
				Kind:         models.KindFolder,
				RelativePath: path.Join(node.RelativePath, name),
				Size:         sub.Size,
			}
			node.Children = append(node.Children, child)
			folderNodes = append(folderNodes, child)
		}
		for i := len(folderNodes) - 1; i >= 0; i-- {
			stack = append(stack, folderNodes[i])
		}
	}
	return root, nil
}

func uniqueName(used map[string]bool, name string) string {
	if !used[name] {
		used[name] = true
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
