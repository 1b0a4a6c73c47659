package models

// EntityKind distinguishes files from folders in plans and snapshots.
type EntityKind string

const (
	KindFile   EntityKind = "file"
	KindFolder EntityKind = "folder"
)

// EntityRef names a single row touched by a cascade.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// DeletePlan is the output of recursive delete planning.
//
// Folders lists folder ids in post-order: every folder appears after all of
// its descendants. Files holds every file in the subtree exactly once.
// When the plan targets home, RootID is RootFolderID and Folders contains
// only real folders. ParentRef is the folder containing RootID.
type DeletePlan struct {
	OwnerID   string
	RootID    string
	ParentRef string
	Files     []File
	Folders   []string
}

// Keys returns the object-store keys of all files in the plan.
func (p *DeletePlan) Keys() []string {
	keys := make([]string, 0, len(p.Files))
	for _, f := range p.Files {
		keys = append(keys, f.ID)
	}
	return keys
}

// TotalSize sums the sizes of all files in the plan.
func (p *DeletePlan) TotalSize() int64 {
	var n int64
	for _, f := range p.Files {
		n += f.Size
	}
	return n
}

// SnapshotNode is one entry of a subtree snapshot used for archiving.
// RelativePath is relative to the snapshot root, which itself has an empty
// path.
type SnapshotNode struct {
	ID           string
	Name         string
	Kind         EntityKind
	ContentRef   string
	RelativePath string
	Size         int64
	Children     []*SnapshotNode
}

// IsEmpty reports whether a folder node has no children at all.
func (n *SnapshotNode) IsEmpty() bool {
	return len(n.Children) == 0
}

// Walk visits n and its descendants depth-first, parents before children,
// without recursion.
func (n *SnapshotNode) Walk(fn func(*SnapshotNode) error) error {
	stack := []*SnapshotNode{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := fn(cur); err != nil {
			return err
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return nil
}

// PrivacyPlan lists every entity of a subtree whose privacy flag is to be
// set to Private.
type PrivacyPlan struct {
	OwnerID  string
	RootID   string
	Private  bool
	Entities []EntityRef
}
