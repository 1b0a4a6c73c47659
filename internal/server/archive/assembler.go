package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/models"
	"github.com/dustin/go-humanize"
)

// ObjectReader is the part of the object store the assembler needs.
type ObjectReader interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

type Assembler struct {
	objects     ObjectReader
	scratchRoot string
	log         logging.Logger
	newWriter   func(*filex.Scratch) (Writer, error)
}

func NewAssembler(objects ObjectReader, scratchRoot string, log logging.Logger) *Assembler {
	return &Assembler{
		objects:     objects,
		scratchRoot: scratchRoot,
		log:         log.With("module", "archive"),
		newWriter: func(s *filex.Scratch) (Writer, error) {
			return NewZipWriter(s)
		},
	}
}

// BuildArchive writes every node below snapshot into a new archive. Folder
// nodes become directory entries even when empty. On any error, including
// cancellation, scratch files are removed and no archive is returned.
func (a *Assembler) BuildArchive(ctx context.Context, snapshot *models.SnapshotNode) (rc io.ReadCloser, size int64, err error) {
	if snapshot == nil || snapshot.IsEmpty() {
		return nil, 0, common.ErrorEmptySubtree
	}

	scratch, err := filex.NewScratch(a.scratchRoot, "build-*")
	if err != nil {
		return nil, 0, fmt.Errorf("archive scratch: %w", err)
	}
	w, err := a.newWriter(scratch)
	if err != nil {
		_ = scratch.Cleanup()
		return nil, 0, fmt.Errorf("archive writer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = w.Abort()
			_ = scratch.Cleanup()
		}
	}()

	var files int
	err = snapshot.Walk(func(n *models.SnapshotNode) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n == snapshot {
			return nil
		}
		switch n.Kind {
		case models.KindFolder:
			return w.AddDirectory(n.RelativePath)
		case models.KindFile:
			files++
			return a.addFile(ctx, scratch, w, n)
		default:
			return fmt.Errorf("snapshot node %s: %w: kind %q", n.ID, common.ErrorInconsistentState, n.Kind)
		}
	})
	if err != nil {
		return nil, 0, err
	}

	rc, size, err = w.Finalize()
	if err != nil {
		return nil, 0, err
	}
	a.log.Info(ctx, "archive built", "root", snapshot.ID, "files", files, "size", humanize.Bytes(uint64(size)))
	return rc, size, nil
}

// addFile spools one object to disk before adding it, so a stalled object
// read never leaves a half-written zip entry behind.
func (a *Assembler) addFile(ctx context.Context, scratch *filex.Scratch, w Writer, n *models.SnapshotNode) error {
	body, err := a.objects.Get(ctx, n.ContentRef)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			a.log.Error(ctx, "object missing for file", "file_id", n.ID, "key", n.ContentRef)
			return fmt.Errorf("object %s: %w", n.ContentRef, common.ErrorInconsistentState)
		}
		return fmt.Errorf("fetch %s: %w", n.ContentRef, err)
	}
	defer body.Close()

	spool, err := scratch.CreateTemp("obj-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = spool.Close()
		_ = scratch.Remove(spool.Name())
	}()

	if _, err := io.Copy(spool, contextReader{ctx: ctx, r: body}); err != nil {
		return fmt.Errorf("spool %s: %w", n.ContentRef, err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return w.AddFile(n.RelativePath, spool)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
