// Package archive turns a subtree snapshot into a zip stream. Files are
// spooled through a scratch directory one at a time, so memory use does
// not grow with the size of the tree.
package archive

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/filevault/internal/filex"
	"github.com/klauspost/compress/zip"
)

// Writer is the archive format capability used by Assembler.
type Writer interface {
	AddDirectory(path string) error
	AddFile(path string, body io.Reader) error
	// Finalize completes the archive and returns it for reading from the
	// start, with its size. Closing the reader releases the backing storage.
	Finalize() (io.ReadCloser, int64, error)
	// Abort discards a partially written archive.
	Abort() error
}

// ZipWriter writes a zip archive into a scratch file.
type ZipWriter struct {
	scratch *filex.Scratch
	file    *os.File
	zw      *zip.Writer
	now     func() time.Time
}

var _ Writer = (*ZipWriter)(nil)

func NewZipWriter(scratch *filex.Scratch) (*ZipWriter, error) {
	f, err := scratch.CreateTemp("archive-*.zip")
	if err != nil {
		return nil, err
	}
	return &ZipWriter{scratch: scratch, file: f, zw: zip.NewWriter(f), now: time.Now}, nil
}

func (w *ZipWriter) AddDirectory(path string) error {
	name := strings.TrimSuffix(path, "/") + "/"
	if name == "/" {
		return nil
	}
	_, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: w.now(),
	})
	if err != nil {
		return fmt.Errorf("zip dir %s: %w", name, err)
	}
	return nil
}

func (w *ZipWriter) AddFile(path string, body io.Reader) error {
	entry, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     path,
		Method:   zip.Deflate,
		Modified: w.now(),
	})
	if err != nil {
		return fmt.Errorf("zip file %s: %w", path, err)
	}
	if _, err := io.Copy(entry, body); err != nil {
		return fmt.Errorf("zip file %s: %w", path, err)
	}
	return nil
}

func (w *ZipWriter) Finalize() (io.ReadCloser, int64, error) {
	if err := w.zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("zip close: %w", err)
	}
	size, err := w.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("zip size: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("zip rewind: %w", err)
	}
	return &scratchReader{File: w.file, scratch: w.scratch}, size, nil
}

func (w *ZipWriter) Abort() error {
	_ = w.zw.Close()
	_ = w.file.Close()
	return w.scratch.Remove(w.file.Name())
}

// scratchReader removes the whole scratch directory when closed.
type scratchReader struct {
	*os.File
	scratch *filex.Scratch
}

func (r *scratchReader) Close() error {
	err := r.File.Close()
	if cerr := r.scratch.Cleanup(); err == nil {
		err = cerr
	}
	return err
}
