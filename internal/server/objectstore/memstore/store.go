// Package memstore is an in-process object store for tests and local runs.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/objectstore"
)

type object struct {
	data        []byte
	contentType string
}

// Store keeps objects in a map. Fail* hooks inject errors per operation.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object

	// FailPut, FailGet and FailDelete, when set, are consulted before the
	// corresponding operation; a non-nil result aborts it.
	FailPut    func(key string) error
	FailGet    func(key string) error
	FailDelete func(key string) error
}

var _ objectstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.FailPut != nil {
		if err := s.FailPut(key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put %s: %w: size %d, read %d", key, common.ErrorInvalidInput, size, len(data))
	}
	s.mu.Lock()
	s.objects[key] = object{data: data, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.FailGet != nil {
		if err := s.FailGet(key); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.FailDelete != nil {
		if err := s.FailDelete(key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	var failed []string
	var firstErr error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			failed = append(failed, k)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return failed, firstErr
}

// PresignedGetURL returns a mem:// URL carrying the expiry; it is only
// meaningful to tests.
func (s *Store) PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if !s.Has(key) {
		return "", common.ErrorNotFound
	}
	q := url.Values{}
	q.Set("expires", time.Now().Add(ttl).UTC().Format(time.RFC3339))
	return "mem://objects/" + url.PathEscape(key) + "?" + q.Encode(), nil
}

func (s *Store) HealthCheck(context.Context) error { return nil }

func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Bytes returns a copy of the stored object, or nil.
func (s *Store) Bytes(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), obj.data...)
}
