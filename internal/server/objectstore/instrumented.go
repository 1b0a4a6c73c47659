package objectstore

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/filevault/internal/server/metrics"
)

// Instrumented records per-operation counters and latency around next.
type Instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

var _ Store = (*Instrumented)(nil)

func NewInstrumented(next Store, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (s *Instrumented) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	start := time.Now()
	err := s.next.Put(ctx, key, body, size, contentType)
	s.metrics.ObserveObjectOp("put", start, err)
	return err
}

func (s *Instrumented) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := s.next.Get(ctx, key)
	s.metrics.ObserveObjectOp("get", start, err)
	return rc, err
}

func (s *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.metrics.ObserveObjectOp("delete", start, err)
	return err
}

func (s *Instrumented) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	start := time.Now()
	failed, err := s.next.DeleteMany(ctx, keys)
	s.metrics.ObserveObjectOp("delete_many", start, err)
	return failed, err
}

func (s *Instrumented) PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	start := time.Now()
	url, err := s.next.PresignedGetURL(ctx, key, ttl)
	s.metrics.ObserveObjectOp("presign", start, err)
	return url, err
}

func (s *Instrumented) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := s.next.HealthCheck(ctx)
	s.metrics.ObserveObjectOp("health", start, err)
	return err
}
