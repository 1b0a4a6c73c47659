package memstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Put(ctx, "k1", strings.NewReader("hello"), 5, "text/plain"))
	rc, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Delete(ctx, "k1"))
	require.NoError(t, s.Delete(ctx, "k1"))
	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPut_SizeMismatch(t *testing.T) {
	s := New()
	err := s.Put(context.Background(), "k1", strings.NewReader("hello"), 3, "")
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
	assert.False(t, s.Has("k1"))
}

func TestDeleteMany_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, k, strings.NewReader("x"), 1, ""))
	}
	boom := errors.New("boom")
	s.FailDelete = func(key string) error {
		if key == "b" {
			return boom
		}
		return nil
	}

	failed, err := s.DeleteMany(ctx, []string{"a", "b", "c"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"b"}, failed)
	assert.Equal(t, 1, s.Len())
}

func TestPresignedGetURL(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.PresignedGetURL(ctx, "nope", time.Minute)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.Put(ctx, "k1", strings.NewReader("x"), 1, ""))
	u, err := s.PresignedGetURL(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "mem://objects/k1?expires="))
}
