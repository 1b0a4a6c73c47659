package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- HTTPStatus / PublicMessage ----------

func TestHTTPStatus_Taxonomy(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrorInvalidInput, http.StatusBadRequest},
		{ErrorEmptySubtree, http.StatusBadRequest},
		{ErrorUnauthorized, http.StatusUnauthorized},
		{ErrTokenExpired, http.StatusUnauthorized},
		{ErrorForbidden, http.StatusForbidden},
		{fmt.Errorf("folder x: %w", ErrorNotFound), http.StatusNotFound},
		{ErrorAlreadyExists, http.StatusConflict},
		{ErrorStoreUnavailable, http.StatusInternalServerError},
		{ErrorInconsistentState, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "err=%v", tt.err)
	}
}

func TestPublicMessage_HidesDetails(t *testing.T) {
	err := fmt.Errorf("pq: relation \"folders\" does not exist: %w", ErrorStoreUnavailable)
	assert.Equal(t, "store unavailable", PublicMessage(err))

	assert.Equal(t, "internal error", PublicMessage(errors.New("driver exploded at 0xdeadbeef")))
	assert.Equal(t, "internal error", PublicMessage(fmt.Errorf("x: %w", ErrorInconsistentState)))
	assert.Equal(t, "not found", PublicMessage(fmt.Errorf("folder abc: %w", ErrorNotFound)))
	assert.Equal(t, "", PublicMessage(nil))
}
