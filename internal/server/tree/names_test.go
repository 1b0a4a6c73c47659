package tree

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"report.pdf", false},
		{" spaced ", false},
		{"", true},
		{"   ", true},
		{"..", true},
		{"a/b", true},
		{`a\b`, true},
		{strings.Repeat("x", 256), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrorInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitRelativePath(t *testing.T) {
	dirs, leaf, err := SplitRelativePath(`photos\2024//beach.jpg`)
	require.NoError(t, err)
	assert.Equal(t, []string{"photos", "2024", ""}, dirs)
	assert.Equal(t, "beach.jpg", leaf)

	dirs, leaf, err = SplitRelativePath("plain.txt")
	require.NoError(t, err)
	assert.Empty(t, dirs)
	assert.Equal(t, "plain.txt", leaf)

	_, _, err = SplitRelativePath("dir/")
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
}
