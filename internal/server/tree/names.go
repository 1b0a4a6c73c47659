package tree

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/filevault/internal/common"
)

const maxNameLength = 255

// ValidateName checks a single folder or file name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return fmt.Errorf("empty name: %w", common.ErrorInvalidInput)
	case trimmed == "." || trimmed == "..":
		return fmt.Errorf("name %q: %w", name, common.ErrorInvalidInput)
	case strings.ContainsAny(trimmed, "/\\\x00"):
		return fmt.Errorf("name %q contains a separator: %w", name, common.ErrorInvalidInput)
	case utf8.RuneCountInString(trimmed) > maxNameLength:
		return fmt.Errorf("name longer than %d characters: %w", maxNameLength, common.ErrorInvalidInput)
	}
	return nil
}

// CleanSegment trims one path segment. Blank segments report skip.
func CleanSegment(seg string) (name string, skip bool, err error) {
	name = strings.TrimSpace(seg)
	if name == "" {
		return "", true, nil
	}
	if err := ValidateName(name); err != nil {
		return "", false, err
	}
	return name, false, nil
}

// SplitRelativePath splits "a/b/c.txt" into directory segments and the leaf
// name. Backslashes are treated as separators.
func SplitRelativePath(rel string) ([]string, string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	parts := strings.Split(rel, "/")
	leaf := strings.TrimSpace(parts[len(parts)-1])
	if err := ValidateName(leaf); err != nil {
		return nil, "", err
	}
	return parts[:len(parts)-1], leaf, nil
}
