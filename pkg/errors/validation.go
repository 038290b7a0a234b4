package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// datasetNameRegex matches identifiers that are safe to interpolate as SQL
// table names in every supported store dialect.
var datasetNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateDatasetName validates a dataset (table) name before it is used in SQL.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - Maximum length of 63 characters (the Postgres identifier limit)
//   - ASCII letters, digits and underscore only, not starting with a digit
func ValidateDatasetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidDataset, "dataset name cannot be empty")
	}
	if len(name) > 63 {
		return New(ErrCodeInvalidDataset, "dataset name too long (max 63 characters)")
	}
	if !datasetNameRegex.MatchString(name) {
		return New(ErrCodeInvalidDataset, "invalid dataset name: %q", name)
	}
	return nil
}

// ValidateArtifactKey validates an artifact key for safety.
// Keys are relative slash-separated paths; traversal and control characters
// are rejected so filesystem and object-store backends see the same key space.
func ValidateArtifactKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "artifact key cannot be empty")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "artifact key contains invalid characters")
		}
	}
	if strings.HasPrefix(key, "/") {
		return New(ErrCodeInvalidInput, "artifact key must be relative")
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return New(ErrCodeInvalidInput, "artifact key contains invalid characters: %q", key)
	}
	return nil
}
