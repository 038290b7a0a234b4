package errors

import (
	"strings"
	"testing"
)

func TestValidateDatasetName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "viewsheds", false},
		{"underscore", "vs_intersect", false},
		{"leading underscore", "_tmp", false},
		{"digits", "network7", false},
		{"empty", "", true},
		{"leading digit", "7network", true},
		{"space", "vs intersect", true},
		{"quote", `vs"; DROP TABLE x; --`, true},
		{"dot", "main.viewsheds", true},
		{"too long", strings.Repeat("a", 64), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatasetName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDatasetName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidDataset) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidDataset)
			}
		})
	}
}

func TestValidateArtifactKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"flat", "viewshed_0001.bpr", false},
		{"nested", "run/observers_0001.json", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../secret", true},
		{"backslash", `a\b`, true},
		{"control", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifactKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
