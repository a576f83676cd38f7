package main

import (
	"path/filepath"
	"testing"
)

func TestAnnotatedPath(t *testing.T) {
	tests := []struct {
		path   string
		format string
		want   string
	}{
		{"cat.png", "png", "cat.annotated.png"},
		{filepath.Join("photos", "cat.jpg"), "jpeg", filepath.Join("photos", "cat.annotated.jpeg")},
		{"frame.webp", "jpeg", "frame.annotated.jpeg"},
		{"noext", "", "noext.annotated"},
	}

	for _, tt := range tests {
		if got := annotatedPath(tt.path, tt.format); got != tt.want {
			t.Errorf("annotatedPath(%q, %q) = %q, want %q", tt.path, tt.format, got, tt.want)
		}
	}
}
