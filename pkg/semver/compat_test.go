package semver

import (
	"errors"
	"testing"
)

func TestNewAcceptor(t *testing.T) {
	tests := []struct {
		name      string
		rangeStr  string
		wantRange string
		wantErr   bool
	}{
		{"default", "", DefaultAcceptRange, false},
		{"caret", "^2.1.0", "^2.1.0", false},
		{"compound", ">=1.0.0, <3", ">=1.0.0, <3", false},
		{"trimmed", "  ~1.2  ", "~1.2", false},
		{"invalid", "not a range", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAcceptor(tt.rangeStr)
			if tt.wantErr {
				if err == nil {
					t.Fatal("semver:compat_test - expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("semver:compat_test - unexpected error: %v", err)
			}
			if a.Range() != tt.wantRange {
				t.Errorf("semver:compat_test - Range() = %q, want %q", a.Range(), tt.wantRange)
			}
		})
	}
}

func TestAcceptor_Check(t *testing.T) {
	a, err := NewAcceptor("^1.0.0")
	if err != nil {
		t.Fatalf("semver:compat_test - NewAcceptor failed: %v", err)
	}

	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"1.4.2", false},
		{"2.0.0", true},
		{"0.9.0", true},
		{"", true},
		{"garbage", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := a.Check(tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("semver:compat_test - Check(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrIncompatible) {
				t.Errorf("semver:compat_test - error should wrap ErrIncompatible: %v", err)
			}
		})
	}
}
