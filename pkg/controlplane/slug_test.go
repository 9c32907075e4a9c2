package controlplane

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in string
		want string
	}{
		{"simple", "My Widget", "my-widget"},
		{"already lowercase", "widget", "widget"},
		{"collapses punctuation", "Acme, Inc.!!", "acme-inc"},
		{"trims leading and trailing separators", " --Acme-- ", "acme"},
		{"numbers preserved", "Plan 2.0", "plan-2-0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLocalPart(t *testing.T) {
	tests := []struct {
		name string
		in string
		want string
	}{
		{"ordinary address", "jane@example.com", "jane"},
		{"no at sign returned unchanged", "not-an-email", "not-an-email"},
		{"at sign at start", "@example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LocalPart(tt.in); got != tt.want {
				t.Errorf("LocalPart(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
