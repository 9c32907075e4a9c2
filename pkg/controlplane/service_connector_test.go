package controlplane

import "testing"

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name string
		in string
		want string
	}{
		{"short string fully masked", "ab", "****"},
		{"exactly four chars fully masked", "abcd", "****"},
		{"longer secret keeps edges", "sk_live_abcdef1234", "sk****34"},
		{"empty string fully masked", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.in); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
