package update

import "testing"

func TestIsNewer(t *testing.T) {
	tests := []struct {
		remote, local string
		want          bool
	}{
		{"1.2.10", "1.2.9", true},
		{"1.2.9", "1.2.10", false},
		{"v1.2", "1.2.0", false},
		{"1.2.0.1", "1.2", true},
		{"1.2.0", "1.2.0", false},
		{"release-2.0", "1.9.9", true},
		{"1.3.0-beta", "1.3.1", false},
		{"1.3.1-beta", "1.3.0", false},
		{"2", "10", false},
		{"", "0.0.0", false},
	}
	for _, tt := range tests {
		if got := IsNewer(tt.remote, tt.local); got != tt.want {
			t.Errorf("IsNewer(%q, %q) = %v, want %v", tt.remote, tt.local, got, tt.want)
		}
	}
}

func TestNormalizeVersion(t *testing.T) {
	for in, want := range map[string]string{
		"v1.2.3":    "1.2.3",
		" 1.0 ":     "1.0",
		"release-4": "4",
		"latest":    "",
	} {
		if got := NormalizeVersion(in); got != want {
			t.Errorf("NormalizeVersion(%q) = %q, want %q", in, got, want)
		}
	}
}
