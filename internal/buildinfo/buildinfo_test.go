package buildinfo

import "testing"

func TestParseVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		tag       string
		wantMajor int
		wantMinor int
		wantPatch int
		wantErr   bool
	}{
		{"basic", "v0.1.0", 0, 1, 0, false},
		{"multi digit", "v10.20.30", 10, 20, 30, false},
		{"no v prefix", "1.2.3", 1, 2, 3, false},
		{"with build suffix", "v1.2.3-18", 1, 2, 3, false},
		{"too few parts", "1.2", 0, 0, 0, true},
		{"too many parts", "1.2.3.4", 0, 0, 0, true},
		{"non numeric", "v1.a.3", 0, 0, 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			major, minor, patch, err := ParseVersion(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVersion(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if major != tt.wantMajor || minor != tt.wantMinor || patch != tt.wantPatch {
				t.Fatalf("ParseVersion(%q) = %d.%d.%d, want %d.%d.%d",
					tt.tag, major, minor, patch, tt.wantMajor, tt.wantMinor, tt.wantPatch)
			}
		})
	}
}

func TestDescribeNeverFails(t *testing.T) {
	t.Parallel()
	// Describe must degrade gracefully (e.g. no .git directory, no tags
	// yet) rather than propagate an error to its caller.
	got := Describe()
	if got == "" {
		t.Fatal("Describe returned empty string")
	}
}
