package slug

import "testing"

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Forest Hiker", "the-forest-hiker"},
		{"Sea & Surf!", "sea-surf"},
		{"  multi   word ", "multi-word"},
		{"snow_adventurer", "snow-adventurer"},
		{"--Leading--", "leading"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Make(tt.in); got != tt.want {
			t.Errorf("Make(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
