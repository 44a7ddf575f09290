package handlers

import "testing"

func TestEtagMatches(t *testing.T) {
	const etag = `"abc123"`

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"empty", "", false},
		{"exact", `"abc123"`, true},
		{"weak", `W/"abc123"`, true},
		{"list", `"zzz", "abc123"`, true},
		{"wildcard", "*", true},
		{"other", `"zzz"`, false},
		{"unquoted", "abc123", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := etagMatches(tt.header, etag); got != tt.want {
				t.Fatalf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}
