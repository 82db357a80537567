package usecase

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateAtRune(t *testing.T) {
	cases := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"shorter than cap", "revenue", 20, "revenue"},
		{"exact length", "revenue", 7, "revenue"},
		{"ascii cut", "net sales increased", 9, "net sales"},
		{"cut inside euro sign", "12€", 3, "12"},
		{"cut inside em dash", "a—b", 2, "a"},
		{"multibyte kept when whole", "12€", 5, "12€"},
		{"zero cap", "revenue", 0, ""},
		{"negative cap", "revenue", -1, ""},
		{"empty", "", 5, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateAtRune(tc.in, tc.max)
			if got != tc.want {
				t.Fatalf("truncateAtRune(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("result is not valid UTF-8: %q", got)
			}
		})
	}
}
