package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestValidSessionCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"482913", true},
		{"100000", true},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"-12345", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := validSessionCode(tt.code); got != tt.want {
			t.Errorf("validSessionCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 60); got != "short" {
		t.Errorf("truncate() = %q, want %q", got, "short")
	}

	got := truncate(strings.Repeat("x", 100), 60)
	if len(got) != 60 {
		t.Errorf("truncated length = %d, want 60", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string does not end with ellipsis: %q", got)
	}
}

func TestTruncateMultiByte(t *testing.T) {
	got := truncate(strings.Repeat("日本語", 40), 60)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 60 {
		t.Errorf("rune count = %d, want 60", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated string does not end with ellipsis: %q", got)
	}
}
