package clipboard

import (
	"errors"
	"testing"
)

func TestReadScreensEmptyContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{"normal text", "hello", "hello", nil},
		{"empty", "", "", ErrEmpty},
		{"whitespace only", "  \n\t ", "", ErrEmpty},
		{"text with surrounding space", "  hi  ", "  hi  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewWithFuncs(
				func() (string, error) { return tt.content, nil },
				func(string) error { return nil },
			)

			got, err := a.Read()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Read() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Read() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	var written string
	a := NewWithFuncs(
		func() (string, error) { return "", nil },
		func(s string) error { written = s; return nil },
	)

	if err := a.Write("shared text"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if written != "shared text" {
		t.Errorf("written = %q, want %q", written, "shared text")
	}
}
