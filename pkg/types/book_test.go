package types

import (
	"errors"
	"testing"
)

func TestBookValidate(t *testing.T) {
	t.Run("title required", func(t *testing.T) {
		err := Book{Title: "   "}.Validate()
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != "title" {
			t.Fatalf("expected title ValidationError, got %v", err)
		}
	})

	t.Run("empty content and cover are allowed", func(t *testing.T) {
		if err := (Book{Title: "A", Author: "B"}).Validate(); err != nil {
			t.Fatalf("expected nil, got %v", err)
		}
	})
}

func TestBookWordCount(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"hello", 1},
		{"  the quick\nbrown\tfox  ", 4},
	}
	for _, tt := range tests {
		if got := (Book{Content: tt.content}).WordCount(); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}
