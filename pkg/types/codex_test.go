package types

import (
	"errors"
	"testing"
)

func TestCodexEntryValidate(t *testing.T) {
	tests := []struct {
		name      string
		entry     CodexEntry
		wantField string
	}{
		{"missing name", CodexEntry{Category: CategoryItems, Description: "d"}, "name"},
		{"missing description", CodexEntry{Category: CategoryItems, Name: "Sword"}, "description"},
		{"valid", CodexEntry{Category: CategoryItems, Name: "Sword", Description: "sharp"}, ""},
		{"unknown category is not a store error", CodexEntry{Category: "Recipes", Name: "Stew", Description: "hot"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.wantField {
				t.Fatalf("expected field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}

func TestCodexEntryValidateCategory(t *testing.T) {
	for _, c := range CodexCategories {
		if err := (CodexEntry{Category: c}).ValidateCategory(); err != nil {
			t.Errorf("category %q: unexpected error %v", c, err)
		}
	}
	err := CodexEntry{Category: "Recipes"}.ValidateCategory()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCodexEntryIsGlobal(t *testing.T) {
	id := int64(3)
	if !(CodexEntry{}).IsGlobal() {
		t.Fatal("entry without book should be global")
	}
	if (CodexEntry{BookID: &id}).IsGlobal() {
		t.Fatal("entry with book should not be global")
	}
}
