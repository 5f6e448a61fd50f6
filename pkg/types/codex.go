package types

import (
	"fmt"
	"strings"
)

// Codex categories. Entries are indexed by category. The store accepts any
// value; lookups are only meaningful for categories in this set.
const (
	CategoryCharacters    = "Characters"
	CategoryLocations     = "Locations"
	CategoryEvents        = "Events"
	CategoryItems         = "Items"
	CategoryNotes         = "Notes"
	CategoryWorldBuilding = "World Building"
)

// CodexCategories lists the known categories in display order.
var CodexCategories = []string{
	CategoryCharacters,
	CategoryLocations,
	CategoryEvents,
	CategoryItems,
	CategoryNotes,
	CategoryWorldBuilding,
}

var validCategories = map[string]bool{
	CategoryCharacters:    true,
	CategoryLocations:     true,
	CategoryEvents:        true,
	CategoryItems:         true,
	CategoryNotes:         true,
	CategoryWorldBuilding: true,
}

// IsCodexCategory reports whether category belongs to the known set.
func IsCodexCategory(category string) bool {
	return validCategories[category]
}

// CodexEntry is a structured worldbuilding note, scoped to one book or
// global when BookID is nil.
type CodexEntry struct {
	ID          int64  `json:"id,omitempty"`
	BookID      *int64 `json:"bookId"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Key returns the entry ID.
func (e CodexEntry) Key() int64 { return e.ID }

// IsGlobal reports whether the entry is independent of any book.
func (e CodexEntry) IsGlobal() bool { return e.BookID == nil }

// Validate checks the fields required before a write.
func (e CodexEntry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	return nil
}

// ValidateCategory checks that Category belongs to the known set. The store
// does not call it; front ends do before offering an entry for a category.
func (e CodexEntry) ValidateCategory() error {
	if !IsCodexCategory(e.Category) {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", e.Category)}
	}
	return nil
}
