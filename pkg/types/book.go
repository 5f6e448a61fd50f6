package types

import (
	"strings"
	"time"
)

// Book is a document in the personal library.
type Book struct {
	ID        int64     `json:"id,omitempty"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CoverURL  string    `json:"coverUrl"`
	Content   string    `json:"content"` // Serialized rich text; opaque to the store.
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key returns the book ID.
func (b Book) Key() int64 { return b.ID }

// Validate checks the fields required before a write.
func (b Book) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}

// WordCount returns the number of whitespace-separated words in Content.
func (b Book) WordCount() int {
	return len(strings.Fields(b.Content))
}
