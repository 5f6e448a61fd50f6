package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/alchemist/pkg/autosave"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// Session is one open book in the editor. It holds the in-memory copy the
// editor shows and submits every change to the autosave pipeline.
//
// After a failed save the in-memory copy is not rolled back; Status reports
// StatusFailed and Retry re-submits.
type Session struct {
	lib *Library

	mu   sync.Mutex
	book types.Book
}

// Open loads the book with id. It returns types.ErrNotFound if absent.
func (l *Library) Open(ctx context.Context, id int64) (*Session, error) {
	bk, found, err := l.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("book %d: %w", id, types.ErrNotFound)
	}
	return &Session{lib: l, book: bk}, nil
}

// Book returns the in-memory copy of the book.
func (s *Session) Book() types.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book
}

// ID returns the book key.
func (s *Session) ID() int64 { return s.Book().ID }

// OnContentChange is the editor's change hook.
func (s *Session) OnContentChange(text string) error {
	return s.edit(autosave.ClassContent, func(bk *types.Book) { bk.Content = text })
}

// SetTitle changes the title.
func (s *Session) SetTitle(title string) error {
	return s.edit(autosave.ClassMetadata, func(bk *types.Book) { bk.Title = title })
}

// SetAuthor changes the author.
func (s *Session) SetAuthor(author string) error {
	return s.edit(autosave.ClassMetadata, func(bk *types.Book) { bk.Author = author })
}

// SetCoverURL changes the cover image URL.
func (s *Session) SetCoverURL(url string) error {
	return s.edit(autosave.ClassMetadata, func(bk *types.Book) { bk.CoverURL = url })
}

// Text returns the in-memory content.
func (s *Session) Text() string { return s.Book().Content }

// Append appends text to the content as one content edit.
func (s *Session) Append(text string) error {
	return s.edit(autosave.ClassContent, func(bk *types.Book) { bk.Content += text })
}

func (s *Session) edit(class autosave.Class, apply func(*types.Book)) error {
	s.mu.Lock()
	apply(&s.book)
	bk := s.book
	s.mu.Unlock()
	return s.lib.autosave.Submit(bk.ID, class, bk)
}

// Save flushes pending edits now.
func (s *Session) Save(ctx context.Context) error {
	return s.lib.autosave.Flush(ctx, s.ID())
}

// Retry re-submits a failed save.
func (s *Session) Retry(ctx context.Context) error {
	return s.lib.autosave.Retry(ctx, s.ID())
}

// Status reports the save state of the book.
func (s *Session) Status() (autosave.Status, error) {
	return s.lib.autosave.Status(s.ID())
}

// Close flushes pending edits.
func (s *Session) Close(ctx context.Context) error {
	return s.Save(ctx)
}
