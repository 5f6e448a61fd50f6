package board

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Event is a drag-and-drop reorder request.
type Event struct {
	CardID         string `json:"cardId"`
	SourceColumnID string `json:"sourceColumnId"`
	SourceIndex    int    `json:"sourceIndex"`
	DestColumnID   string `json:"destColumnId"`
	DestIndex      int    `json:"destIndex"`
}

// Engine owns a Board and applies transitions to it atomically.
type Engine struct {
	mu    sync.RWMutex
	board Board
	newID func() string
}

// NewEngine returns an engine over a copy of b. It fails if b does not
// satisfy the board invariants.
func NewEngine(b Board) (*Engine, error) {
	if b.Cards == nil {
		b.Cards = map[string]Card{}
	}
	if b.Columns == nil {
		b.Columns = map[string]Column{}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Engine{board: b.Clone(), newID: newCardID}, nil
}

func newCardID() string {
	return "card-" + uuid.Must(uuid.NewV7()).String()
}

// Snapshot returns a deep copy of the current board.
func (e *Engine) Snapshot() Board {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Clone()
}

// Reorder applies a drag-and-drop event. Events within one column reorder
// that column; others move the card across columns.
func (e *Engine) Reorder(ev Event) error {
	return e.MoveAcrossColumns(ev.CardID, ev.SourceColumnID, ev.SourceIndex, ev.DestColumnID, ev.DestIndex)
}

// ReorderWithinColumn moves the card at from to position to in the same
// column. to is clamped to the bounds of the list.
func (e *Engine) ReorderWithinColumn(columnID string, from, to int) error {
	return e.transition(true, func(next *Board) error {
		col, ok := next.Columns[columnID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, columnID)
		}
		if from < 0 || from >= len(col.CardIDs) {
			return fmt.Errorf("%w: %d in column %q of length %d", ErrInvalidIndex, from, columnID, len(col.CardIDs))
		}
		if from == to {
			return nil
		}
		id := col.CardIDs[from]
		ids := remove(col.CardIDs, from)
		col.CardIDs = insert(ids, clamp(to, len(ids)), id)
		next.Columns[columnID] = col
		return nil
	})
}

// MoveAcrossColumns removes cardID from src at srcIdx and inserts it into
// dst at dstIdx, clamped to [0, len(dst)]. When src and dst are the same
// column this is a reorder within it.
func (e *Engine) MoveAcrossColumns(cardID, src string, srcIdx int, dst string, dstIdx int) error {
	return e.transition(true, func(next *Board) error {
		from, ok := next.Columns[src]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, src)
		}
		to, ok := next.Columns[dst]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, dst)
		}
		if srcIdx < 0 || srcIdx >= len(from.CardIDs) {
			return fmt.Errorf("%w: %d in column %q of length %d", ErrInvalidIndex, srcIdx, src, len(from.CardIDs))
		}
		if cardID != "" && from.CardIDs[srcIdx] != cardID {
			return fmt.Errorf("%w: %q is at %s[%d], want %q", ErrCardMismatch, from.CardIDs[srcIdx], src, srcIdx, cardID)
		}
		if src == dst && srcIdx == dstIdx {
			return nil
		}

		id := from.CardIDs[srcIdx]
		if src == dst {
			ids := remove(from.CardIDs, srcIdx)
			from.CardIDs = insert(ids, clamp(dstIdx, len(ids)), id)
			next.Columns[src] = from
			return nil
		}
		from.CardIDs = remove(from.CardIDs, srcIdx)
		to.CardIDs = insert(to.CardIDs, clamp(dstIdx, len(to.CardIDs)), id)
		next.Columns[src] = from
		next.Columns[dst] = to
		return nil
	})
}

// AddCard appends a new card to the end of columnID.
func (e *Engine) AddCard(columnID, title, content string) (Card, error) {
	var card Card
	err := e.transition(false, func(next *Board) error {
		col, ok := next.Columns[columnID]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, columnID)
		}
		card = Card{ID: e.newID(), Title: title, Content: content}
		next.Cards[card.ID] = card
		col.CardIDs = append(col.CardIDs, card.ID)
		next.Columns[columnID] = col
		return nil
	})
	if err != nil {
		return Card{}, err
	}
	return card, nil
}

// transition is the only place the board is replaced. It applies fn to a
// deep copy and commits the copy if fn succeeds and the result is valid.
// When preserve is set the multiset of listed card ids must not change.
func (e *Engine) transition(preserve bool, fn func(next *Board) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.board.Validate(); err != nil {
		return err
	}
	next := e.board.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if preserve && !sameMultiset(e.board.cardMultiset(), next.cardMultiset()) {
		return fmt.Errorf("%w: card set changed", ErrInvariant)
	}
	e.board = next
	return nil
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func remove(ids []string, i int) []string {
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}

func insert(ids []string, i int, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	return append(out, ids[i:]...)
}
