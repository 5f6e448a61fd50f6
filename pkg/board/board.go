// Package board implements the project board: an arena of cards, per-column
// ordered lists of card ids, and a display order over the columns.
//
// All changes go through Engine, which computes the complete next board,
// checks it, and only then replaces the current one. Callers never observe
// a half-applied move.
package board

import (
	"errors"
	"fmt"
)

// Card is one item on the board.
type Card struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Column is a named ordered list of card ids.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	CardIDs []string `json:"cardIds"`
}

// Board is the aggregate the engine operates on.
type Board struct {
	Cards       map[string]Card   `json:"cards"`
	Columns     map[string]Column `json:"columns"`
	ColumnOrder []string          `json:"columnOrder"`
}

// Board errors.
var (
	ErrInvalidColumn = errors.New("invalid column")
	ErrInvalidIndex  = errors.New("invalid card index")
	ErrCardMismatch  = errors.New("card is not at the source index")
	ErrInvariant     = errors.New("board invariant violated")
)

// Default returns the three-column board a new project starts with.
func Default() Board {
	return Board{
		Cards: map[string]Card{},
		Columns: map[string]Column{
			"column-1": {ID: "column-1", Title: "To Do", CardIDs: []string{}},
			"column-2": {ID: "column-2", Title: "In Progress", CardIDs: []string{}},
			"column-3": {ID: "column-3", Title: "Done", CardIDs: []string{}},
		},
		ColumnOrder: []string{"column-1", "column-2", "column-3"},
	}
}

// Clone returns a deep copy of b.
func (b Board) Clone() Board {
	out := Board{
		Cards:       make(map[string]Card, len(b.Cards)),
		Columns:     make(map[string]Column, len(b.Columns)),
		ColumnOrder: append([]string(nil), b.ColumnOrder...),
	}
	for id, c := range b.Cards {
		out.Cards[id] = c
	}
	for id, col := range b.Columns {
		col.CardIDs = append([]string{}, col.CardIDs...)
		out.Columns[id] = col
	}
	return out
}

// Validate checks the structural invariants: ColumnOrder is a permutation
// of the column keys, every card appears in exactly one column, and every
// listed id names a known card.
func (b Board) Validate() error {
	if len(b.ColumnOrder) != len(b.Columns) {
		return fmt.Errorf("%w: column order lists %d columns, board has %d",
			ErrInvariant, len(b.ColumnOrder), len(b.Columns))
	}
	seenCol := make(map[string]bool, len(b.ColumnOrder))
	for _, id := range b.ColumnOrder {
		if _, ok := b.Columns[id]; !ok {
			return fmt.Errorf("%w: column order names unknown column %q", ErrInvariant, id)
		}
		if seenCol[id] {
			return fmt.Errorf("%w: column %q ordered twice", ErrInvariant, id)
		}
		seenCol[id] = true
	}

	seenCard := make(map[string]string, len(b.Cards))
	for _, colID := range b.ColumnOrder {
		col := b.Columns[colID]
		if col.ID != colID {
			return fmt.Errorf("%w: column %q stored under key %q", ErrInvariant, col.ID, colID)
		}
		for _, cardID := range col.CardIDs {
			if _, ok := b.Cards[cardID]; !ok {
				return fmt.Errorf("%w: column %q lists unknown card %q", ErrInvariant, colID, cardID)
			}
			if prev, dup := seenCard[cardID]; dup {
				return fmt.Errorf("%w: card %q in both %q and %q", ErrInvariant, cardID, prev, colID)
			}
			seenCard[cardID] = colID
		}
	}
	if len(seenCard) != len(b.Cards) {
		return fmt.Errorf("%w: %d cards are not in any column", ErrInvariant, len(b.Cards)-len(seenCard))
	}
	return nil
}

// ColumnOf returns the id of the column holding cardID.
func (b Board) ColumnOf(cardID string) (string, bool) {
	for _, colID := range b.ColumnOrder {
		for _, id := range b.Columns[colID].CardIDs {
			if id == cardID {
				return colID, true
			}
		}
	}
	return "", false
}

// cardMultiset counts the card ids listed across all columns.
func (b Board) cardMultiset() map[string]int {
	counts := make(map[string]int, len(b.Cards))
	for _, col := range b.Columns {
		for _, id := range col.CardIDs {
			counts[id]++
		}
	}
	return counts
}

func sameMultiset(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, n := range a {
		if b[k] != n {
			return false
		}
	}
	return true
}
