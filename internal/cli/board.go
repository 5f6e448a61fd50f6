package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/alchemist/internal/paths"
	"github.com/mesh-intelligence/alchemist/pkg/board"
)

func newBoardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show and rearrange the project board",
	}
	cmd.AddCommand(newBoardShowCmd(a), newBoardMoveCmd(a), newBoardAddCmd(a))
	return cmd
}

// loadBoard opens the board file of the data directory in an engine.
func (a *app) loadBoard() (*board.Engine, string, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return nil, "", sysError("resolve data dir: %w", err)
	}
	path := paths.BoardFile(dataDir)
	b, err := board.Load(path)
	if err != nil {
		return nil, "", sysError("%w", err)
	}
	e, err := board.NewEngine(b)
	if err != nil {
		return nil, "", sysError("board %s: %w", path, err)
	}
	return e, path, nil
}

func saveBoard(path string, e *board.Engine) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return sysError("create data dir: %w", err)
	}
	if err := board.Save(path, e.Snapshot()); err != nil {
		return sysError("%w", err)
	}
	return nil
}

func printBoard(w io.Writer, b board.Board) {
	for _, colID := range b.ColumnOrder {
		col := b.Columns[colID]
		fmt.Fprintf(w, "%s (%s)\n", col.Title, col.ID)
		for i, id := range col.CardIDs {
			fmt.Fprintf(w, "  %d. %s [%s]\n", i, b.Cards[id].Title, id)
		}
	}
}

func newBoardShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := a.loadBoard()
			if err != nil {
				return err
			}
			snap := e.Snapshot()
			return a.output(cmd, snap, func(w io.Writer) { printBoard(w, snap) })
		},
	}
}

func newBoardMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <card> <src-column> <src-index> <dst-column> <dst-index>",
		Short: "Move a card within or across columns",
		Long:  "Move a card. A destination index past the end of the column appends the card.",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcIdx, err := strconv.Atoi(args[2])
			if err != nil {
				return userError("invalid source index %q", args[2])
			}
			dstIdx, err := strconv.Atoi(args[4])
			if err != nil {
				return userError("invalid destination index %q", args[4])
			}

			e, path, err := a.loadBoard()
			if err != nil {
				return err
			}
			ev := board.Event{
				CardID:         args[0],
				SourceColumnID: args[1],
				SourceIndex:    srcIdx,
				DestColumnID:   args[3],
				DestIndex:      dstIdx,
			}
			if err := e.Reorder(ev); err != nil {
				if errors.Is(err, board.ErrInvariant) {
					return sysError("move card: %w", err)
				}
				return userError("move card: %w", err)
			}
			if err := saveBoard(path, e); err != nil {
				return err
			}
			snap := e.Snapshot()
			return a.output(cmd, snap, func(w io.Writer) { printBoard(w, snap) })
		},
	}
}

func newBoardAddCmd(a *app) *cobra.Command {
	var content string
	cmd := &cobra.Command{
		Use:   "add <column> <title>",
		Short: "Add a card to the end of a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, path, err := a.loadBoard()
			if err != nil {
				return err
			}
			card, err := e.AddCard(args[0], args[1], content)
			if err != nil {
				return userError("add card: %w", err)
			}
			if err := saveBoard(path, e); err != nil {
				return err
			}
			return a.output(cmd, card, func(w io.Writer) {
				fmt.Fprintf(w, "Added card %s\n", card.ID)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "card content")
	return cmd
}
