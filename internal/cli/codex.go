package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/alchemist/pkg/types"
)

func newCodexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codex",
		Short: "Manage worldbuilding codex entries",
	}
	cmd.AddCommand(
		newCodexListCmd(a),
		newCodexAddCmd(a),
		newCodexDeleteCmd(a),
		newCodexCategoriesCmd(a),
	)
	return cmd
}

func newCodexListCmd(a *app) *cobra.Command {
	var (
		bookID   int64
		global   bool
		category string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List codex entries",
		Long:  "List codex entries, optionally only those of one book (--book), the global ones (--global) or one category (--category).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if global && cmd.Flags().Changed("book") {
				return userError("--book and --global are mutually exclusive")
			}
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			ctx := cmd.Context()
			codex := lib.Codex()
			var entries []types.CodexEntry
			switch {
			case global:
				entries, err = codex.ByBook(ctx, nil)
			case cmd.Flags().Changed("book"):
				entries, err = codex.ByBook(ctx, &bookID)
			case category != "":
				entries, err = codex.ByCategory(ctx, category)
			default:
				entries, err = codex.GetAll(ctx)
			}
			if err != nil {
				return storageError("list codex", err)
			}
			if category != "" && (global || cmd.Flags().Changed("book")) {
				entries = filterCategory(entries, category)
			}

			return a.output(cmd, entries, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tBOOK\tCATEGORY\tNAME\tDESCRIPTION")
				for _, e := range entries {
					book := "global"
					if e.BookID != nil {
						book = fmt.Sprint(*e.BookID)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, book, e.Category, e.Name, firstLine(e.Description))
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "only entries of this book")
	cmd.Flags().BoolVar(&global, "global", false, "only entries not tied to a book")
	cmd.Flags().StringVar(&category, "category", "", "only entries in this category")
	return cmd
}

func filterCategory(entries []types.CodexEntry, category string) []types.CodexEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func newCodexAddCmd(a *app) *cobra.Command {
	var (
		bookID int64
		entry  types.CodexEntry
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a codex entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := entry.ValidateCategory(); err != nil {
				return userError("add codex entry: %w (one of: %s)", err, strings.Join(types.CodexCategories, ", "))
			}
			if cmd.Flags().Changed("book") {
				id := bookID
				entry.BookID = &id
			}

			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			ctx := cmd.Context()
			if entry.BookID != nil {
				_, found, err := lib.Books().GetByID(ctx, *entry.BookID)
				if err != nil {
					return storageError("get book", err)
				}
				if !found {
					return userError("book %d not found", *entry.BookID)
				}
			}
			created, err := lib.Codex().Create(ctx, entry)
			if err != nil {
				return storageError("add codex entry", err)
			}
			return a.output(cmd, created, func(w io.Writer) {
				fmt.Fprintf(w, "Created codex entry %d\n", created.ID)
			})
		},
	}
	cmd.Flags().Int64Var(&bookID, "book", 0, "book the entry belongs to (omit for a global entry)")
	cmd.Flags().StringVar(&entry.Category, "category", types.CategoryNotes, "entry category")
	cmd.Flags().StringVar(&entry.Name, "name", "", "entry name")
	cmd.Flags().StringVar(&entry.Description, "description", "", "entry description")
	return cmd
}

func newCodexDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a codex entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			if err := lib.Codex().Delete(cmd.Context(), id); err != nil {
				return storageError("delete codex entry", err)
			}
			return a.output(cmd, map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted codex entry %d\n", id)
			})
		},
	}
}

func newCodexCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the codex categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.output(cmd, types.CodexCategories, func(w io.Writer) {
				for _, c := range types.CodexCategories {
					fmt.Fprintln(w, c)
				}
			})
		},
	}
}
