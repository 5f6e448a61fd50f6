package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/alchemist/pkg/library"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

// bookView is the JSON shape of a book in command output.
type bookView struct {
	types.Book
	WordCount int `json:"wordCount"`
}

func viewBook(bk types.Book) bookView {
	return bookView{Book: bk, WordCount: bk.WordCount()}
}

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage books in the library",
	}
	cmd.AddCommand(
		newBookListCmd(a),
		newBookGetCmd(a),
		newBookCreateCmd(a),
		newBookUpdateCmd(a),
		newBookDeleteCmd(a),
		newBookEditCmd(a),
	)
	return cmd
}

func newBookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			books, err := lib.Books().GetAll(cmd.Context())
			if err != nil {
				return storageError("list books", err)
			}
			views := make([]bookView, len(books))
			for i, bk := range books {
				views[i] = viewBook(bk)
			}
			return a.output(cmd, views, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tWORDS\tUPDATED")
				for _, v := range views {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", v.ID, v.Title, v.Author, v.WordCount, v.UpdatedAt.Local().Format("2006-01-02 15:04"))
				}
				tw.Flush()
			})
		},
	}
}

func newBookGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a book",
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

			bk, found, err := lib.Books().GetByID(cmd.Context(), id)
			if err != nil {
				return storageError("get book", err)
			}
			if !found {
				return userError("book %d not found", id)
			}
			return a.output(cmd, viewBook(bk), func(w io.Writer) { printBook(w, bk) })
		},
	}
}

func printBook(w io.Writer, bk types.Book) {
	fmt.Fprintf(w, "ID:       %d\n", bk.ID)
	fmt.Fprintf(w, "Title:    %s\n", bk.Title)
	fmt.Fprintf(w, "Author:   %s\n", bk.Author)
	if bk.CoverURL != "" {
		fmt.Fprintf(w, "Cover:    %s\n", bk.CoverURL)
	}
	fmt.Fprintf(w, "Words:    %d\n", bk.WordCount())
	fmt.Fprintf(w, "Created:  %s\n", bk.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Updated:  %s\n", bk.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if bk.Content != "" {
		fmt.Fprintf(w, "\n%s\n", bk.Content)
	}
}

// bookFields are the editable book flags shared by create and update.
type bookFields struct {
	title, author, coverURL, content string
}

func (f *bookFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "book title")
	cmd.Flags().StringVar(&f.author, "author", "", "author name")
	cmd.Flags().StringVar(&f.coverURL, "cover-url", "", "cover image URL")
	cmd.Flags().StringVar(&f.content, "content", "", "book content")
}

// apply copies the flags the user set onto bk.
func (f *bookFields) apply(cmd *cobra.Command, bk *types.Book) {
	if cmd.Flags().Changed("title") {
		bk.Title = f.title
	}
	if cmd.Flags().Changed("author") {
		bk.Author = f.author
	}
	if cmd.Flags().Changed("cover-url") {
		bk.CoverURL = f.coverURL
	}
	if cmd.Flags().Changed("content") {
		bk.Content = f.content
	}
}

func newBookCreateCmd(a *app) *cobra.Command {
	var f bookFields
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			var bk types.Book
			f.apply(cmd, &bk)
			created, err := lib.Books().Create(cmd.Context(), bk)
			if err != nil {
				return storageError("create book", err)
			}
			return a.output(cmd, viewBook(created), func(w io.Writer) {
				fmt.Fprintf(w, "Created book %d\n", created.ID)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newBookUpdateCmd(a *app) *cobra.Command {
	var f bookFields
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace fields of a book",
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

			bk, found, err := lib.Books().GetByID(cmd.Context(), id)
			if err != nil {
				return storageError("get book", err)
			}
			if !found {
				return userError("book %d not found", id)
			}
			f.apply(cmd, &bk)
			updated, err := lib.Books().Update(cmd.Context(), bk)
			if err != nil {
				return storageError("update book", err)
			}
			return a.output(cmd, viewBook(updated), func(w io.Writer) {
				fmt.Fprintf(w, "Updated book %d\n", updated.ID)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newBookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
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

			if err := lib.Books().Delete(cmd.Context(), id); err != nil {
				return storageError("delete book", err)
			}
			return a.output(cmd, map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted book %d\n", id)
			})
		},
	}
}

// newBookEditCmd feeds changes through an editing session, the same path
// the editor's change hook takes, and saves on exit.
func newBookEditCmd(a *app) *cobra.Command {
	var (
		f          bookFields
		appendText string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a book through the autosave pipeline",
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

			s, err := lib.Open(cmd.Context(), id)
			if err != nil {
				return storageError("open book", err)
			}
			if err := editSession(cmd, s, &f, appendText); err != nil {
				return sysError("edit book: %w", err)
			}
			if err := s.Close(cmd.Context()); err != nil {
				return storageError("save book", err)
			}

			bk, _, err := lib.Books().GetByID(cmd.Context(), id)
			if err != nil {
				return storageError("get book", err)
			}
			status, _ := s.Status()
			return a.output(cmd, viewBook(bk), func(w io.Writer) {
				fmt.Fprintf(w, "Book %d %s (%d words)\n", id, status, bk.WordCount())
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&appendText, "append", "", "text appended to the content")
	return cmd
}

func editSession(cmd *cobra.Command, s *library.Session, f *bookFields, appendText string) error {
	edits := []struct {
		flag string
		fn   func(string) error
		val  string
	}{
		{"title", s.SetTitle, f.title},
		{"author", s.SetAuthor, f.author},
		{"cover-url", s.SetCoverURL, f.coverURL},
		{"content", s.OnContentChange, f.content},
		{"append", s.Append, appendText},
	}
	for _, e := range edits {
		if !cmd.Flags().Changed(e.flag) {
			continue
		}
		if err := e.fn(e.val); err != nil {
			return err
		}
	}
	return nil
}
