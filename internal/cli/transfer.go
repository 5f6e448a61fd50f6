package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/alchemist/internal/sqlite"
)

func newExportCmd(a *app) *cobra.Command {
	var compress bool
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export the library as JSONL files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return sysError("create export dir: %w", err)
			}
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			if err := backend.Export(cmd.Context(), dir, sqlite.ExportOptions{Compress: compress}); err != nil {
				return sysError("export: %w", err)
			}
			return a.output(cmd, map[string]any{"dir": dir, "compressed": compress}, func(w io.Writer) {
				fmt.Fprintf(w, "Exported library to %s\n", dir)
			})
		},
	}
	cmd.Flags().BoolVar(&compress, "zstd", false, "compress the files with zstd")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Import JSONL files written by export",
		Long:  "Import books and codex entries, keeping their ids. Records whose id is already taken and invalid records are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			res, err := backend.Import(cmd.Context(), args[0])
			if err != nil {
				return sysError("import: %w", err)
			}
			return a.output(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Imported %d books and %d codex entries (%d skipped)\n", res.Books, res.Codex, res.Skipped)
			})
		},
	}
}
