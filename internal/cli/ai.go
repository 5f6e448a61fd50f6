package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/alchemist/internal/ollama"
)

func newAICmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Use a local AI model to continue books",
	}
	cmd.AddCommand(newAIModelsCmd(a), newAIContinueCmd(a))
	return cmd
}

func (a *app) assistant() *ollama.Assistant {
	client := ollama.NewClient(a.cfg.GetString(cfgKeyOllamaURL), a.cfg.GetDuration(cfgKeyOllamaTimeout))
	return ollama.NewAssistant(client, a.logger)
}

// aiError maps collaborator failures: an unreachable service is a system
// error, anything else the user can act on.
func aiError(op string, err error) error {
	if errors.Is(err, ollama.ErrRemoteUnavailable) {
		return sysError("%s: %w (is Ollama running at the configured ollama.base_url?)", op, err)
	}
	return userError("%s: %w", op, err)
}

func newAIModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.assistant().Refresh(cmd.Context())
			if err != nil {
				return aiError("list models", err)
			}
			return a.output(cmd, models, func(w io.Writer) {
				for _, m := range models {
					fmt.Fprintln(w, m)
				}
			})
		},
	}
}

func newAIContinueCmd(a *app) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "continue <book-id>",
		Short: "Append an AI continuation to a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			asst := a.assistant()
			if _, err := asst.Refresh(ctx); err != nil {
				return aiError("list models", err)
			}
			if model != "" {
				asst.Select(model)
			}

			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Detach()

			s, err := lib.Open(ctx, id)
			if err != nil {
				return storageError("open book", err)
			}
			text, err := asst.Continue(ctx, s)
			if err != nil {
				return aiError("continue", err)
			}
			if err := s.Close(ctx); err != nil {
				return storageError("save book", err)
			}
			out := map[string]any{"bookId": id, "model": asst.Model(), "text": text}
			return a.output(cmd, out, func(w io.Writer) { fmt.Fprintln(w, text) })
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to use (default: first available)")
	return cmd
}
