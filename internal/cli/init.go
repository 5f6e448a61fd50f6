package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/alchemist/internal/paths"
	"github.com/mesh-intelligence/alchemist/pkg/board"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize alchemist storage",
		Long:  "Create the data directory, bring the store schema up to date and write the default project board.",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.attachBackend()
			if err != nil {
				return err
			}
			from, applied := backend.MigrationState()
			dataDir := filepath.Dir(backend.Path())
			if err := backend.Detach(); err != nil {
				return sysError("finalize storage: %w", err)
			}

			if a.dataDir != "" {
				if err := pinDataDir(filepath.Join(a.configDir, paths.ConfigFileName), a.cfg.GetString(cfgKeyBackend), dataDir); err != nil {
					return sysError("write config: %w", err)
				}
			}

			boardPath := paths.BoardFile(dataDir)
			if _, err := os.Stat(boardPath); os.IsNotExist(err) {
				if err := board.Save(boardPath, board.Default()); err != nil {
					return sysError("write board: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if applied > 0 {
				fmt.Fprintf(out, "Store upgraded from v%d to v%d\n", from, sqliteSchemaVersion)
			}
			fmt.Fprintf(out, "Alchemist initialized in %s\n", dataDir)
			return nil
		},
	}
}

// pinDataDir records an explicit --data-dir in config.yaml unless the file
// already names one. Other keys are kept.
func pinDataDir(path, backend, dataDir string) error {
	cfg := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
	}
	if dir, _ := cfg[cfgKeyDataDir].(string); dir != "" {
		return nil
	}

	cfg[cfgKeyBackend] = backend
	cfg[cfgKeyDataDir] = dataDir
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
