// Package cli implements the alchemist command-line interface: a front end
// over the library, the autosave pipeline, the project board and the AI
// collaborator.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/alchemist/internal/paths"
)

// Version is the alchemist release.
const Version = "0.3.0"

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// exitCode maps err to a process exit code. Errors that are not an
// *exitError are usage errors from cobra.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// app holds the global flag values and the loaded configuration shared by
// all subcommands.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool
	metrics   bool

	cfg      *viper.Viper
	logger   *slog.Logger
	registry *prometheus.Registry
}

// NewRootCmd creates the top-level "alchemist" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:     "alchemist",
		Short:   "A personal library of books with a worldbuilding codex",
		Long:    "Alchemist keeps books, codex entries and a project board in a local\nversioned store and can ask a local AI model to continue a book.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.metrics {
				return nil
			}
			return a.dumpMetrics(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir or $ALCHEMIST_CONFIG_DIR)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/.alchemist-db)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&a.metrics, "metrics", false, "print cache and autosave counters to stderr on exit")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newBookCmd(a),
		newCodexCmd(a),
		newBoardCmd(a),
		newAICmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "alchemist:", err)
		os.Exit(exitCode(err))
	}
}

// load resolves the config directory and reads config.yaml.
func (a *app) load(stderr io.Writer) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError("%w", err)
	}
	a.configDir = configDir
	a.cfg = cfg
	a.logger = newLogger(stderr, cfg.GetString(cfgKeyLogLevel))
	a.registry = prometheus.NewRegistry()
	return nil
}

// registerMetrics adds collectors to the command's registry.
func (a *app) registerMetrics(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := a.registry.Register(c); err != nil {
			return sysError("register metrics: %w", err)
		}
	}
	return nil
}

// dumpMetrics writes the registry in the Prometheus text format.
func (a *app) dumpMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return sysError("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return sysError("write metrics: %w", err)
		}
	}
	return nil
}

// resolveDataDir returns the data directory:
// --data-dir > config.yaml data_dir > ALCHEMIST_DATA_DIR > $(CWD)/.alchemist-db.
func (a *app) resolveDataDir() (string, error) {
	return paths.ResolveDataDir(a.dataDir, a.cfg.GetString(cfgKeyDataDir))
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
