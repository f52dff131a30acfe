// Package cli implements the boardsync command-line interface. Every command
// that changes the board runs one read-apply-write cycle of the persistence
// coordinator against the board file.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/config"
	"github.com/mesh-intelligence/boardsync/internal/paths"
	"github.com/mesh-intelligence/boardsync/internal/persist"
	"github.com/mesh-intelligence/boardsync/internal/state"
	"github.com/mesh-intelligence/boardsync/internal/view"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errInvalidBoard is returned when a board file does not pass lint or parse.
var errInvalidBoard = errors.New("board file is not valid")

// systemError marks failures of the environment rather than of the input.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysErr(err error) error {
	if err == nil {
		return nil
	}
	return &systemError{err: err}
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var se *systemError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &se),
		errors.Is(err, persist.ErrIO),
		errors.Is(err, persist.ErrArchiveUnreadable),
		errors.Is(err, view.ErrInternal):
		return exitSysError
	default:
		return exitUserError
	}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	board     string
	configDir string
	dataDir   string
	agent     string
	logLevel  string
	jsonMode  bool
}

// app is the context every subcommand runs with: resolved settings, the
// logger and the session state store.
type app struct {
	flags  rootFlags
	cfg    *config.Config
	logger *slog.Logger
	store  state.Store
}

// NewRootCmd creates the top-level "boardsync" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "boardsync",
		Short: "Keep a Markdown task board in sync from the command line",
		Long: "boardsync reads and edits a task board stored as YAML front matter in a\n" +
			"Markdown file. Archived tasks live in a sibling -archive.md file.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.board, "board", "", "board file (default: board.md in the working directory)")
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory for session state")
	pf.StringVar(&a.flags.agent, "agent", "", "agent name to remember as last used")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newShowCmd(a),
		newLintCmd(a),
		newWatchCmd(a),
		newAgentCmd(a),
		newTaskCmd(a),
		newSubtaskCmd(a),
		newColumnCmd(a),
		newTitleCmd(a),
		newStatsCmd(a),
		newRuleCmd(a),
	)
	return root, a
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes args and returns the exit code. Errors are printed to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	defer a.close()

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

// setup loads configuration, builds the logger and opens the state store.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return sysErr(fmt.Errorf("load config: %w", err))
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	a.cfg = cfg

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	stateCfg := cfg.State
	if stateCfg.Backend == types.StateBackendSQLite && stateCfg.Path == "" {
		if stateCfg.Path, err = cfg.StatePath(a.flags.dataDir); err != nil {
			return sysErr(fmt.Errorf("resolve data dir: %w", err))
		}
	}
	store, err := state.Open(cmd.Context(), stateCfg)
	if err != nil {
		return sysErr(fmt.Errorf("open state: %w", err))
	}
	a.store = store

	if a.flags.agent != "" {
		if err := store.Set(cmd.Context(), state.KeyLastAgent, a.flags.agent); err != nil {
			return sysErr(err)
		}
	}
	logger.Debug("configured", "config", cfg.File, "state", stateCfg.Backend)
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil && a.logger != nil {
		a.logger.Warn("closing state store", "error", err)
	}
	a.store = nil
}
