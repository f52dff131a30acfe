package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/boardsync/internal/cache"
	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/command"
	"github.com/mesh-intelligence/boardsync/internal/paths"
	"github.com/mesh-intelligence/boardsync/internal/persist"
	"github.com/mesh-intelligence/boardsync/internal/scheduler"
	"github.com/mesh-intelligence/boardsync/internal/state"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// boardPath resolves the board file. When nothing names a board and the
// working directory has no board.md, the last opened board is used.
func (a *app) boardPath(ctx context.Context) (string, error) {
	p, err := paths.ResolveBoard(a.flags.board, a.cfg.Board)
	if err != nil {
		return "", sysErr(fmt.Errorf("resolve board: %w", err))
	}
	explicit := a.flags.board != "" || os.Getenv(paths.EnvBoard) != "" || a.cfg.Board != ""
	if explicit {
		return p, nil
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p, nil
	}
	last, ok, err := a.store.Get(ctx, state.KeyLastBoard)
	if err != nil || !ok {
		return p, nil
	}
	a.logger.Debug("using last opened board", "board", last)
	return last, nil
}

// rememberBoard records path as the last opened board.
func (a *app) rememberBoard(ctx context.Context, path string) {
	if err := a.store.Set(ctx, state.KeyLastBoard, path); err != nil {
		a.logger.Warn("recording last board", "error", err)
	}
}

func (a *app) coordinator(path string) *persist.Coordinator {
	return persist.New(path, persist.Options{
		Codec:  codec.New(),
		Cache:  cache.New(a.cfg.Tolerance),
		Logger: a.logger,
	})
}

// load reads and parses the board with its archive.
func (a *app) load(ctx context.Context) (*types.Board, string, error) {
	path, err := a.boardPath(ctx)
	if err != nil {
		return nil, "", err
	}
	res, err := a.coordinator(path).Refresh(ctx, scheduler.ReasonInitial, nil)
	if err != nil {
		return nil, path, err
	}
	switch res.Status {
	case persist.RefreshDeleted:
		return nil, path, fmt.Errorf("%w: %s does not exist", persist.ErrIO, path)
	case persist.RefreshFailed:
		msg := "does not parse"
		if res.Diagnostics != nil {
			if errs := res.Diagnostics.Errors(); len(errs) > 0 {
				msg = errs[0].String()
			}
		}
		return nil, path, fmt.Errorf("%w: %s: %s (run lint for details)", errInvalidBoard, path, msg)
	}
	a.rememberBoard(ctx, path)
	return res.Board, path, nil
}

// describeFunc summarizes a successful command for human output.
type describeFunc func(b *types.Board) string

// execute runs one command against the board file and prints the result.
func (a *app) execute(cmd *cobra.Command, c command.Command, describe describeFunc) error {
	ctx := cmd.Context()
	path, err := a.boardPath(ctx)
	if err != nil {
		return err
	}
	out, err := a.coordinator(path).Execute(ctx, c)
	if err != nil {
		return err
	}
	a.rememberBoard(ctx, path)

	w := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return writeJSON(w, outcomeJSON{
			Command:        out.Command,
			CommandID:      out.CommandID.String(),
			ArchiveWritten: out.ArchiveWritten,
			Board:          out.Board,
		})
	}
	msg := out.Command
	if describe != nil {
		msg = describe(out.Board)
	}
	_, err = fmt.Fprintln(w, msg)
	return err
}

type outcomeJSON struct {
	Command        string       `json:"command"`
	CommandID      string       `json:"commandId"`
	ArchiveWritten bool         `json:"archiveWritten"`
	Board          *types.Board `json:"board"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
