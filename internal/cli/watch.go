package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/boardsync/internal/cache"
	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/view"
)

func newWatchCmd(a *app) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow changes to the board file",
		Long:  "Watch the board and archive files and print the board state after every change until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			path, err := a.boardPath(ctx)
			if err != nil {
				return err
			}
			sink := &printSink{w: cmd.OutOrStdout(), json: a.flags.jsonMode}
			v, err := view.Open(path, sink, view.Options{
				Codec:        codec.New(),
				Tolerance:    a.cfg.Tolerance,
				FileDebounce: a.cfg.FileDebounce,
				EditDebounce: a.cfg.EditDebounce,
				Logger:       a.logger,
				Watch:        true,
			})
			if err != nil {
				return sysErr(fmt.Errorf("watch %s: %w", path, err))
			}
			a.rememberBoard(ctx, path)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				v.Ready()
				<-gctx.Done()
				v.Dispose()
				return nil
			})
			if duration > 0 {
				g.Go(func() error {
					t := time.NewTimer(duration)
					defer t.Stop()
					select {
					case <-t.C:
						cancel()
					case <-gctx.Done():
					}
					return nil
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}

// printSink writes one line per update and notice.
type printSink struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

type updateJSON struct {
	Reason      string            `json:"reason,omitempty"`
	State       string            `json:"state"`
	Board       any               `json:"board,omitempty"`
	Diagnostics *codec.LintResult `json:"diagnostics,omitempty"`
	Fixable     bool              `json:"fixable,omitempty"`
}

func (s *printSink) Deliver(u view.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.json {
		out := updateJSON{Reason: string(u.Reason), State: u.State.String(), Diagnostics: u.Diagnostics, Fixable: u.Fixable}
		if u.Board != nil {
			out.Board = u.Board
		}
		_ = writeJSON(s.w, out)
		return
	}

	switch u.State {
	case cache.StateValid:
		fmt.Fprintf(s.w, "[%s] %s: %d task(s), %d archived\n", u.Reason, u.Board.Title, u.Board.TaskCount(), len(u.Board.Archive))
	case cache.StateTransientError:
		fmt.Fprintf(s.w, "[%s] board does not parse, showing last good version\n", u.Reason)
		s.issues(u.Diagnostics)
	case cache.StateHardError:
		fmt.Fprintf(s.w, "[%s] board does not parse\n", u.Reason)
		s.issues(u.Diagnostics)
		if u.Fixable {
			fmt.Fprintln(s.w, "  run `boardsync lint --fix` to repair")
		}
	default:
		fmt.Fprintf(s.w, "[%s] no board\n", u.Reason)
	}
}

func (s *printSink) issues(d *codec.LintResult) {
	if d == nil {
		return
	}
	for _, is := range d.Errors() {
		fmt.Fprintf(s.w, "  %s\n", is)
	}
}

func (s *printSink) Notify(n view.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s: %s\n", n.Level, n.Message)
}
