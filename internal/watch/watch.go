// Package watch turns file system notifications for a board file and its
// archive into refresh reasons.
//
// The parent directory is watched rather than the files themselves: atomic
// writes replace the file through a rename, which would end a watch placed
// on the old inode.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mesh-intelligence/boardsync/internal/scheduler"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Watcher reports changes to one board file and its archive.
type Watcher struct {
	boardPath   string
	archivePath string
	fs          *fsnotify.Watcher
	logger      *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// New starts watching the directory of boardPath.
func New(boardPath string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	abs, err := filepath.Abs(boardPath)
	if err != nil {
		return nil, fmt.Errorf("resolving board path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		boardPath:   abs,
		archivePath: types.ArchivePath(abs),
		fs:          fw,
		logger:      logger.With("component", "watch", "board", abs),
		done:        make(chan struct{}),
	}, nil
}

// Classify maps a notification to a refresh reason. ok is false for files
// other than the board and its archive.
func (w *Watcher) Classify(ev fsnotify.Event) (reason scheduler.Reason, ok bool) {
	name := filepath.Clean(ev.Name)
	switch name {
	case w.archivePath:
		return scheduler.ReasonArchiveChange, true
	case w.boardPath:
		if ev.Has(fsnotify.Create) {
			return scheduler.ReasonFileCreate, true
		}
		return scheduler.ReasonFileChange, true
	}
	return "", false
}

// Run delivers refresh reasons to notify until ctx is done or Close is
// called. notify runs on the Run goroutine and must not block for long.
func (w *Watcher) Run(ctx context.Context, notify func(scheduler.Reason)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return ErrClosed
		case ev, ok := <-w.fs.Events:
			if !ok {
				return ErrClosed
			}
			reason, ok := w.Classify(ev)
			if !ok {
				continue
			}
			w.logger.Debug("change", "op", ev.Op.String(), "reason", reason)
			notify(reason)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}
