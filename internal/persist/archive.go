package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/boardsync/internal/codec"
	"github.com/mesh-intelligence/boardsync/internal/fingerprint"
	"github.com/mesh-intelligence/boardsync/pkg/types"
)

// ArchiveStore reads and writes the archive file that sits next to a board
// file. It keeps its own fingerprint tracker so that its writes are
// recognized when the watcher reports them.
type ArchiveStore struct {
	path    string
	codec   Codec
	tracker *fingerprint.Tracker
	logger  *slog.Logger

	mu sync.Mutex
}

// NewArchiveStore returns the store for the archive of boardPath.
func NewArchiveStore(boardPath string, c Codec, logger *slog.Logger) *ArchiveStore {
	path := types.ArchivePath(boardPath)
	return &ArchiveStore{
		path:    path,
		codec:   c,
		tracker: fingerprint.NewTracker(),
		logger:  logger.With("file", "archive"),
	}
}

// Path returns the archive file path.
func (s *ArchiveStore) Path() string { return s.path }

// Tracker returns the fingerprint tracker of the archive file.
func (s *ArchiveStore) Tracker() *fingerprint.Tracker { return s.tracker }

// archiveFile is one read of the archive file.
type archiveFile struct {
	doc         *codec.ArchiveDocument
	exists      bool
	fingerprint fingerprint.Fingerprint
}

// Load reads the archive file. A missing file is an empty archive. A file
// that does not parse returns an error wrapping ErrArchiveUnreadable.
func (s *ArchiveStore) Load(ctx context.Context) ([]types.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.read()
	if err != nil {
		return nil, err
	}
	return f.doc.Tasks, nil
}

func (s *ArchiveStore) read() (archiveFile, error) {
	data, exists, err := readFile(s.path)
	if err != nil {
		return archiveFile{}, err
	}
	if !exists {
		return archiveFile{doc: &codec.ArchiveDocument{}}, nil
	}
	doc, err := s.codec.ParseArchive(data)
	if err != nil {
		return archiveFile{}, fmt.Errorf("%w: %s: %w", ErrArchiveUnreadable, s.path, err)
	}
	return archiveFile{doc: doc, exists: true, fingerprint: fingerprint.Of(data)}, nil
}

// Update runs a read-modify-write cycle on the archive file. fn receives
// the current tasks and returns the new list. Title, unknown keys and body
// of the file are kept. The written content is recorded with the tracker.
func (s *ArchiveStore) Update(ctx context.Context, fn func([]types.Task) []types.Task) ([]types.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return nil, err
	}
	doc := *f.doc
	doc.Tasks = fn(f.doc.Tasks)

	out, err := s.codec.SerializeArchive(&doc)
	if err != nil {
		return nil, fmt.Errorf("serializing archive: %w", err)
	}
	if err := writeFileAtomic(s.path, out); err != nil {
		return nil, err
	}
	fp := fingerprint.Of(out)
	s.tracker.Record(fp)
	s.logger.Debug("archive written", "tasks", len(doc.Tasks), "fingerprint", fp)
	return doc.Tasks, nil
}

// archiveDelta computes the archive-file change that turns fileTasks into
// the archive of a mutated board: tasks to add (in board order) and IDs to
// remove. ok is false when nothing changes.
func archiveDelta(fileTasks, boardArchive []types.Task) (added []types.Task, removed map[string]bool, ok bool) {
	inFile := make(map[string]bool, len(fileTasks))
	for _, t := range fileTasks {
		inFile[t.ID] = true
	}
	inBoard := make(map[string]bool, len(boardArchive))
	for _, t := range boardArchive {
		inBoard[t.ID] = true
		if !inFile[t.ID] {
			added = append(added, t)
		}
	}
	removed = make(map[string]bool)
	for _, t := range fileTasks {
		if !inBoard[t.ID] {
			removed[t.ID] = true
		}
	}
	return added, removed, len(added) > 0 || len(removed) > 0
}

// applyDelta prepends added tasks and drops removed ones. Tasks written to
// the file by someone else since it was read are kept.
func applyDelta(tasks, added []types.Task, removed map[string]bool) []types.Task {
	out := make([]types.Task, 0, len(added)+len(tasks))
	out = append(out, added...)
	skip := make(map[string]bool, len(added))
	for _, t := range added {
		skip[t.ID] = true
	}
	for _, t := range tasks {
		if !removed[t.ID] && !skip[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
