// Package fingerprint computes cheap content tokens for board files and
// tracks the last token seen for a file, so that change notifications for
// unchanged content, including those caused by our own writes, are skipped.
package fingerprint

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a non-cryptographic 64-bit hash of file content.
type Fingerprint uint64

// Of returns the fingerprint of text.
func Of(text []byte) Fingerprint {
	return Fingerprint(xxhash.Sum64(text))
}

// String renders the fingerprint as 16 lowercase hex digits.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// Source says how the tracker learned a fingerprint.
type Source int

const (
	// SourceNone means nothing has been tracked yet.
	SourceNone Source = iota
	// SourceObserved means a refresh read these bytes.
	SourceObserved
	// SourceWritten means we wrote these bytes ourselves.
	SourceWritten
)

func (s Source) String() string {
	switch s {
	case SourceObserved:
		return "observed"
	case SourceWritten:
		return "written"
	default:
		return "none"
	}
}

// Tracker remembers the last known fingerprint of one file.
// Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	last   Fingerprint
	source Source
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Seen reports whether fp matches the last observed or written content.
func (t *Tracker) Seen(fp Fingerprint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.source != SourceNone && t.last == fp
}

// Observe records content consumed by a refresh.
func (t *Tracker) Observe(fp Fingerprint) {
	t.set(fp, SourceObserved)
}

// Record records content we just wrote. The watcher event our own write
// triggers then finds it already seen.
func (t *Tracker) Record(fp Fingerprint) {
	t.set(fp, SourceWritten)
}

// Last returns the last known fingerprint and where it came from.
func (t *Tracker) Last() (Fingerprint, Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.source
}

// Reset forgets the last fingerprint, e.g. after the file was deleted.
func (t *Tracker) Reset() {
	t.set(0, SourceNone)
}

func (t *Tracker) set(fp Fingerprint, src Source) {
	t.mu.Lock()
	t.last = fp
	t.source = src
	t.mu.Unlock()
}
