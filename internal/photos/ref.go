// Package photos resolves activity photo thumbnails one at a time.
//
// The backend throttles photo reads, so refs are loaded through a
// single-flight FIFO queue with per-item retries and a linear backoff.
// Refs are ephemeral: nothing here is ever persisted.
package photos

import (
	"errors"
	"fmt"
	"sync"
)

// LoadState is the lifecycle of one photo reference.
type LoadState int

const (
	Pending LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// Terminal reports whether no further transition happens without a manual retry.
func (s LoadState) Terminal() bool {
	return s == Loaded || s == Failed
}

// ErrImageResolution is matched by every ResolutionError.
var ErrImageResolution = errors.New("image could not be resolved")

// ErrNotFailed is returned by Retry for refs that are not in the Failed state.
var ErrNotFailed = errors.New("photo is not in a failed state")

// ResolutionError records that every attempt for a URL failed.
type ResolutionError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("photo %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrImageResolution) succeed.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrImageResolution
}

// Image is a decoded photo header plus the raw bytes.
type Image struct {
	URL    string
	Format string
	Width  int
	Height int
	Data   []byte
}

// Placeholder is whatever shows a thumbnail: a TUI cell, a CLI line. It can
// disappear while a load is in flight; a detached placeholder gets no
// callbacks.
type Placeholder interface {
	Attached() bool
	ShowLoaded(snap Snapshot)
	ShowFailed(snap Snapshot)
}

// Snapshot is a consistent copy of a ref's fields.
type Snapshot struct {
	URL         string
	State       LoadState
	RetriesLeft int
	Attempts    int
	Image       *Image
	Err         error
}

// PhotoRef is one thumbnail to resolve. Only the scheduler moves it between
// states; readers use State or Snapshot.
type PhotoRef struct {
	URL string

	mu          sync.Mutex
	state       LoadState
	retriesLeft int
	attempts    int
	image       *Image
	lastErr     error
	placeholder Placeholder
	queued      bool
}

// NewRef creates a Pending ref. The placeholder may be nil.
func NewRef(url string, placeholder Placeholder) *PhotoRef {
	return &PhotoRef{URL: url, placeholder: placeholder}
}

// Refs wraps several URLs without placeholders.
func Refs(urls ...string) []*PhotoRef {
	refs := make([]*PhotoRef, 0, len(urls))
	for _, u := range urls {
		refs = append(refs, NewRef(u, nil))
	}
	return refs
}

// State returns the current load state.
func (r *PhotoRef) State() LoadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot copies the ref under its lock.
func (r *PhotoRef) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Bind replaces the placeholder, e.g. after the view was rebuilt.
func (r *PhotoRef) Bind(p Placeholder) {
	r.mu.Lock()
	r.placeholder = p
	r.mu.Unlock()
}

func (r *PhotoRef) snapshotLocked() Snapshot {
	return Snapshot{
		URL:         r.URL,
		State:       r.state,
		RetriesLeft: r.retriesLeft,
		Attempts:    r.attempts,
		Image:       r.image,
		Err:         r.lastErr,
	}
}

// begin moves the ref to Loading with a fresh budget of attempts.
func (r *PhotoRef) begin(attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beginLocked(attempts)
}

// restart moves a Failed ref back to Loading. Only one caller wins.
func (r *PhotoRef) restart(attempts int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Failed {
		return false
	}
	r.beginLocked(attempts)
	return true
}

func (r *PhotoRef) beginLocked(attempts int) {
	if attempts < 1 {
		attempts = 1
	}
	r.state = Loading
	r.queued = false
	r.retriesLeft = attempts - 1
	r.attempts = 0
	r.lastErr = nil
}

func (r *PhotoRef) recordAttempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	return r.attempts
}

// consumeRetry spends one retry; false means the budget is exhausted.
func (r *PhotoRef) consumeRetry(err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
	if r.retriesLeft <= 0 {
		return false
	}
	r.retriesLeft--
	return true
}

func (r *PhotoRef) succeed(img *Image) (Snapshot, Placeholder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Loaded
	r.image = img
	r.lastErr = nil
	return r.snapshotLocked(), r.placeholder
}

func (r *PhotoRef) fail(err error) (Snapshot, Placeholder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Failed
	r.retriesLeft = 0
	r.lastErr = &ResolutionError{URL: r.URL, Attempts: r.attempts, Err: err}
	return r.snapshotLocked(), r.placeholder
}
