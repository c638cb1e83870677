package sim

import (
	"sync"

	"github.com/gomlx/gpuctx/gpu"
	"github.com/pkg/errors"
)

// Library implements gpu.HandleLibrary (and gpu.BLASLibrary) with simulated handles, and counts the calls
// it receives. Failures can be injected with the Fail* methods.
type Library struct {
	kind gpu.HandleKind

	mu      sync.Mutex
	next    gpu.Handle
	handles map[gpu.Handle]*handleState
	counts  LibraryCounts

	failCreate, failSetStream, failDestroy, failPointerMode error
}

type handleState struct {
	stream      gpu.Stream
	bound       bool
	pointerMode gpu.PointerMode
	seed        uint64
	seeded      bool
}

// LibraryCounts are the number of calls received by a Library, including the ones that failed.
type LibraryCounts struct {
	Create, SetStream, Destroy, SetPointerMode int
}

var (
	_ gpu.HandleLibrary = (*Library)(nil)
	_ gpu.BLASLibrary   = (*Library)(nil)
)

func newLibrary(kind gpu.HandleKind) *Library {
	return &Library{
		kind: kind,
		// Handles of different kinds don't overlap.
		next:    gpu.Handle(kind+1) << 32,
		handles: make(map[gpu.Handle]*handleState),
	}
}

// Kind of handles created by the library.
func (l *Library) Kind() gpu.HandleKind {
	return l.kind
}

// Create implements gpu.HandleLibrary.
func (l *Library) Create() (gpu.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts.Create++
	if l.failCreate != nil {
		return gpu.NullHandle, l.failCreate
	}
	l.next++
	h := l.next
	l.handles[h] = &handleState{}
	return h, nil
}

// state returns the state of a live handle. It must be called with mu held.
func (l *Library) state(h gpu.Handle) (*handleState, error) {
	st, found := l.handles[h]
	if !found {
		return nil, errors.Errorf("sim: invalid %s handle %#x", l.kind, uintptr(h))
	}
	return st, nil
}

// SetStream implements gpu.HandleLibrary.
func (l *Library) SetStream(h gpu.Handle, s gpu.Stream) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts.SetStream++
	if l.failSetStream != nil {
		return l.failSetStream
	}
	st, err := l.state(h)
	if err != nil {
		return err
	}
	st.stream, st.bound = s, true
	return nil
}

// Destroy implements gpu.HandleLibrary.
func (l *Library) Destroy(h gpu.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts.Destroy++
	if l.failDestroy != nil {
		return l.failDestroy
	}
	if _, err := l.state(h); err != nil {
		return err
	}
	delete(l.handles, h)
	return nil
}

// SetPointerMode implements gpu.BLASLibrary.
func (l *Library) SetPointerMode(h gpu.Handle, mode gpu.PointerMode) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts.SetPointerMode++
	if l.failPointerMode != nil {
		return l.failPointerMode
	}
	st, err := l.state(h)
	if err != nil {
		return err
	}
	st.pointerMode = mode
	return nil
}

// Live returns the number of handles created and not yet destroyed.
func (l *Library) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.handles)
}

// Counts returns the number of calls received so far.
func (l *Library) Counts() LibraryCounts {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts
}

// BoundStream returns the stream the handle is bound to.
func (l *Library) BoundStream(h gpu.Handle) (gpu.Stream, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, found := l.handles[h]
	if !found || !st.bound {
		return gpu.Stream{}, false
	}
	return st.stream, true
}

// PointerMode returns the pointer mode of the handle.
func (l *Library) PointerMode(h gpu.Handle) (gpu.PointerMode, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, found := l.handles[h]
	if !found {
		return 0, false
	}
	return st.pointerMode, true
}

// FailCreate makes Create return err. A nil err restores the normal behavior. The same for the other Fail* methods.
func (l *Library) FailCreate(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failCreate = err
}

// FailSetStream makes SetStream return err.
func (l *Library) FailSetStream(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failSetStream = err
}

// FailDestroy makes Destroy return err.
func (l *Library) FailDestroy(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failDestroy = err
}

// FailSetPointerMode makes SetPointerMode return err.
func (l *Library) FailSetPointerMode(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failPointerMode = err
}
