package gpu

import (
	"k8s.io/klog/v2"
)

// handleCache owns the library handles of one kind, one per physical stream, for one thread.
type handleCache struct {
	kind HandleKind
	lib  HandleLibrary

	// setup configures newly created handles, before they are bound to their stream. It can be nil.
	setup func(h Handle) error

	handles map[Stream]Handle

	// order of creation, used for teardown.
	order []Stream
}

func newHandleCache(kind HandleKind, lib HandleLibrary, setup func(Handle) error) *handleCache {
	return &handleCache{
		kind:    kind,
		lib:     lib,
		setup:   setup,
		handles: make(map[Stream]Handle),
	}
}

// get returns the handle bound to the stream, creating it with the stream's device active if needed.
//
// Cached handles are rebound to the stream on every call, which is a no-op for libraries where
// the binding hasn't changed.
func (c *handleCache) get(t *Thread, s Stream) (Handle, error) {
	if h, found := c.handles[s]; found {
		if err := c.lib.SetStream(h, s); err != nil {
			return NullHandle, newError(ResourceCreationError, err, "binding %s handle to %s", c.kind, s)
		}
		return h, nil
	}

	var h Handle
	err := t.withDevice(s.Device, func() error {
		var err error
		h, err = c.create(s)
		return err
	})
	if err != nil {
		return NullHandle, err
	}
	c.handles[s] = h
	c.order = append(c.order, s)
	klog.V(2).Infof("created %s handle %#x for %s", c.kind, uintptr(h), s)
	return h, nil
}

// create a new handle and binds it to s. A partially configured handle is destroyed.
func (c *handleCache) create(s Stream) (Handle, error) {
	h, err := c.lib.Create()
	if err != nil {
		return NullHandle, newError(ResourceCreationError, err, "creating %s handle for %s", c.kind, s)
	}
	if h == NullHandle {
		return NullHandle, newError(ResourceCreationError, nil, "creating %s handle for %s returned a null handle", c.kind, s)
	}
	if c.setup != nil {
		err = c.setup(h)
	}
	if err == nil {
		err = c.lib.SetStream(h, s)
	}
	if err != nil {
		logTeardownError(c.lib.Destroy(h), "destroying partially configured %s handle %#x", c.kind, uintptr(h))
		return NullHandle, newError(ResourceCreationError, err, "configuring %s handle for %s", c.kind, s)
	}
	return h, nil
}

// len returns the number of cached handles.
func (c *handleCache) len() int {
	return len(c.handles)
}

// destroy every cached handle. Failures are logged, and the remaining handles are still destroyed.
// If leak is true the handles are dropped without being destroyed.
func (c *handleCache) destroy(leak bool) {
	if leak && len(c.order) > 0 {
		klog.V(1).Infof("shutting down: leaking %d %s handles", len(c.order), c.kind)
	}
	for _, s := range c.order {
		h := c.handles[s]
		if h == NullHandle || leak {
			continue
		}
		logTeardownError(c.lib.Destroy(h), "destroying %s handle %#x of %s", c.kind, uintptr(h), s)
	}
	clear(c.handles)
	c.order = nil
}
