package gpu

import (
	"github.com/gomlx/gpuctx/devices"
)

// threadObjects are the resources owned by one Thread: the logical stream pools, the current stream
// of each device, and the caches of library handles.
type threadObjects struct {
	rt      *Runtime
	streams [devices.MaxDevices]streamPool

	// current stream per device, if one was set: otherwise it's the platform default stream.
	current    [devices.MaxDevices]Stream
	hasCurrent [devices.MaxDevices]bool

	blas, dnn, rng *handleCache
}

func newThreadObjects(rt *Runtime) *threadObjects {
	p := rt.platform
	o := &threadObjects{rt: rt}
	o.blas = newHandleCache(BLAS, p.BLAS, func(h Handle) error {
		return p.BLAS.SetPointerMode(h, PointerModeHost)
	})
	if p.DNN != nil {
		o.dnn = newHandleCache(DNN, p.DNN, nil)
	}
	o.rng = newHandleCache(RNG, p.RNG, nil)
	return o
}

func checkDevice(device int) error {
	if !devices.ValidID(device) {
		return invalidArgf("device id %d out of range [0, %d)", device, devices.MaxDevices)
	}
	return nil
}

// stream returns the physical stream for the logical id, ignoring the current stream.
func (o *threadObjects) stream(device int, id StreamID) (Stream, error) {
	if err := checkDevice(device); err != nil {
		return Stream{}, err
	}
	return o.streams[device].get(o.rt.platform.Streams, device, id)
}

// setCurrentStreamID installs the stream of the logical id as current for the device.
// CurrentStreamID is a no-op.
func (o *threadObjects) setCurrentStreamID(device int, id StreamID) error {
	if id == CurrentStreamID {
		return checkDevice(device)
	}
	s, err := o.stream(device, id)
	if err != nil {
		return err
	}
	o.current[device] = s
	o.hasCurrent[device] = true
	return nil
}

func (o *threadObjects) setCurrentStream(s Stream) error {
	if err := checkDevice(s.Device); err != nil {
		return err
	}
	o.current[s.Device] = s
	o.hasCurrent[s.Device] = true
	return nil
}

func (o *threadObjects) currentStream(device int) (Stream, error) {
	if err := checkDevice(device); err != nil {
		return Stream{}, err
	}
	if o.hasCurrent[device] {
		return o.current[device], nil
	}
	return o.rt.platform.Streams.DefaultStream(device), nil
}

func (o *threadObjects) cache(kind HandleKind) (*handleCache, error) {
	switch kind {
	case BLAS:
		return o.blas, nil
	case DNN:
		if o.dnn == nil {
			return nil, invalidArgf("platform %q has no DNN library", o.rt.platform.Name)
		}
		return o.dnn, nil
	case RNG:
		return o.rng, nil
	default:
		return nil, invalidArgf("unknown handle kind %d", kind)
	}
}

// handleForStream returns the handle of the kind bound to the stream.
func (o *threadObjects) handleForStream(t *Thread, kind HandleKind, s Stream) (Handle, error) {
	if err := checkDevice(s.Device); err != nil {
		return NullHandle, err
	}
	c, err := o.cache(kind)
	if err != nil {
		return NullHandle, err
	}
	return c.get(t, s)
}

// handle returns the handle of the kind bound to the current stream of the device.
func (o *threadObjects) handle(t *Thread, kind HandleKind, device int) (Handle, error) {
	var s Stream
	err := t.withDevice(device, func() error {
		var err error
		s, err = o.currentStream(device)
		return err
	})
	if err != nil {
		return NullHandle, err
	}
	return o.handleForStream(t, kind, s)
}

// destroy releases the library handles: it is called once, when the Thread is closed.
// Streams belong to the platform and are not released.
func (o *threadObjects) destroy() {
	leak := o.rt.leakOnClose()
	o.blas.destroy(leak)
	if o.dnn != nil {
		o.dnn.destroy(leak)
	}
	o.rng.destroy(leak)
}
