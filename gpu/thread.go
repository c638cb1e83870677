package gpu

import (
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var threadCounter atomic.Int64

// Thread holds the execution resources of one OS thread: its logical stream mapping, the current stream
// of each device, and the library handles bound to the streams it used.
//
// A Thread must only be used by the goroutine that created it, and that goroutine should stay locked to
// its OS thread (see Runtime.Run), since the platform's active device is a per-OS-thread property.
// Resources are created lazily, and they are released by Close.
type Thread struct {
	rt      *Runtime
	objects *threadObjects

	// activeDevice caches the driver's active device for this thread. -1 if not known.
	activeDevice int

	state *threadState
}

// threadState is shared with the leak cleanup, so it must not reference the Thread.
type threadState struct {
	id     int64
	closed bool

	// live is the Runtime's count of open threads.
	live *atomic.Int64
}

func newThread(rt *Runtime) *Thread {
	t := &Thread{
		rt:           rt,
		activeDevice: -1,
		state:        &threadState{id: threadCounter.Add(1), live: &rt.liveThreads},
	}
	rt.liveThreads.Add(1)
	runtime.AddCleanup(t, func(state *threadState) {
		if state.closed {
			return
		}
		state.closed = true
		state.live.Add(-1)
		klog.Errorf("gpu.Thread #%d garbage collected without being closed: its library handles were leaked", state.id)
	}, t.state)
	return t
}

// Runtime that created the Thread.
func (t *Thread) Runtime() *Runtime {
	return t.rt
}

// ID is a process unique number identifying the Thread, used in logs.
func (t *Thread) ID() int64 {
	return t.state.id
}

// obj returns the thread objects, creating them on first use.
func (t *Thread) obj() (*threadObjects, error) {
	if t.state.closed {
		return nil, invalidArgf("gpu.Thread #%d used after Close", t.state.id)
	}
	if t.objects == nil {
		t.objects = newThreadObjects(t.rt)
		klog.V(2).Infof("gpu.Thread #%d: created thread objects", t.state.id)
	}
	return t.objects, nil
}

// Close releases the library handles created by the Thread. The Thread can't be used afterward.
// Errors are logged, not returned. Calling Close more than once is a no-op.
//
// After Runtime.BeginShutdown the handles are leaked instead, if Config.LeakHandlesOnShutdown is set.
func (t *Thread) Close() {
	if t.state.closed {
		return
	}
	if t.objects != nil {
		t.objects.destroy()
		t.objects = nil
	}
	t.state.closed = true
	t.state.live.Add(-1)
}

// ActiveDevice returns the active device of the thread, querying the driver if it's not known.
func (t *Thread) ActiveDevice() (int, error) {
	if t.activeDevice >= 0 {
		return t.activeDevice, nil
	}
	device, err := t.rt.platform.Driver.Device()
	if err != nil {
		return -1, newError(DeviceQueryError, err, "querying active device")
	}
	t.activeDevice = device
	return device, nil
}

// SetActiveDevice makes the device the implicit target of the following operations of the thread.
func (t *Thread) SetActiveDevice(device int) error {
	if err := checkDevice(device); err != nil {
		return err
	}
	if t.activeDevice == device {
		return nil
	}
	if err := t.rt.platform.Driver.SetDevice(device); err != nil {
		t.activeDevice = -1
		return newError(DeviceQueryError, err, "setting active device to %d", device)
	}
	t.activeDevice = device
	return nil
}

// withDevice runs fn with the device active, and restores the previously active device afterward.
func (t *Thread) withDevice(device int, fn func() error) error {
	prev, err := t.ActiveDevice()
	if err != nil {
		return err
	}
	if prev == device {
		return fn()
	}
	if err = t.SetActiveDevice(device); err != nil {
		return err
	}
	err = fn()
	if restoreErr := t.SetActiveDevice(prev); restoreErr != nil && err == nil {
		err = restoreErr
	}
	return err
}

// Stream returns the physical stream mapped to the logical id on the device, without changing the current stream.
func (t *Thread) Stream(device int, id StreamID) (Stream, error) {
	o, err := t.obj()
	if err != nil {
		return Stream{}, err
	}
	return o.stream(device, id)
}

// SetCurrentStreamID makes the stream mapped to the logical id the current stream of the device.
// CurrentStreamID leaves the current stream unchanged.
func (t *Thread) SetCurrentStreamID(device int, id StreamID) error {
	o, err := t.obj()
	if err != nil {
		return err
	}
	return o.setCurrentStreamID(device, id)
}

// SetCurrentStream makes s the current stream of its device.
func (t *Thread) SetCurrentStream(s Stream) error {
	o, err := t.obj()
	if err != nil {
		return err
	}
	return o.setCurrentStream(s)
}

// CurrentStream returns the current stream of the device: the last one set, or the device's default stream.
func (t *Thread) CurrentStream(device int) (Stream, error) {
	o, err := t.obj()
	if err != nil {
		return Stream{}, err
	}
	return o.currentStream(device)
}

// Handle returns the library handle of the kind bound to the current stream of the device.
func (t *Thread) Handle(kind HandleKind, device int) (Handle, error) {
	o, err := t.obj()
	if err != nil {
		return NullHandle, err
	}
	return o.handle(t, kind, device)
}

// HandleForStream returns the library handle of the kind bound to the stream, creating it on first use.
func (t *Thread) HandleForStream(kind HandleKind, s Stream) (Handle, error) {
	o, err := t.obj()
	if err != nil {
		return NullHandle, err
	}
	return o.handleForStream(t, kind, s)
}

// IsStreamFree returns whether the stream mapped to the logical id has no pending work.
// It doesn't block.
func (t *Thread) IsStreamFree(device int, id StreamID) (bool, error) {
	s, err := t.Stream(device, id)
	if err != nil {
		return false, err
	}
	return queryStream(t.rt.platform.Driver, s)
}

// CopyBytesAsync enqueues the copy of nbytes from src to dst on the current stream of the device involved,
// that is the destination's if it's a device, otherwise the source's. It returns without waiting.
func (t *Thread) CopyBytesAsync(nbytes int, src, dst DataPtr) error {
	device, err := copyDevice(src, dst)
	if err != nil {
		return err
	}
	return t.withDevice(device, func() error {
		s, err := t.CurrentStream(device)
		if err != nil {
			return err
		}
		return enqueueCopy(t.rt.platform.Driver, nbytes, src, dst, s)
	})
}

// CopyBytesSync copies nbytes from src to dst like CopyBytesAsync, and waits for the copy to complete.
func (t *Thread) CopyBytesSync(nbytes int, src, dst DataPtr) error {
	if err := t.CopyBytesAsync(nbytes, src, dst); err != nil {
		return err
	}
	device, _ := copyDevice(src, dst)
	s, err := t.CurrentStream(device)
	if err != nil {
		return err
	}
	return synchronizeStream(t.rt.platform.Driver, s)
}

// copyDevice returns the device whose stream executes a transfer between src and dst.
func copyDevice(src, dst DataPtr) (int, error) {
	switch {
	case dst.Device.IsGPU():
		return dst.Device.ID, nil
	case src.Device.IsGPU():
		return src.Device.ID, nil
	}
	return -1, invalidArgf("copy between %s and %s doesn't involve a device", src.Device, dst.Device)
}

// queryStream polls the stream: ErrNotReady is reported as false.
func queryStream(driver Driver, s Stream) (bool, error) {
	err := driver.StreamQuery(s)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotReady):
		return false, nil
	default:
		return false, newError(DeviceQueryError, err, "querying %s", s)
	}
}

func synchronizeStream(driver Driver, s Stream) error {
	if err := driver.StreamSynchronize(s); err != nil {
		return newError(DeviceSynchronizationError, err, "synchronizing %s", s)
	}
	return nil
}
