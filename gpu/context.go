package gpu

import (
	"math/rand/v2"

	"github.com/gomlx/gpuctx/devices"
	"k8s.io/klog/v2"
)

// Context is the execution context of one operator invocation, bound to one device.
//
// It uses the streams and library handles of the Thread it was created on, which persist across
// contexts, except for its RNG generator, which is owned by the Context and destroyed by Close.
// A Context must not be handed to another thread without calling SwitchToDevice there.
//
// A Context created with a negative device id is unbound: it can only be used for host-side
// bookkeeping, and its device operations return an InvalidArgument error.
type Context struct {
	t        *Thread
	device   int
	streamID StreamID

	randomSeed uint32
	rng        Handle

	closed bool
}

// NewContext returns a Context bound to the device, with a random seed.
// A negative deviceID creates an unbound Context.
func NewContext(t *Thread, deviceID int) (*Context, error) {
	if deviceID >= devices.MaxDevices {
		return nil, invalidArgf("device id %d out of range [0, %d)", deviceID, devices.MaxDevices)
	}
	if deviceID < 0 {
		deviceID = -1
	}
	return &Context{
		t:          t,
		device:     deviceID,
		streamID:   CurrentStreamID,
		randomSeed: rand.Uint32(),
	}, nil
}

// NewContextFromOption returns a Context for the device described by the option.
//
// The option's type must be the runtime's device type. If the option has no device id, the thread's
// active device is used; if it has no random seed, a random one is drawn.
func NewContextFromOption(t *Thread, opt devices.Option) (*Context, error) {
	if deviceType := t.rt.DeviceType(); opt.Type != deviceType {
		return nil, invalidArgf("option for device type %s given to a %s runtime", opt.Type, deviceType)
	}
	deviceID := opt.ID
	if !opt.HasID {
		var err error
		deviceID, err = t.ActiveDevice()
		if err != nil {
			return nil, err
		}
	}
	c, err := NewContext(t, deviceID)
	if err != nil {
		return nil, err
	}
	if opt.HasRandomSeed {
		c.randomSeed = opt.RandomSeed
	}
	return c, nil
}

// HasAsyncPartDefault reports that operators running on a Context have an asynchronous part by default:
// dispatching them doesn't imply their completion.
func HasAsyncPartDefault() bool { return true }

// SupportsAsyncScheduling reports that operators running on a Context can be scheduled asynchronously.
func SupportsAsyncScheduling() bool { return true }

// Thread the Context was created on.
func (c *Context) Thread() *Thread {
	return c.t
}

// DeviceID returns the device id, or -1 for an unbound Context.
func (c *Context) DeviceID() int {
	return c.device
}

// Device returns the device of the Context, devices.Host if unbound.
func (c *Context) Device() devices.Device {
	if c.device < 0 {
		return devices.Host
	}
	return devices.New(c.t.rt.DeviceType(), c.device)
}

// IsBound returns whether the Context is bound to a device.
func (c *Context) IsBound() bool {
	return c.device >= 0
}

// RandomSeed used by the Context's RNG generator.
func (c *Context) RandomSeed() uint32 {
	return c.randomSeed
}

// StreamID returns the last logical stream id installed by SwitchToDevice, or CurrentStreamID if none was.
func (c *Context) StreamID() StreamID {
	return c.streamID
}

func (c *Context) checkBound(op string) error {
	if c.closed {
		return invalidArgf("%s on a closed Context", op)
	}
	if c.device < 0 {
		return invalidArgf("%s on an unbound Context", op)
	}
	return nil
}

// SwitchToDevice installs the stream of the logical id as the current stream of the Context's device,
// and makes the device active on the thread. CurrentStreamID keeps the current stream.
func (c *Context) SwitchToDevice(id StreamID) error {
	if err := c.checkBound("SwitchToDevice"); err != nil {
		return err
	}
	if err := c.t.SetCurrentStreamID(c.device, id); err != nil {
		return err
	}
	if id != CurrentStreamID {
		c.streamID = id
	}
	return c.t.SetActiveDevice(c.device)
}

// SwitchToDefault makes the Context's device active, keeping the current stream.
func (c *Context) SwitchToDefault() error {
	return c.SwitchToDevice(CurrentStreamID)
}

// Stream returns the current stream of the Context's device.
func (c *Context) Stream() (Stream, error) {
	if err := c.checkBound("Stream"); err != nil {
		return Stream{}, err
	}
	return c.t.CurrentStream(c.device)
}

// WaitEvent makes the future work on the current stream wait for the event.
func (c *Context) WaitEvent(ev Event) error {
	if ev == nil {
		return invalidArgf("WaitEvent with a nil event")
	}
	return ev.Wait(c.t.rt.DeviceType(), c)
}

// Record the event on the current stream. msg is attached to errors reported by the event.
func (c *Context) Record(ev Event, msg string) error {
	if ev == nil {
		return invalidArgf("Record with a nil event (%q)", msg)
	}
	return ev.Record(c.t.rt.DeviceType(), c, msg)
}

// FinishDeviceComputation blocks until all the work enqueued on the current stream completes.
// Device failures, including those of earlier asynchronous work, are returned as DeviceSynchronizationError.
func (c *Context) FinishDeviceComputation() error {
	s, err := c.Stream()
	if err != nil {
		return err
	}
	return synchronizeStream(c.t.rt.platform.Driver, s)
}

// IsStreamFree returns whether the stream of the logical id on the Context's device has no pending work.
// It doesn't block: pending work is reported as false, and other failures as DeviceQueryError.
func (c *Context) IsStreamFree(id StreamID) (bool, error) {
	if err := c.checkBound("IsStreamFree"); err != nil {
		return false, err
	}
	if id == CurrentStreamID {
		s, err := c.t.CurrentStream(c.device)
		if err != nil {
			return false, err
		}
		return queryStream(c.t.rt.platform.Driver, s)
	}
	return c.t.IsStreamFree(c.device, id)
}

// BLASHandle returns the thread's BLAS handle bound to the current stream, with host pointer mode.
func (c *Context) BLASHandle() (Handle, error) {
	if err := c.checkBound("BLASHandle"); err != nil {
		return NullHandle, err
	}
	return c.t.Handle(BLAS, c.device)
}

// DNNHandle returns the thread's DNN handle bound to the current stream.
// It returns an InvalidArgument error if the platform has no DNN library.
func (c *Context) DNNHandle() (Handle, error) {
	if err := c.checkBound("DNNHandle"); err != nil {
		return NullHandle, err
	}
	return c.t.Handle(DNN, c.device)
}

// RNGGenerator returns the Context's RNG generator bound to the current stream.
// The generator is created and seeded with RandomSeed on first use.
func (c *Context) RNGGenerator() (Handle, error) {
	s, err := c.Stream()
	if err != nil {
		return NullHandle, err
	}
	lib := c.t.rt.platform.RNG
	if c.rng == NullHandle {
		err = c.t.withDevice(c.device, func() error {
			h, err := lib.Create()
			if err != nil {
				return newError(ResourceCreationError, err, "creating RNG generator on device %d", c.device)
			}
			if h == NullHandle {
				return newError(ResourceCreationError, nil, "creating RNG generator on device %d returned a null handle", c.device)
			}
			if err = lib.SetSeed(h, uint64(c.randomSeed)); err != nil {
				logTeardownError(lib.Destroy(h), "destroying RNG generator %#x", uintptr(h))
				return newError(ResourceCreationError, err, "seeding RNG generator on device %d", c.device)
			}
			c.rng = h
			return nil
		})
		if err != nil {
			return NullHandle, err
		}
	}
	if err = lib.SetStream(c.rng, s); err != nil {
		return NullHandle, newError(ResourceCreationError, err, "binding RNG generator to %s", s)
	}
	return c.rng, nil
}

// New allocates nbytes on the Context's device. The caller owns the returned DataPtr and must Release it.
func (c *Context) New(nbytes int) (DataPtr, error) {
	if err := c.checkBound("New"); err != nil {
		return DataPtr{}, err
	}
	return c.t.rt.allocate(c.device, nbytes)
}

// Close waits for the work of the current stream and destroys the Context's RNG generator.
// Errors are logged, not returned. Calling Close more than once is a no-op.
func (c *Context) Close() {
	if c.closed || c.device < 0 {
		c.closed = true
		return
	}
	if err := c.FinishDeviceComputation(); err != nil {
		klog.Errorf("closing context on device %d: %+v", c.device, err)
	}
	if c.rng != NullHandle && !c.t.rt.leakOnClose() {
		logTeardownError(c.t.rt.platform.RNG.Destroy(c.rng), "destroying RNG generator %#x", uintptr(c.rng))
	}
	c.rng = NullHandle
	c.closed = true
}
