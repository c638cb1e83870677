package sim

import (
	"sync"

	"github.com/gomlx/gpuctx/devices"
	"github.com/gomlx/gpuctx/gpu"
	"github.com/pkg/errors"
)

// Event implements gpu.Event for the simulated devices.
//
// Record marks a point in the work of the context's current stream, and Wait makes the work enqueued
// afterward on another stream wait for that point. Waiting for an event never recorded is a no-op.
type Event struct {
	driver *Driver

	mu       sync.Mutex
	recorded bool
	done     chan struct{}
	msg      string
}

var _ gpu.Event = (*Event)(nil)

// NewEvent creates an event for the simulated devices.
func (s *Sim) NewEvent() *Event {
	return &Event{driver: s.Driver}
}

func contextStream(deviceType devices.Type, ctx *gpu.Context) (gpu.Stream, error) {
	if deviceType != DeviceType {
		return gpu.Stream{}, errors.Errorf("sim: events of device type %s not supported", deviceType)
	}
	return ctx.Stream()
}

// Record implements gpu.Event.
func (e *Event) Record(deviceType devices.Type, ctx *gpu.Context, msg string) error {
	if e == nil {
		return errors.Wrapf(gpu.ErrInvalidArgument, "sim: recording nil event (%s)", msg)
	}
	s, err := contextStream(deviceType, ctx)
	if err != nil {
		return errors.WithMessagef(err, "recording event (%s)", msg)
	}
	done := make(chan struct{})
	if err = e.driver.Enqueue(s, func() error {
		close(done)
		return nil
	}); err != nil {
		return errors.WithMessagef(err, "recording event (%s)", msg)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorded, e.done, e.msg = true, done, msg
	return nil
}

// Wait implements gpu.Event.
func (e *Event) Wait(deviceType devices.Type, ctx *gpu.Context) error {
	if e == nil {
		return errors.Wrap(gpu.ErrInvalidArgument, "sim: waiting for nil event")
	}
	s, err := contextStream(deviceType, ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	recorded, done := e.recorded, e.done
	e.mu.Unlock()
	if !recorded {
		return nil
	}
	return e.driver.Enqueue(s, func() error {
		<-done
		return nil
	})
}

// Message returns the message given to the last Record.
func (e *Event) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg
}

// Query returns whether the work recorded by the event has completed. It doesn't block.
func (e *Event) Query() bool {
	e.mu.Lock()
	recorded, done := e.recorded, e.done
	e.mu.Unlock()
	if !recorded {
		return true
	}
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// Synchronize blocks until the work recorded by the event has completed.
func (e *Event) Synchronize() {
	e.mu.Lock()
	recorded, done := e.recorded, e.done
	e.mu.Unlock()
	if recorded {
		<-done
	}
}
