package gpu

import (
	"math"
	"unsafe"

	"github.com/gomlx/gpuctx/devices"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Element is the constraint of the fundamental types that can be copied item-wise with CopyItems.
type Element interface {
	bool | int8 | int16 | int32 | int64 | int | uint8 | uint16 | uint32 | uint64 | uint |
		float16.Float16 | float32 | float64 | complex64 | complex128
}

// enqueueCopy validates the transfer and enqueues it on s. The direction is inferred from the devices of src and dst.
func enqueueCopy(driver Driver, nbytes int, src, dst DataPtr, s Stream) error {
	if nbytes < 0 {
		return invalidArgf("copying a negative number of bytes (%d)", nbytes)
	}
	if nbytes > src.Len() || nbytes > dst.Len() {
		return invalidArgf("copying %d bytes from %s (%d bytes) to %s (%d bytes)",
			nbytes, src.Device, src.Len(), dst.Device, dst.Len())
	}
	if nbytes == 0 {
		return nil
	}
	kind := devices.InferCopyKind(src.Device, dst.Device)
	if err := driver.MemcpyAsync(dst, src, nbytes, kind, s); err != nil {
		return errors.WithMessagef(err, "enqueuing %s copy of %d bytes on %s", kind, nbytes, s)
	}
	return nil
}

// CopyBytes enqueues the copy of nbytes from src to dst on the current stream and returns without waiting:
// use FinishDeviceComputation or an Event to wait for its completion.
// The direction of the transfer is inferred from the devices of src and dst.
func (c *Context) CopyBytes(nbytes int, src, dst DataPtr) error {
	if err := c.checkBound("CopyBytes"); err != nil {
		return err
	}
	deviceType := c.t.rt.DeviceType()
	for _, p := range []DataPtr{src, dst} {
		if p.Device.IsGPU() && p.Device.Type != deviceType {
			return invalidArgf("CopyBytes with %s memory on a %s context", p.Device, deviceType)
		}
	}
	return c.t.withDevice(c.device, func() error {
		s, err := c.t.CurrentStream(c.device)
		if err != nil {
			return err
		}
		return enqueueCopy(c.t.rt.platform.Driver, nbytes, src, dst, s)
	})
}

func (c *Context) checkOnDevice(op string, p DataPtr) error {
	if p.Device != c.Device() {
		return invalidArgf("%s: memory on %s, context on %s", op, p.Device, c.Device())
	}
	return nil
}

func checkOnHost(op string, p DataPtr) error {
	if p.Device.IsGPU() {
		return invalidArgf("%s: memory on %s, expected host memory", op, p.Device)
	}
	return nil
}

// CopyBytesSameDevice enqueues a copy between two buffers on the Context's device.
func (c *Context) CopyBytesSameDevice(nbytes int, src, dst DataPtr) error {
	const op = "CopyBytesSameDevice"
	if err := c.checkBound(op); err != nil {
		return err
	}
	if err := c.checkOnDevice(op, src); err != nil {
		return err
	}
	if err := c.checkOnDevice(op, dst); err != nil {
		return err
	}
	return c.CopyBytes(nbytes, src, dst)
}

// CopyBytesToCPU enqueues a copy from the Context's device to host memory.
func (c *Context) CopyBytesToCPU(nbytes int, src, dst DataPtr) error {
	const op = "CopyBytesToCPU"
	if err := c.checkBound(op); err != nil {
		return err
	}
	if err := c.checkOnDevice(op, src); err != nil {
		return err
	}
	if err := checkOnHost(op, dst); err != nil {
		return err
	}
	return c.CopyBytes(nbytes, src, dst)
}

// CopyBytesFromCPU enqueues a copy from host memory to the Context's device.
func (c *Context) CopyBytesFromCPU(nbytes int, src, dst DataPtr) error {
	const op = "CopyBytesFromCPU"
	if err := c.checkBound(op); err != nil {
		return err
	}
	if err := checkOnHost(op, src); err != nil {
		return err
	}
	if err := c.checkOnDevice(op, dst); err != nil {
		return err
	}
	return c.CopyBytes(nbytes, src, dst)
}

// CopyItems enqueues the copy of n items of type T from src to dst on the Context's current stream.
func CopyItems[T Element](c *Context, n int, src, dst DataPtr) error {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if n < 0 || n > math.MaxInt/size {
		return invalidArgf("CopyItems of %d items of %d bytes", n, size)
	}
	return c.CopyBytes(n*size, src, dst)
}
