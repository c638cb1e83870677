package gpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/gomlx/gpuctx/devices"
)

// StreamID is a logical stream id, assigned by the operator-scheduling layer to request a
// consistent stream without knowing its physical identity.
//
// Logical ids are not unique per physical stream: once the platform's stream pool is exhausted,
// distinct logical ids may map to the same physical Stream.
type StreamID int

// CurrentStreamID means "no override": keep using the thread's current stream.
const CurrentStreamID StreamID = -1

// Stream identifies a physical device stream: an ordered command queue on one device.
//
// Streams are owned by the Platform's StreamAllocator and live for the whole process.
// Stream is a comparable value, and it is used as the key of the handle caches.
type Stream struct {
	Device int

	// ID is assigned by the StreamAllocator, unique within the device. 0 is the default stream.
	ID int64
}

// IsDefault returns whether this is the device's default stream.
func (s Stream) IsDefault() bool {
	return s.ID == 0
}

// String implements fmt.Stringer.
func (s Stream) String() string {
	return fmt.Sprintf("stream(device=%d, id=%d)", s.Device, s.ID)
}

// Handle is an opaque library handle (BLAS, DNN or RNG generator). NullHandle is never a valid handle.
type Handle uintptr

// NullHandle is the zero value of Handle.
const NullHandle Handle = 0

// HandleKind enumerates the library handles cached per stream.
type HandleKind int

const (
	BLAS HandleKind = iota
	DNN
	RNG
)

// PointerMode of BLAS handles: whether scalar arguments (alpha, beta) and results live on the host or the device.
type PointerMode int

const (
	PointerModeHost PointerMode = iota
	PointerModeDevice
)

// DataPtr is a range of memory on a device or on the host, as handed to the copy operations.
//
// Data is the memory as seen by the Platform: for host memory it is the host slice; for device memory it is
// whatever view the Platform's Allocator provided. The owner of a DataPtr returned by an Allocator must call Release.
type DataPtr struct {
	Data   []byte
	Device devices.Device

	deleter *deleter
}

type deleter struct {
	once sync.Once
	fn   func()
}

// NewDataPtr creates a DataPtr owning data on device; release is called at most once by DataPtr.Release.
// Used by Allocator implementations.
func NewDataPtr(device devices.Device, data []byte, release func()) DataPtr {
	p := DataPtr{Data: data, Device: device}
	if release != nil {
		p.deleter = &deleter{fn: release}
	}
	return p
}

// HostPtr returns a DataPtr pointing to host memory, not owned by the DataPtr.
//
// Asynchronous transfers may read or write the memory after the call that enqueued them returns, so
// for platforms with real devices the memory must not be owned by the Go runtime: see package hostbuf.
func HostPtr(data []byte) DataPtr {
	return DataPtr{Data: data, Device: devices.Host}
}

// HostItemsPtr returns a host DataPtr over the memory of a slice of fundamental values.
// See HostPtr on the ownership of the memory.
func HostItemsPtr[T Element](items []T) DataPtr {
	if len(items) == 0 {
		return HostPtr(nil)
	}
	var zero T
	size := len(items) * int(unsafe.Sizeof(zero))
	return HostPtr(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(items))), size))
}

// Len returns the number of bytes addressable by the DataPtr.
func (p DataPtr) Len() int {
	return len(p.Data)
}

// Release frees the memory if the DataPtr owns it. It is safe to call more than once.
func (p DataPtr) Release() {
	if p.deleter == nil {
		return
	}
	p.deleter.once.Do(p.deleter.fn)
}

// Driver is the contract of the vendor device runtime consumed by this package.
//
// The active device is a property of the calling OS thread: see Runtime.Run.
type Driver interface {
	// DeviceCount returns the number of devices visible.
	DeviceCount() (int, error)

	// SetDevice makes the device the implicit target of subsequent operations of the calling thread.
	SetDevice(id int) error

	// Device returns the active device of the calling thread.
	Device() (int, error)

	// StreamQuery returns nil if all the work enqueued on the stream has completed, ErrNotReady (possibly
	// wrapped) if there is pending work, or any other error reported by the device.
	StreamQuery(s Stream) error

	// StreamSynchronize blocks until all the work enqueued on the stream has completed.
	StreamSynchronize(s Stream) error

	// MemcpyAsync enqueues a transfer of nbytes from src to dst on the stream, and returns immediately.
	MemcpyAsync(dst, src DataPtr, nbytes int, kind devices.CopyKind, s Stream) error
}

// StreamAllocator is the platform's global stream pool.
type StreamAllocator interface {
	// AcquireStream returns a stream from the pool of the device. The pool is bounded, so streams are
	// handed out round-robin and eventually repeat.
	AcquireStream(highPriority bool, device int) (Stream, error)

	// DefaultStream returns the default (null) stream of the device.
	DefaultStream(device int) Stream
}

// Allocator of device memory. The returned DataPtr is exclusively owned by the caller.
type Allocator interface {
	Allocate(device, nbytes int) (DataPtr, error)
}

// HandleLibrary is the contract of a vendor math library whose handles are bound to streams.
//
// Create is called with the handle's device active on the calling thread.
type HandleLibrary interface {
	Create() (Handle, error)
	SetStream(h Handle, s Stream) error
	Destroy(h Handle) error
}

// BLASLibrary is a HandleLibrary with pointer mode configuration.
type BLASLibrary interface {
	HandleLibrary
	SetPointerMode(h Handle, mode PointerMode) error
}

// RNGLibrary is a HandleLibrary of pseudo-random generators.
//
// The Generate* methods enqueue the generation of n float32 values into dst on the stream bound to the generator.
type RNGLibrary interface {
	HandleLibrary
	SetSeed(h Handle, seed uint64) error
	GenerateUniform(h Handle, dst DataPtr, n int) error
	GenerateNormal(h Handle, dst DataPtr, n int, mean, stddev float32) error
}

// Event is the contract of the synchronization primitive used across streams.
//
// Implementations must accept a nil receiver and return an error matching ErrInvalidArgument
// (e.g. errors.Wrap(ErrInvalidArgument, ...)), since a nil pointer in the interface is not caught by
// Context.Record and Context.WaitEvent.
type Event interface {
	// Wait makes future work of the context's current stream wait for the event.
	Wait(deviceType devices.Type, ctx *Context) error

	// Record the event on the context's current stream. The message, if not empty, is attached to
	// failures reported by the event.
	Record(deviceType devices.Type, ctx *Context, msg string) error
}

// Platform bundles the vendor collaborators used by a Runtime.
type Platform struct {
	// Name of the platform, as registered with RegisterPlatform.
	Name string

	// DeviceType of the devices of the platform (devices.CUDA or devices.HIP).
	DeviceType devices.Type

	Driver    Driver
	Streams   StreamAllocator
	Allocator Allocator
	BLAS      BLASLibrary
	RNG       RNGLibrary

	// DNN is optional: leave it nil if the platform has no convolution library.
	DNN HandleLibrary

	// Finalize, if set, is called by Runtime.Close after all threads are closed.
	Finalize func() error
}

// validate checks that the required collaborators are present.
func (p *Platform) validate() error {
	if p == nil {
		return invalidArgf("nil Platform")
	}
	if !p.DeviceType.IsGPU() {
		return invalidArgf("platform %q has non-GPU device type %s", p.Name, p.DeviceType)
	}
	var missing []string
	if p.Driver == nil {
		missing = append(missing, "Driver")
	}
	if p.Streams == nil {
		missing = append(missing, "Streams")
	}
	if p.Allocator == nil {
		missing = append(missing, "Allocator")
	}
	if p.BLAS == nil {
		missing = append(missing, "BLAS")
	}
	if p.RNG == nil {
		missing = append(missing, "RNG")
	}
	if len(missing) > 0 {
		return invalidArgf("platform %q is missing %v", p.Name, missing)
	}
	return nil
}
