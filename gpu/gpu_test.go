package gpu

// Common initialization and testing tools for the white-box tests.

import (
	"flag"
	"testing"

	"github.com/gomlx/gpuctx/devices"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

var flagStreamPoolSize = flag.Int("fake_stream_pool", 4, "size of the stream pool of the fake platform")

func init() {
	klog.InitFlags(nil)
}

type errTester[T any] struct {
	value T
	err   error
}

// capture is a shortcut to test that there is no error and return the value.
func capture[T any](value T, err error) errTester[T] {
	return errTester[T]{value, err}
}

func (e errTester[T]) Test(t *testing.T) T {
	require.NoError(t, e.err)
	return e.value
}

func must(err error) {
	if err != nil {
		panic(errors.WithStack(err))
	}
}

func must1[T any](t T, err error) T {
	must(err)
	return t
}

// fakeDriver is a synchronous Driver: all work completes when enqueued.
type fakeDriver struct {
	numDevices     int
	device         int
	setDeviceCalls int
	deviceHistory  []int
	queryErr       error
	syncErr        error
	copies         int
}

func (d *fakeDriver) DeviceCount() (int, error) { return d.numDevices, nil }

func (d *fakeDriver) SetDevice(id int) error {
	if id < 0 || id >= d.numDevices {
		return errors.Errorf("fake: invalid device %d", id)
	}
	d.setDeviceCalls++
	d.device = id
	d.deviceHistory = append(d.deviceHistory, id)
	return nil
}

func (d *fakeDriver) Device() (int, error) { return d.device, nil }

func (d *fakeDriver) StreamQuery(Stream) error { return d.queryErr }

func (d *fakeDriver) StreamSynchronize(Stream) error { return d.syncErr }

func (d *fakeDriver) MemcpyAsync(dst, src DataPtr, nbytes int, _ devices.CopyKind, _ Stream) error {
	d.copies++
	copy(dst.Data[:nbytes], src.Data[:nbytes])
	return nil
}

// fakeStreams hands out streams round-robin from a pool of poolSize per device.
type fakeStreams struct {
	poolSize int
	next     map[int]int
	acquired int
	fail     error
}

func (s *fakeStreams) AcquireStream(_ bool, device int) (Stream, error) {
	if s.fail != nil {
		return Stream{}, s.fail
	}
	if s.next == nil {
		s.next = make(map[int]int)
	}
	id := s.next[device]%s.poolSize + 1
	s.next[device]++
	s.acquired++
	return Stream{Device: device, ID: int64(id)}, nil
}

func (s *fakeStreams) DefaultStream(device int) Stream { return Stream{Device: device} }

type fakeAllocator struct {
	allocated, released int
}

func (a *fakeAllocator) Allocate(device, nbytes int) (DataPtr, error) {
	a.allocated++
	return NewDataPtr(devices.New(devices.HIP, device), make([]byte, nbytes), func() { a.released++ }), nil
}

// fakeLibrary records the calls it receives, and it can fail on demand.
type fakeLibrary struct {
	next          Handle
	bound         map[Handle]Stream
	pointerModes  map[Handle]PointerMode
	seeds         map[Handle]uint64
	destroyed     []Handle
	createCalls   int
	setStreams    int
	failCreate    error
	failSetStream error
	failDestroy   map[Handle]error
	nullHandles   bool
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{
		bound:        make(map[Handle]Stream),
		pointerModes: make(map[Handle]PointerMode),
		seeds:        make(map[Handle]uint64),
		failDestroy:  make(map[Handle]error),
	}
}

func (l *fakeLibrary) Create() (Handle, error) {
	l.createCalls++
	if l.failCreate != nil {
		return NullHandle, l.failCreate
	}
	if l.nullHandles {
		return NullHandle, nil
	}
	l.next++
	return l.next, nil
}

func (l *fakeLibrary) SetStream(h Handle, s Stream) error {
	l.setStreams++
	if l.failSetStream != nil {
		return l.failSetStream
	}
	l.bound[h] = s
	return nil
}

func (l *fakeLibrary) Destroy(h Handle) error {
	l.destroyed = append(l.destroyed, h)
	return l.failDestroy[h]
}

func (l *fakeLibrary) SetPointerMode(h Handle, mode PointerMode) error {
	l.pointerModes[h] = mode
	return nil
}

func (l *fakeLibrary) SetSeed(h Handle, seed uint64) error {
	l.seeds[h] = seed
	return nil
}

func (l *fakeLibrary) GenerateUniform(Handle, DataPtr, int) error { return nil }

func (l *fakeLibrary) GenerateNormal(Handle, DataPtr, int, float32, float32) error { return nil }

type fakePlatform struct {
	*Platform
	driver  *fakeDriver
	streams *fakeStreams
	alloc   *fakeAllocator
	blas    *fakeLibrary
	dnn     *fakeLibrary
	rng     *fakeLibrary
}

func newFakePlatform(numDevices int) *fakePlatform {
	f := &fakePlatform{
		driver:  &fakeDriver{numDevices: numDevices},
		streams: &fakeStreams{poolSize: *flagStreamPoolSize},
		alloc:   &fakeAllocator{},
		blas:    newFakeLibrary(),
		dnn:     newFakeLibrary(),
		rng:     newFakeLibrary(),
	}
	f.Platform = &Platform{
		Name:       "fake",
		DeviceType: devices.HIP,
		Driver:     f.driver,
		Streams:    f.streams,
		Allocator:  f.alloc,
		BLAS:       f.blas,
		DNN:        f.dnn,
		RNG:        f.rng,
	}
	return f
}

func newFakeRuntime(t *testing.T, numDevices int) (*fakePlatform, *Runtime) {
	f := newFakePlatform(numDevices)
	cfg := DefaultConfig()
	cfg.Platform = "fake"
	cfg.NumDevices = numDevices
	return f, capture(NewRuntime(f.Platform, cfg)).Test(t)
}
