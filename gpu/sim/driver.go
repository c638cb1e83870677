package sim

import (
	"sync"
	"sync/atomic"

	"github.com/gomlx/gpuctx/devices"
	"github.com/gomlx/gpuctx/gpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Driver implements gpu.Driver for the simulated devices.
type Driver struct {
	numDevices int

	mu      sync.Mutex
	streams map[gpu.Stream]*stream
	closed  bool

	// queryFault, if set, is returned by StreamQuery.
	queryFault error

	// active device per OS thread.
	active sync.Map

	memcpyCount atomic.Int64
}

var _ gpu.Driver = (*Driver)(nil)

func newDriver(numDevices int) *Driver {
	return &Driver{
		numDevices: numDevices,
		streams:    make(map[gpu.Stream]*stream),
	}
}

// DeviceCount implements gpu.Driver.
func (d *Driver) DeviceCount() (int, error) {
	return d.numDevices, nil
}

func (d *Driver) checkDevice(id int) error {
	if id < 0 || id >= d.numDevices {
		return errors.Errorf("sim: invalid device ordinal %d (%d devices)", id, d.numDevices)
	}
	return nil
}

// SetDevice implements gpu.Driver.
func (d *Driver) SetDevice(id int) error {
	if err := d.checkDevice(id); err != nil {
		return err
	}
	d.active.Store(osThreadID(), id)
	return nil
}

// Device implements gpu.Driver. Threads start with device 0 active.
func (d *Driver) Device() (int, error) {
	if id, found := d.active.Load(osThreadID()); found {
		return id.(int), nil
	}
	return 0, nil
}

// stream returns the simulated stream, starting its worker on first use.
func (d *Driver) stream(s gpu.Stream) (*stream, error) {
	if err := d.checkDevice(s.Device); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.Errorf("sim: driver finalized, can't use %s", s)
	}
	st, found := d.streams[s]
	if !found {
		st = newStream(s)
		d.streams[s] = st
		klog.V(2).Infof("sim: started worker for %s", s)
	}
	return st, nil
}

// Enqueue adds an operation to the stream. It is executed after all the operations previously
// enqueued on the stream, and an error it returns is reported by the next synchronization or query of the stream.
func (d *Driver) Enqueue(s gpu.Stream, op func() error) error {
	st, err := d.stream(s)
	if err != nil {
		return err
	}
	return st.enqueue(op)
}

// StreamQuery implements gpu.Driver.
func (d *Driver) StreamQuery(s gpu.Stream) error {
	d.mu.Lock()
	fault := d.queryFault
	d.mu.Unlock()
	if fault != nil {
		return fault
	}
	st, err := d.stream(s)
	if err != nil {
		return err
	}
	return st.query()
}

// StreamSynchronize implements gpu.Driver.
func (d *Driver) StreamSynchronize(s gpu.Stream) error {
	st, err := d.stream(s)
	if err != nil {
		return err
	}
	return st.synchronize()
}

// MemcpyAsync implements gpu.Driver.
func (d *Driver) MemcpyAsync(dst, src gpu.DataPtr, nbytes int, kind devices.CopyKind, s gpu.Stream) error {
	for _, p := range []gpu.DataPtr{src, dst} {
		if !p.Device.IsGPU() {
			continue
		}
		if p.Device.Type != DeviceType {
			return errors.Errorf("sim: can't access %s memory", p.Device)
		}
		if err := d.checkDevice(p.Device.ID); err != nil {
			return err
		}
	}
	if inferred := devices.InferCopyKind(src.Device, dst.Device); kind != inferred {
		return errors.Errorf("sim: %s copy from %s to %s, expected %s", kind, src.Device, dst.Device, inferred)
	}
	if nbytes < 0 || nbytes > src.Len() || nbytes > dst.Len() {
		return errors.Errorf("sim: invalid copy of %d bytes from %d to %d bytes", nbytes, src.Len(), dst.Len())
	}
	d.memcpyCount.Add(1)
	return d.Enqueue(s, func() error {
		copy(dst.Data[:nbytes], src.Data[:nbytes])
		return nil
	})
}

// MemcpyCount returns the number of transfers enqueued so far.
func (d *Driver) MemcpyCount() int64 {
	return d.memcpyCount.Load()
}

// InjectFault enqueues an operation on the stream that fails with err, simulating an asynchronous device failure.
func (d *Driver) InjectFault(s gpu.Stream, err error) error {
	return d.Enqueue(s, func() error { return err })
}

// Hold enqueues an operation on the stream that blocks it until release is called.
// release can be called more than once.
func (d *Driver) Hold(s gpu.Stream) (release func(), err error) {
	gate := make(chan struct{})
	err = d.Enqueue(s, func() error {
		<-gate
		return nil
	})
	if err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }, nil
}

// FailQueries makes StreamQuery return err for every stream. A nil err restores the normal behavior.
func (d *Driver) FailQueries(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queryFault = err
}

// close stops the stream workers once they drain their queues.
func (d *Driver) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, st := range d.streams {
		st.close()
	}
	klog.V(2).Infof("sim: stopped %d stream workers", len(d.streams))
}

// stream executes its operations in order, on its own goroutine.
type stream struct {
	id gpu.Stream

	mu      sync.Mutex
	cond    sync.Cond
	queue   []func() error
	pending int

	// err is the first failure since the last synchronization or query.
	err    error
	closed bool
}

func newStream(id gpu.Stream) *stream {
	st := &stream{id: id}
	st.cond.L = &st.mu
	go st.run()
	return st
}

func (st *stream) run() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for {
		for len(st.queue) == 0 && !st.closed {
			st.cond.Wait()
		}
		if len(st.queue) == 0 {
			return
		}
		op := st.queue[0]
		st.queue[0] = nil
		st.queue = st.queue[1:]

		st.mu.Unlock()
		err := op()
		st.mu.Lock()

		if err != nil && st.err == nil {
			st.err = errors.WithMessagef(err, "sim: asynchronous failure on %s", st.id)
		}
		st.pending--
		st.cond.Broadcast()
	}
}

func (st *stream) enqueue(op func() error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return errors.Errorf("sim: %s is closed", st.id)
	}
	st.queue = append(st.queue, op)
	st.pending++
	st.cond.Broadcast()
	return nil
}

// takeErr returns and clears the pending failure. It must be called with mu held.
func (st *stream) takeErr() error {
	err := st.err
	st.err = nil
	return err
}

func (st *stream) synchronize() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	for st.pending > 0 {
		st.cond.Wait()
	}
	return st.takeErr()
}

func (st *stream) query() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.takeErr(); err != nil {
		return err
	}
	if st.pending > 0 {
		return gpu.ErrNotReady
	}
	return nil
}

func (st *stream) close() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true
	st.cond.Broadcast()
}
