package gpu

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gomlx/gpuctx/devices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Runtime binds a Platform to its configuration, and it is the source of Thread objects.
//
// A Runtime is safe for concurrent use. The Thread objects it creates are not.
type Runtime struct {
	platform *Platform
	config   Config

	// allocMu serializes allocations and frees, see Mutex.
	allocMu sync.Mutex
	memory  memoryTracker

	liveThreads  atomic.Int64
	shuttingDown atomic.Bool
	closed       atomic.Bool
}

// Open creates the platform named in the configuration and returns a Runtime for it.
func Open(cfg Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := NewPlatform(cfg.Platform, cfg)
	if err != nil {
		return nil, err
	}
	return NewRuntime(p, cfg)
}

// NewRuntime returns a Runtime for an already created Platform.
func NewRuntime(p *Platform, cfg Config) (*Runtime, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runtime{platform: p, config: cfg}
	r.memory.reportThreshold = cfg.MemoryReportThreshold
	return r, nil
}

// Platform returns the platform used by the Runtime.
func (r *Runtime) Platform() *Platform {
	return r.platform
}

// Config returns the configuration of the Runtime.
func (r *Runtime) Config() Config {
	return r.config
}

// DeviceType of the devices managed by the Runtime.
func (r *Runtime) DeviceType() devices.Type {
	return r.platform.DeviceType
}

// DeviceCount returns the number of devices reported by the platform driver.
func (r *Runtime) DeviceCount() (int, error) {
	n, err := r.platform.Driver.DeviceCount()
	if err != nil {
		return 0, newError(DeviceQueryError, err, "querying device count")
	}
	return min(n, devices.MaxDevices), nil
}

// HasGPU returns whether at least one device is usable.
func (r *Runtime) HasGPU() bool {
	n, err := r.DeviceCount()
	return err == nil && n > 0
}

// Mutex returns the process-wide mutex held around device memory allocations and frees.
//
// Collective-communication kernels that can deadlock against allocations should hold it while
// being launched. It is never held around stream operations.
func (r *Runtime) Mutex() *sync.Mutex {
	return &r.allocMu
}

// NewThread returns a new Thread for the calling goroutine, which should be locked to its OS thread
// (see runtime.LockOSThread) for as long as the Thread is used.
// The Thread must be closed with Thread.Close. Consider using Run instead.
func (r *Runtime) NewThread() *Thread {
	return newThread(r)
}

// Run calls fn on a new goroutine locked to its OS thread, with a new Thread that is closed when fn returns.
// It returns the error returned by fn, after the Thread has been closed.
func (r *Runtime) Run(fn func(t *Thread) error) error {
	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		t := r.NewThread()
		var err error
		defer func() {
			t.Close()
			errCh <- err
		}()
		err = fn(t)
	}()
	return <-errCh
}

// BeginShutdown marks the process as exiting: from now on, closing Threads skip the destruction of
// library handles (if Config.LeakHandlesOnShutdown is set), since the vendor driver may be torn down
// concurrently. The handles are leaked on purpose.
func (r *Runtime) BeginShutdown() {
	r.shuttingDown.Store(true)
}

// ShuttingDown returns whether BeginShutdown was called.
func (r *Runtime) ShuttingDown() bool {
	return r.shuttingDown.Load()
}

func (r *Runtime) leakOnClose() bool {
	return r.config.LeakHandlesOnShutdown && r.shuttingDown.Load()
}

// Close finalizes the platform. All Threads must have been closed.
// Calling Close more than once is a no-op.
func (r *Runtime) Close() error {
	if live := r.liveThreads.Load(); live > 0 {
		return invalidArgf("Runtime.Close with %d threads still open", live)
	}
	if r.closed.Swap(true) {
		return nil
	}
	if r.platform.Finalize == nil {
		return nil
	}
	if err := r.platform.Finalize(); err != nil {
		return errors.WithMessagef(err, "finalizing platform %q", r.platform.Name)
	}
	return nil
}

// allocate nbytes on the device, holding the allocation mutex.
// The returned DataPtr releases the memory also holding the mutex.
func (r *Runtime) allocate(device, nbytes int) (DataPtr, error) {
	if !devices.ValidID(device) {
		return DataPtr{}, invalidArgf("allocating on invalid device %d", device)
	}
	if nbytes < 0 {
		return DataPtr{}, invalidArgf("allocating negative number of bytes (%d)", nbytes)
	}
	r.allocMu.Lock()
	ptr, err := r.platform.Allocator.Allocate(device, nbytes)
	r.allocMu.Unlock()
	if err != nil {
		return DataPtr{}, errors.WithMessagef(err, "allocating %d bytes on device %d", nbytes, device)
	}
	if r.config.MemoryTracking {
		r.memory.allocated(device, int64(nbytes))
	}
	return NewDataPtr(ptr.Device, ptr.Data, func() {
		r.allocMu.Lock()
		ptr.Release()
		r.allocMu.Unlock()
		if r.config.MemoryTracking {
			r.memory.freed(device, int64(nbytes))
		}
	}), nil
}

// TotalMemoryByDevice returns the memory currently allocated through Context.New, per device id.
// It requires Config.MemoryTracking.
func (r *Runtime) TotalMemoryByDevice() ([]int64, error) {
	if !r.config.MemoryTracking {
		return nil, invalidArgf("memory statistics require Config.MemoryTracking (or $%s=1)", MemoryTrackingEnv)
	}
	return r.memory.totals(), nil
}

// MaxMemoryByDevice returns the peak memory allocated through Context.New, per device id.
// It requires Config.MemoryTracking.
func (r *Runtime) MaxMemoryByDevice() ([]int64, error) {
	if !r.config.MemoryTracking {
		return nil, invalidArgf("memory statistics require Config.MemoryTracking (or $%s=1)", MemoryTrackingEnv)
	}
	return r.memory.peaks(), nil
}

func logTeardownError(err error, format string, args ...any) {
	if err == nil {
		return
	}
	args = append(args, err)
	klog.Errorf(format+": %+v", args...)
}
