package sim

import (
	"math/bits"
	"sync"

	"github.com/gomlx/gpuctx/devices"
	"github.com/gomlx/gpuctx/gpu"
	"github.com/gomlx/gpuctx/hostbuf"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	// minCachedBlockSize is the smallest size class of the caching allocator.
	minCachedBlockSize = 256
	// maxCachedBlockSize is the largest size class (16MB): larger blocks are allocated directly.
	maxCachedBlockSize = 16 * 1024 * 1024
)

// Allocator implements gpu.Allocator for the simulated devices.
//
// With gpu.MemoryPoolCaching, released blocks are kept in power-of-2 size classes per device
// and reused by later allocations of the same class. They are freed by Flush.
type Allocator struct {
	numDevices int
	caching    bool
	minShift   int
	maxShift   int

	mu sync.Mutex
	// free[device][class] are the cached blocks of size 2^(class+minShift).
	free  [devices.MaxDevices][][]*hostbuf.Buffer
	stats AllocatorStats
	fault error
}

// AllocatorStats are counters of the Allocator.
type AllocatorStats struct {
	// Allocations of new memory, and Frees of memory.
	Allocations, Frees int64

	// CacheHits counts allocations served by a cached block.
	CacheHits int64

	// CachedBytes currently held in the cache.
	CachedBytes int64
}

var _ gpu.Allocator = (*Allocator)(nil)

func newAllocator(numDevices int, pool gpu.MemoryPoolType) *Allocator {
	a := &Allocator{
		numDevices: numDevices,
		caching:    pool == gpu.MemoryPoolCaching,
		minShift:   bits.TrailingZeros(uint(minCachedBlockSize)),
		maxShift:   bits.TrailingZeros(uint(maxCachedBlockSize)),
	}
	if a.caching {
		for device := range numDevices {
			a.free[device] = make([][]*hostbuf.Buffer, a.maxShift-a.minShift+1)
		}
	}
	return a
}

// sizeClass returns the class of blocks that can hold nbytes, or -1 if it is not cached.
func (a *Allocator) sizeClass(nbytes int) int {
	shift := max(bits.Len(uint(max(nbytes, 1)-1)), a.minShift)
	if shift > a.maxShift {
		return -1
	}
	return shift - a.minShift
}

// Allocate implements gpu.Allocator.
func (a *Allocator) Allocate(device, nbytes int) (gpu.DataPtr, error) {
	if device < 0 || device >= a.numDevices {
		return gpu.DataPtr{}, errors.Errorf("sim: invalid device ordinal %d (%d devices)", device, a.numDevices)
	}
	if nbytes < 0 {
		return gpu.DataPtr{}, errors.Errorf("sim: invalid allocation of %d bytes", nbytes)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fault != nil {
		return gpu.DataPtr{}, errors.WithMessagef(a.fault, "sim: allocating %d bytes on device %d", nbytes, device)
	}
	dev := devices.New(DeviceType, device)
	class := -1
	if a.caching {
		class = a.sizeClass(nbytes)
	}
	if class < 0 {
		buf, err := a.newBuffer(nbytes)
		if err != nil {
			return gpu.DataPtr{}, err
		}
		return gpu.NewDataPtr(dev, buf.Bytes(), func() { a.release(device, -1, buf) }), nil
	}

	var buf *hostbuf.Buffer
	if cached := a.free[device][class]; len(cached) > 0 {
		buf = cached[len(cached)-1]
		a.free[device][class] = cached[:len(cached)-1]
		a.stats.CacheHits++
		a.stats.CachedBytes -= int64(buf.Size())
	} else {
		var err error
		if buf, err = a.newBuffer(1 << (class + a.minShift)); err != nil {
			return gpu.DataPtr{}, err
		}
	}
	return gpu.NewDataPtr(dev, buf.Bytes()[:nbytes], func() { a.release(device, class, buf) }), nil
}

func (a *Allocator) newBuffer(size int) (*hostbuf.Buffer, error) {
	buf := hostbuf.New(size, klog.V(2).Enabled())
	if buf == nil {
		return nil, errors.Errorf("sim: out of memory allocating %d bytes", size)
	}
	a.stats.Allocations++
	return buf, nil
}

func (a *Allocator) release(device, class int, buf *hostbuf.Buffer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if class < 0 {
		buf.Free()
		a.stats.Frees++
		return
	}
	a.free[device][class] = append(a.free[device][class], buf)
	a.stats.CachedBytes += int64(buf.Size())
}

// Flush frees all cached blocks.
func (a *Allocator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for device := range a.numDevices {
		for class, cached := range a.free[device] {
			for _, buf := range cached {
				buf.Free()
				a.stats.Frees++
			}
			a.free[device][class] = nil
		}
	}
	a.stats.CachedBytes = 0
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() AllocatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Fail makes Allocate return err. A nil err restores the normal behavior.
func (a *Allocator) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fault = err
}
