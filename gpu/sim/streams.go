package sim

import (
	"sync"

	"github.com/gomlx/gpuctx/devices"
	"github.com/gomlx/gpuctx/gpu"
	"github.com/pkg/errors"
)

// StreamAllocator implements gpu.StreamAllocator with fixed pools of streams per device and priority,
// handed out round-robin: once a pool is exhausted, streams are reused.
//
// Low priority streams have ids 1 to poolSize, high priority ones poolSize+1 to 2*poolSize.
type StreamAllocator struct {
	numDevices, poolSize int

	mu             sync.Mutex
	next, nextHigh [devices.MaxDevices]int
	acquired       int
	fault          error
}

var _ gpu.StreamAllocator = (*StreamAllocator)(nil)

func newStreamAllocator(numDevices, poolSize int) *StreamAllocator {
	return &StreamAllocator{numDevices: numDevices, poolSize: poolSize}
}

// PoolSize returns the number of streams per device and priority.
func (a *StreamAllocator) PoolSize() int {
	return a.poolSize
}

// AcquireStream implements gpu.StreamAllocator.
func (a *StreamAllocator) AcquireStream(highPriority bool, device int) (gpu.Stream, error) {
	if device < 0 || device >= a.numDevices {
		return gpu.Stream{}, errors.Errorf("sim: invalid device ordinal %d (%d devices)", device, a.numDevices)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fault != nil {
		return gpu.Stream{}, a.fault
	}
	counter, offset := &a.next[device], 1
	if highPriority {
		counter, offset = &a.nextHigh[device], a.poolSize+1
	}
	id := *counter%a.poolSize + offset
	*counter++
	a.acquired++
	return gpu.Stream{Device: device, ID: int64(id)}, nil
}

// DefaultStream implements gpu.StreamAllocator.
func (a *StreamAllocator) DefaultStream(device int) gpu.Stream {
	return gpu.Stream{Device: device}
}

// Acquired returns the number of calls to AcquireStream that succeeded.
func (a *StreamAllocator) Acquired() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired
}

// Fail makes AcquireStream return err. A nil err restores the normal behavior.
func (a *StreamAllocator) Fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fault = err
}
