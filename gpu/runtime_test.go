package gpu

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestRuntimeRun(t *testing.T) {
	f, rt := newFakeRuntime(t, 1)
	var thread *Thread
	err := rt.Run(func(th *Thread) error {
		thread = th
		s := capture(th.Stream(0, 0)).Test(t)
		capture(th.HandleForStream(BLAS, s)).Test(t)
		return errors.New("operator failed")
	})
	require.ErrorContains(t, err, "operator failed")

	// The thread was closed before Run returned.
	require.True(t, thread.state.closed)
	require.Len(t, f.blas.destroyed, 1)
	require.Equal(t, int64(0), rt.liveThreads.Load())
}

func TestRuntimeCloseAfterThreadCollected(t *testing.T) {
	_, rt := newFakeRuntime(t, 1)
	func() {
		thread := rt.NewThread()
		capture(thread.Stream(0, 1)).Test(t)
	}()
	require.ErrorIs(t, rt.Close(), ErrInvalidArgument)
	require.Eventually(t, func() bool {
		runtime.GC()
		return rt.liveThreads.Load() == 0
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, rt.Close())
}

func TestRuntimeClose(t *testing.T) {
	_, rt := newFakeRuntime(t, 1)
	var finalized int
	rt.platform.Finalize = func() error {
		finalized++
		return nil
	}
	thread := rt.NewThread()
	require.ErrorIs(t, rt.Close(), ErrInvalidArgument)
	thread.Close()
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
	require.Equal(t, 1, finalized)
}

func TestNewRuntime(t *testing.T) {
	f := newFakePlatform(1)
	f.BLAS = nil
	_, err := NewRuntime(f.Platform, DefaultConfig())
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorContains(t, err, "BLAS")

	f = newFakePlatform(1)
	f.DNN = nil
	rt := capture(NewRuntime(f.Platform, DefaultConfig())).Test(t)
	require.Equal(t, 1, capture(rt.DeviceCount()).Test(t))
	require.True(t, rt.HasGPU())

	_, err = NewPlatform("no-such-platform", DefaultConfig())
	require.ErrorContains(t, err, "not registered")
}

func TestRegisterPlatform(t *testing.T) {
	RegisterPlatform("fake-registered", func(cfg Config) (*Platform, error) {
		f := newFakePlatform(cfg.NumDevices)
		f.Name = ""
		return f.Platform, nil
	})
	require.Contains(t, Platforms(), "fake-registered")
	cfg := DefaultConfig()
	cfg.Platform = "fake-registered"
	rt := capture(Open(cfg)).Test(t)
	require.Equal(t, "fake-registered", rt.Platform().Name)
	require.Equal(t, 2, capture(rt.DeviceCount()).Test(t))

	RegisterPlatform("fake-failing", func(Config) (*Platform, error) {
		return nil, errors.New("no devices found")
	})
	cfg.Platform = "fake-failing"
	_, err := Open(cfg)
	require.ErrorContains(t, err, "no devices found")
}

func TestMemoryTracking(t *testing.T) {
	f, rt := newFakeRuntime(t, 2)
	_, err := rt.TotalMemoryByDevice()
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = rt.MaxMemoryByDevice()
	require.ErrorIs(t, err, ErrInvalidArgument)

	rt.config.MemoryTracking = true
	rt.memory.reportThreshold = 100
	a := capture(rt.allocate(1, 64)).Test(t)
	b := capture(rt.allocate(1, 64)).Test(t)
	require.Equal(t, int64(128), capture(rt.TotalMemoryByDevice()).Test(t)[1])
	a.Release()
	a.Release()
	c := capture(rt.allocate(0, 10)).Test(t)

	total := capture(rt.TotalMemoryByDevice()).Test(t)
	peak := capture(rt.MaxMemoryByDevice()).Test(t)
	require.Equal(t, []int64{10, 64}, total[:2])
	require.Equal(t, []int64{10, 128}, peak[:2])
	b.Release()
	c.Release()
	require.Equal(t, 3, f.alloc.released)
	require.Equal(t, []int64{0, 0}, capture(rt.TotalMemoryByDevice()).Test(t)[:2])

	_, err = rt.allocate(-1, 10)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRuntimeMutex(t *testing.T) {
	f, rt := newFakeRuntime(t, 1)
	mu := rt.Mutex()
	mu.Lock()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ptr := must1(rt.allocate(0, 8))
		ptr.Release()
	}()
	// The allocation can't proceed while the mutex is held.
	require.Equal(t, 0, f.alloc.allocated)
	mu.Unlock()
	wg.Wait()
	require.Equal(t, 1, f.alloc.allocated)
}
