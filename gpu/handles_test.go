package gpu

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestHandleCache(t *testing.T) {
	f, rt := newFakeRuntime(t, 2)
	thread := rt.NewThread()
	defer thread.Close()

	s := capture(thread.Stream(1, 0)).Test(t)
	h := capture(thread.HandleForStream(BLAS, s)).Test(t)
	require.NotEqual(t, NullHandle, h)
	require.Equal(t, s, f.blas.bound[h])
	require.Equal(t, PointerModeHost, f.blas.pointerModes[h])

	// Created with the stream's device active, which is then restored.
	require.Equal(t, []int{1, 0}, f.driver.deviceHistory)
	require.Equal(t, 0, capture(thread.ActiveDevice()).Test(t))

	// Cache hit: same handle, rebound to the stream.
	setStreams := f.blas.setStreams
	require.Equal(t, h, capture(thread.HandleForStream(BLAS, s)).Test(t))
	require.Equal(t, 1, f.blas.createCalls)
	require.Equal(t, setStreams+1, f.blas.setStreams)

	// Another stream, another handle.
	s1 := capture(thread.Stream(1, 1)).Test(t)
	h1 := capture(thread.HandleForStream(BLAS, s1)).Test(t)
	require.NotEqual(t, h, h1)

	// Each kind has its own cache.
	hDNN := capture(thread.HandleForStream(DNN, s)).Test(t)
	require.Equal(t, s, f.dnn.bound[hDNN])
	_, isBLAS := f.dnn.pointerModes[hDNN]
	require.False(t, isBLAS)

	// Addressed by device: the handle of the current stream, here the default stream.
	hDefault := capture(thread.Handle(BLAS, 1)).Test(t)
	require.Equal(t, Stream{Device: 1}, f.blas.bound[hDefault])
	require.NoError(t, thread.SetCurrentStreamID(1, 1))
	require.Equal(t, h1, capture(thread.Handle(BLAS, 1)).Test(t))

	_, err := thread.Handle(HandleKind(17), 0)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = thread.Handle(BLAS, 16)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHandleCacheFailures(t *testing.T) {
	f, rt := newFakeRuntime(t, 1)
	thread := rt.NewThread()
	defer thread.Close()
	s := capture(thread.Stream(0, 0)).Test(t)

	cause := errors.New("library not initialized")
	f.blas.failCreate = cause
	_, err := thread.HandleForStream(BLAS, s)
	require.ErrorIs(t, err, ErrResourceCreation)
	require.ErrorIs(t, err, cause)
	f.blas.failCreate = nil

	f.blas.nullHandles = true
	_, err = thread.HandleForStream(BLAS, s)
	require.ErrorIs(t, err, ErrResourceCreation)
	f.blas.nullHandles = false

	// Partially configured handles are destroyed, and nothing is cached.
	f.blas.failSetStream = cause
	_, err = thread.HandleForStream(BLAS, s)
	require.ErrorIs(t, err, ErrResourceCreation)
	require.Len(t, f.blas.destroyed, 1)
	require.Equal(t, 0, thread.objects.blas.len())

	// Rebinding failures on cache hits are also reported.
	f.blas.failSetStream = nil
	capture(thread.HandleForStream(BLAS, s)).Test(t)
	f.blas.failSetStream = cause
	_, err = thread.HandleForStream(BLAS, s)
	require.ErrorIs(t, err, ErrResourceCreation)
	f.blas.failSetStream = nil

	// Platform without DNN library.
	thread.objects.dnn = nil
	_, err = thread.HandleForStream(DNN, s)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestThreadCloseDestroysHandles(t *testing.T) {
	for _, numFailures := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("failures=%d", numFailures), func(t *testing.T) {
			f, rt := newFakeRuntime(t, 2)
			thread := rt.NewThread()
			const numStreams = 3
			var handles []Handle
			for device := range 2 {
				for id := range StreamID(numStreams) {
					s := capture(thread.Stream(device, id)).Test(t)
					handles = append(handles, capture(thread.HandleForStream(BLAS, s)).Test(t))
				}
			}
			require.Len(t, handles, 2*numStreams)
			for _, h := range handles[:numFailures] {
				f.blas.failDestroy[h] = errors.Errorf("failed to destroy %#x", uintptr(h))
			}

			thread.Close()
			require.ElementsMatch(t, handles, f.blas.destroyed)

			// Idempotent.
			thread.Close()
			require.Len(t, f.blas.destroyed, len(handles))
			require.NoError(t, rt.Close())
		})
	}
}

func TestThreadCloseLeaksOnShutdown(t *testing.T) {
	f, rt := newFakeRuntime(t, 1)
	thread := rt.NewThread()
	s := capture(thread.Stream(0, 0)).Test(t)
	capture(thread.HandleForStream(BLAS, s)).Test(t)
	capture(thread.HandleForStream(RNG, s)).Test(t)

	rt.BeginShutdown()
	require.True(t, rt.ShuttingDown())
	thread.Close()
	require.Empty(t, f.blas.destroyed)
	require.Empty(t, f.rng.destroyed)

	// Without LeakHandlesOnShutdown handles are destroyed even when shutting down.
	f, rt = newFakeRuntime(t, 1)
	rt.config.LeakHandlesOnShutdown = false
	thread = rt.NewThread()
	capture(thread.HandleForStream(BLAS, s)).Test(t)
	rt.BeginShutdown()
	thread.Close()
	require.Len(t, f.blas.destroyed, 1)
}
