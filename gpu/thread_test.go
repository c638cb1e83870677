package gpu

import (
	"testing"

	"github.com/gomlx/gpuctx/devices"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCurrentStream(t *testing.T) {
	f, rt := newFakeRuntime(t, 2)
	thread := rt.NewThread()
	defer thread.Close()

	// Default stream until one is set.
	require.Equal(t, Stream{Device: 1}, capture(thread.CurrentStream(1)).Test(t))
	require.Equal(t, 0, f.streams.acquired)

	require.NoError(t, thread.SetCurrentStreamID(1, 2))
	s2 := capture(thread.CurrentStream(1)).Test(t)
	require.Equal(t, capture(thread.Stream(1, 2)).Test(t), s2)

	// CurrentStreamID is a no-op.
	require.NoError(t, thread.SetCurrentStreamID(1, CurrentStreamID))
	require.Equal(t, s2, capture(thread.CurrentStream(1)).Test(t))

	// Devices have independent current streams.
	require.Equal(t, Stream{Device: 0}, capture(thread.CurrentStream(0)).Test(t))

	// Streams can also be installed directly.
	s0 := capture(thread.Stream(1, 0)).Test(t)
	require.NoError(t, thread.SetCurrentStream(s0))
	require.Equal(t, s0, capture(thread.CurrentStream(1)).Test(t))

	require.ErrorIs(t, thread.SetCurrentStreamID(devices.MaxDevices, 0), ErrInvalidArgument)
	require.ErrorIs(t, thread.SetCurrentStreamID(-1, CurrentStreamID), ErrInvalidArgument)
	require.ErrorIs(t, thread.SetCurrentStream(Stream{Device: -3}), ErrInvalidArgument)
}

func TestIsStreamFree(t *testing.T) {
	f, rt := newFakeRuntime(t, 1)
	thread := rt.NewThread()
	defer thread.Close()

	require.True(t, capture(thread.IsStreamFree(0, 0)).Test(t))

	f.driver.queryErr = errors.WithMessage(ErrNotReady, "3 kernels pending")
	require.False(t, capture(thread.IsStreamFree(0, 0)).Test(t))

	cause := errors.New("illegal address")
	f.driver.queryErr = cause
	_, err := thread.IsStreamFree(0, 0)
	require.ErrorIs(t, err, ErrDeviceQuery)
	require.ErrorIs(t, err, cause)
}

func TestActiveDevice(t *testing.T) {
	f, rt := newFakeRuntime(t, 3)
	thread := rt.NewThread()
	defer thread.Close()

	f.driver.device = 2
	require.Equal(t, 2, capture(thread.ActiveDevice()).Test(t))

	// Cached: setting the same device again doesn't reach the driver.
	require.NoError(t, thread.SetActiveDevice(2))
	require.Equal(t, 0, f.driver.setDeviceCalls)
	require.NoError(t, thread.SetActiveDevice(1))
	require.Equal(t, 1, f.driver.setDeviceCalls)
	require.Equal(t, 1, f.driver.device)

	require.ErrorIs(t, thread.SetActiveDevice(devices.MaxDevices), ErrInvalidArgument)
	require.ErrorIs(t, thread.SetActiveDevice(5), ErrDeviceQuery)
	// After a failure the active device is queried again.
	require.Equal(t, 1, capture(thread.ActiveDevice()).Test(t))
}

func TestThreadCopyBytes(t *testing.T) {
	f, rt := newFakeRuntime(t, 2)
	thread := rt.NewThread()
	defer thread.Close()

	src := HostPtr([]byte("0123456789"))
	dst := NewDataPtr(devices.New(devices.HIP, 1), make([]byte, 10), nil)
	require.NoError(t, thread.CopyBytesSync(10, src, dst))
	require.Equal(t, src.Data, dst.Data)
	require.Equal(t, 1, f.driver.copies)
	// The copy ran with device 1 active, then device 0 was restored.
	require.Equal(t, []int{1, 0}, f.driver.deviceHistory)

	back := make([]byte, 4)
	require.NoError(t, thread.CopyBytesAsync(4, dst, HostPtr(back)))
	require.Equal(t, []byte("0123"), back)

	f.driver.syncErr = errors.New("device lost")
	require.ErrorIs(t, thread.CopyBytesSync(1, src, dst), ErrDeviceSynchronization)

	require.ErrorIs(t, thread.CopyBytesAsync(1, src, HostPtr(back)), ErrInvalidArgument)
	require.ErrorIs(t, thread.CopyBytesAsync(11, src, dst), ErrInvalidArgument)
}

func TestThreadUseAfterClose(t *testing.T) {
	_, rt := newFakeRuntime(t, 1)
	thread := rt.NewThread()
	thread.Close()
	_, err := thread.CurrentStream(0)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, thread.SetCurrentStreamID(0, 1), ErrInvalidArgument)

	// Contexts left open are still closed without failing.
	_, rt = newFakeRuntime(t, 1)
	thread = rt.NewThread()
	ctx := capture(NewContext(thread, 0)).Test(t)
	capture(ctx.RNGGenerator()).Test(t)
	thread.Close()
	ctx.Close()
}
