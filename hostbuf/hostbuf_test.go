package hostbuf

import (
	"math/rand/v2"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, size := range []int{0, 1, 63, 64, 4096} {
		b := New(size, true)
		require.NotNil(t, b)
		require.Equal(t, size, b.Size())
		data := b.Bytes()
		require.Len(t, data, size)
		for _, v := range data {
			require.Zero(t, v)
		}
		if size > 0 {
			require.Zero(t, uintptr(unsafe.Pointer(&data[0]))%Alignment)
			data[size-1] = 7
			require.Equal(t, byte(7), b.Bytes()[size-1])
		}
		b.Free()
		require.Nil(t, b.Bytes())
		require.Zero(t, b.Size())
		b.Free() // No-op.
	}
}

func TestAllocationChurn(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	numLive := 100
	live := make([]*Buffer, numLive)
	for range 10_000 {
		idx := rng.IntN(numLive)
		if live[idx] != nil {
			live[idx].Free()
		}
		live[idx] = New(rng.IntN(1_000), false)
		if data := live[idx].Bytes(); len(data) > 0 {
			require.Zero(t, uintptr(unsafe.Pointer(&data[0]))%Alignment)
		}
	}
	for _, b := range live {
		if b != nil {
			b.Free()
		}
	}
}
