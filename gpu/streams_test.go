package gpu

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestStreamPool(t *testing.T) {
	alloc := &fakeStreams{poolSize: 4}
	var pool streamPool

	// Grows lazily up to the requested logical id.
	s2 := capture(pool.get(alloc, 1, 2)).Test(t)
	require.Equal(t, 3, pool.size())
	require.Equal(t, 3, alloc.acquired)
	require.Equal(t, 1, s2.Device)

	// Same logical id, same physical stream, no new acquisitions.
	require.Equal(t, s2, capture(pool.get(alloc, 1, 2)).Test(t))
	s0 := capture(pool.get(alloc, 1, 0)).Test(t)
	require.Equal(t, 3, alloc.acquired)

	// Distinct logical ids map to distinct streams while the pool capacity is not exceeded.
	seen := make(map[Stream]StreamID)
	for id := StreamID(0); id < 4; id++ {
		s := capture(pool.get(alloc, 1, id)).Test(t)
		prev, found := seen[s]
		require.False(t, found, "logical ids %d and %d mapped to the same %s", prev, id, s)
		seen[s] = id
	}

	// Beyond the capacity, logical ids alias.
	s4 := capture(pool.get(alloc, 1, 4)).Test(t)
	require.Equal(t, s0, s4)

	_, err := pool.get(alloc, 1, -2)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStreamPoolFailure(t *testing.T) {
	cause := errors.New("no more streams")
	alloc := &fakeStreams{poolSize: 4, fail: cause}
	var pool streamPool
	_, err := pool.get(alloc, 0, 0)
	require.ErrorIs(t, err, ErrResourceCreation)
	require.ErrorIs(t, err, cause)
	require.Equal(t, 0, pool.size())

	// Not retried internally, but a later call may succeed.
	alloc.fail = nil
	s := capture(pool.get(alloc, 0, 0)).Test(t)
	require.Equal(t, Stream{Device: 0, ID: 1}, s)
}
