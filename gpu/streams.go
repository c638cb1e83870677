package gpu

import (
	"k8s.io/klog/v2"
)

// streamPool maps the logical stream ids of one device, as seen by one thread, to physical streams.
//
// It grows lazily, drawing streams from the platform's StreamAllocator, and never shrinks.
// Since the StreamAllocator is bounded and hands streams out round-robin, distinct logical ids
// may end up mapped to the same physical stream: operators relying on the aliasing keep working
// under high stream-id churn.
type streamPool struct {
	streams []Stream
}

// get returns the physical stream for the logical id, acquiring new streams as needed.
func (p *streamPool) get(alloc StreamAllocator, device int, id StreamID) (Stream, error) {
	if id < 0 {
		return Stream{}, invalidArgf("invalid logical stream id %d for device %d", id, device)
	}
	for len(p.streams) <= int(id) {
		s, err := alloc.AcquireStream(false, device)
		if err != nil {
			return Stream{}, newError(ResourceCreationError, err,
				"acquiring stream for logical id %d on device %d", len(p.streams), device)
		}
		klog.V(2).Infof("logical stream %d of device %d mapped to %s", len(p.streams), device, s)
		p.streams = append(p.streams, s)
	}
	return p.streams[id], nil
}

// size returns the number of logical ids mapped so far.
func (p *streamPool) size() int {
	return len(p.streams)
}
