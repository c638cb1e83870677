// Package hostbuf provides host staging memory for device transfers.
//
// An asynchronous transfer keeps reading or writing its host memory after the call that enqueued it
// returns, so staging memory is allocated in C, where the Go garbage collector can't move or reclaim it
// while the device uses it. Buffers must be freed explicitly, after the transfers using them completed.
// A Buffer garbage collected while still allocated is reported with klog and its memory is kept: a pending
// transfer may still target it.
package hostbuf

/*
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"runtime"
	"unsafe"

	"k8s.io/klog/v2"
)

// Alignment of the memory returned by New, in bytes.
const Alignment = 64

// Buffer is zero-initialized, Alignment-aligned staging memory allocated in C.
type Buffer struct {
	block *block
}

// block is shared with the leak cleanup, so it must not reference the Buffer.
type block struct {
	base   unsafe.Pointer // as returned by calloc, passed to free.
	data   unsafe.Pointer // base rounded up to Alignment.
	size   int
	origin string
}

// New allocates a zeroed staging Buffer of size bytes. It returns nil if the host is out of memory.
//
// If traceOrigin is true, the caller's position is recorded and reported if the Buffer leaks.
func New(size int, traceOrigin bool) *Buffer {
	if size < 0 {
		panic(fmt.Sprintf("hostbuf.New: negative size %d", size))
	}
	base := C.calloc(C.size_t(size+Alignment), 1)
	if base == nil {
		return nil
	}
	blk := &block{base: unsafe.Pointer(base), size: size}
	blk.data = unsafe.Add(blk.base, (Alignment-uintptr(blk.base)%Alignment)%Alignment)
	if traceOrigin {
		if _, file, line, ok := runtime.Caller(1); ok {
			blk.origin = fmt.Sprintf("%s:%d", file, line)
		}
	}
	b := &Buffer{block: blk}
	runtime.AddCleanup(b, reportLeak, blk)
	return b
}

func reportLeak(blk *block) {
	if blk.base == nil {
		return
	}
	if blk.origin == "" {
		klog.Errorf("hostbuf: staging buffer of %d bytes dropped without Free; kept allocated for pending transfers", blk.size)
		return
	}
	klog.Errorf("hostbuf: staging buffer of %d bytes allocated at %s dropped without Free; kept allocated for pending transfers",
		blk.size, blk.origin)
}

// Size in bytes of the buffer, 0 after Free.
func (b *Buffer) Size() int {
	return b.block.size
}

// Bytes returns a view of the buffer, nil after Free. The view must not be used after Free.
func (b *Buffer) Bytes() []byte {
	if b.block.base == nil {
		return nil
	}
	return unsafe.Slice((*byte)(b.block.data), b.block.size)
}

// Free releases the memory. The transfers using the buffer must have completed.
// Calling Free more than once is a no-op.
func (b *Buffer) Free() {
	blk := b.block
	if blk.base == nil {
		return
	}
	C.free(blk.base)
	blk.base, blk.data, blk.size = nil, nil, 0
}
