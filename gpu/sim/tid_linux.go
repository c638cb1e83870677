//go:build linux

package sim

import "syscall"

// osThreadID identifies the calling OS thread, which owns the active device.
func osThreadID() int {
	return syscall.Gettid()
}
