//go:build !linux

package sim

// osThreadID identifies the calling OS thread, which owns the active device.
// Without a thread id all threads share the active device.
func osThreadID() int {
	return 0
}
