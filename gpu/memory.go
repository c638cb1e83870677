package gpu

import (
	"slices"
	"sync"

	"github.com/gomlx/gpuctx/devices"
	"k8s.io/klog/v2"
)

// memoryTracker keeps the total and peak memory allocated per device.
type memoryTracker struct {
	mu              sync.Mutex
	total, peak     [devices.MaxDevices]int64
	sinceLastReport int64
	reportThreshold int64
}

func (m *memoryTracker) allocated(device int, nbytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total[device] += nbytes
	m.peak[device] = max(m.peak[device], m.total[device])
	m.sinceLastReport += nbytes
	if m.reportThreshold > 0 && m.sinceLastReport > m.reportThreshold {
		m.sinceLastReport = 0
		m.reportLocked()
	}
}

func (m *memoryTracker) freed(device int, nbytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total[device] -= nbytes
}

func (m *memoryTracker) reportLocked() {
	if !klog.V(1).Enabled() {
		return
	}
	var sum int64
	for device, total := range m.total {
		if total == 0 && m.peak[device] == 0 {
			continue
		}
		klog.Infof("device %d: %d bytes in use (peak %d)", device, total, m.peak[device])
		sum += total
	}
	klog.Infof("total device memory in use: %d bytes", sum)
}

func (m *memoryTracker) totals() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.total[:])
}

func (m *memoryTracker) peaks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.peak[:])
}
