// Package sim implements a simulated gpu.Platform that runs on the host.
//
// Each stream is a FIFO of operations executed by its own goroutine, so work is asynchronous with respect
// to the enqueuing thread, ordered within a stream and unordered across streams, as on real devices.
// Device memory is C-allocated host memory (see package hostbuf).
//
// The platform is registered as "sim" with gpu.RegisterPlatform, so importing the package is enough:
//
//	import _ "github.com/gomlx/gpuctx/gpu/sim"
//
//	rt, err := gpu.Open(gpu.DefaultConfig())
//
// Tests that need to inspect the simulated devices or inject failures create it with New instead,
// and use Sim.Platform with gpu.NewRuntime.
package sim

import (
	"github.com/gomlx/gpuctx/devices"
	"github.com/gomlx/gpuctx/gpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PlatformName under which the simulated platform is registered.
const PlatformName = "sim"

func init() {
	gpu.RegisterPlatform(PlatformName, func(cfg gpu.Config) (*gpu.Platform, error) {
		s, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return s.Platform(), nil
	})
}

// Sim is a simulated set of devices and their libraries.
type Sim struct {
	Driver    *Driver
	Streams   *StreamAllocator
	Allocator *Allocator
	BLAS      *Library
	DNN       *Library
	RNG       *RNG
}

// DeviceType of the simulated devices.
const DeviceType = devices.HIP

// New creates the simulated devices described by the configuration: cfg.NumDevices devices,
// with cfg.StreamPoolSize streams per pool, and an allocator of type cfg.MemoryPool.
func New(cfg gpu.Config) (*Sim, error) {
	if cfg.NumDevices < 0 || cfg.NumDevices > devices.MaxDevices {
		return nil, errors.Errorf("sim: invalid number of devices %d, it must be in [0, %d]", cfg.NumDevices, devices.MaxDevices)
	}
	if cfg.StreamPoolSize <= 0 {
		return nil, errors.Errorf("sim: invalid stream pool size %d", cfg.StreamPoolSize)
	}
	driver := newDriver(cfg.NumDevices)
	s := &Sim{
		Driver:    driver,
		Streams:   newStreamAllocator(cfg.NumDevices, cfg.StreamPoolSize),
		Allocator: newAllocator(cfg.NumDevices, cfg.MemoryPool),
		BLAS:      newLibrary(gpu.BLAS),
		DNN:       newLibrary(gpu.DNN),
		RNG:       newRNG(driver),
	}
	klog.V(1).Infof("sim: created %d simulated %s devices (stream pool of %d, memory pool %s)",
		cfg.NumDevices, DeviceType, cfg.StreamPoolSize, cfg.MemoryPool)
	return s, nil
}

// Platform returns the gpu.Platform backed by the simulated devices.
func (s *Sim) Platform() *gpu.Platform {
	return &gpu.Platform{
		Name:       PlatformName,
		DeviceType: DeviceType,
		Driver:     s.Driver,
		Streams:    s.Streams,
		Allocator:  s.Allocator,
		BLAS:       s.BLAS,
		DNN:        s.DNN,
		RNG:        s.RNG,
		Finalize:   s.Finalize,
	}
}

// Finalize stops the stream workers, after they finish the enqueued work, and frees the cached memory.
func (s *Sim) Finalize() error {
	s.Driver.close()
	s.Allocator.Flush()
	if live := s.BLAS.Live() + s.DNN.Live() + s.RNG.Live(); live > 0 {
		klog.V(1).Infof("sim: finalized with %d library handles not destroyed", live)
	}
	return nil
}
