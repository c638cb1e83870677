// gpuctx_bench runs concurrent copy workloads on a gpu platform, one Thread per worker, and reports
// the throughput and the memory used.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gomlx/gpuctx/gpu"
	_ "github.com/gomlx/gpuctx/gpu/sim"
	"github.com/gomlx/gpuctx/hostbuf"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

var (
	flagConfig     = flag.String("config", "", "YAML configuration file. If empty, the default configuration is used, with the environment overrides.")
	flagPlatform   = flag.String("platform", "", "Registered platform to use, overrides the configuration.")
	flagThreads    = flag.Int("threads", 4, "Number of concurrent threads, each with its own streams and handles.")
	flagBytes      = flag.Int("bytes", 1<<20, "Size of the buffers copied.")
	flagIterations = flag.Int("iterations", 100, "Number of device-to-device copies per thread.")
	flagTracking   = flag.Bool("tracking", false, "Enable memory tracking and report the memory used per device.")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `gpuctx_bench copies buffers host-to-device, device-to-device and back, from concurrent threads,
each one on its own logical stream, and checks the results.

Registered platforms: %v

Usage:
`, gpu.Platforms())
		flag.PrintDefaults()
	}
	klog.InitFlags(flag.CommandLine)
	flag.Parse()

	var cfg gpu.Config
	if *flagConfig != "" {
		cfg = must.M1(gpu.LoadConfig(*flagConfig))
	} else {
		cfg = must.M1(gpu.ConfigFromEnv())
	}
	if *flagPlatform != "" {
		cfg.Platform = *flagPlatform
	}
	if *flagTracking {
		cfg.MemoryTracking = true
	}
	rt := must.M1(gpu.Open(cfg))
	numDevices := must.M1(rt.DeviceCount())
	if numDevices == 0 {
		klog.Exitf("platform %q has no devices", cfg.Platform)
	}
	fmt.Printf("Platform %q: %d %s devices, memory pool %s\n", cfg.Platform, numDevices, rt.DeviceType(), cfg.MemoryPool)

	start := time.Now()
	var g errgroup.Group
	for i := range *flagThreads {
		g.Go(func() error {
			return rt.Run(func(t *gpu.Thread) error {
				return copyWorkload(t, i, i%numDevices)
			})
		})
	}
	must.M(g.Wait())
	elapsed := time.Since(start)

	totalBytes := float64(*flagThreads) * float64(*flagIterations+2) * float64(*flagBytes)
	fmt.Printf("%d threads x %d copies of %d bytes in %s: %.1f MB/s\n",
		*flagThreads, *flagIterations+2, *flagBytes, elapsed, totalBytes/elapsed.Seconds()/1e6)
	if cfg.MemoryTracking {
		peak := must.M1(rt.MaxMemoryByDevice())
		total := must.M1(rt.TotalMemoryByDevice())
		for device := range numDevices {
			fmt.Printf("\tdevice %d: peak %d bytes, %d bytes in use\n", device, peak[device], total[device])
		}
	}
	rt.BeginShutdown()
	must.M(rt.Close())
}

// copyWorkload runs on its own thread: it copies a host buffer to the device, then from buffer to buffer
// on the device, and back to the host, where it is checked.
func copyWorkload(t *gpu.Thread, worker, device int) error {
	ctx, err := gpu.NewContext(t, device)
	if err != nil {
		return err
	}
	defer ctx.Close()
	if err = ctx.SwitchToDevice(gpu.StreamID(worker)); err != nil {
		return err
	}
	if _, err = ctx.BLASHandle(); err != nil {
		return err
	}

	n := *flagBytes
	input, output := hostbuf.New(n, false), hostbuf.New(n, false)
	if input == nil || output == nil {
		return errors.Errorf("worker %d: failed to allocate %d bytes of host memory", worker, n)
	}
	defer input.Free()
	defer output.Free()
	for i, data := 0, input.Bytes(); i < n; i++ {
		data[i] = byte(i + worker)
	}

	buffers := make([]gpu.DataPtr, 2)
	for i := range buffers {
		if buffers[i], err = ctx.New(n); err != nil {
			return err
		}
		defer buffers[i].Release()
	}
	// Runs before the buffers are released: copies still in flight after an early return must complete first.
	defer func() {
		if err := ctx.FinishDeviceComputation(); err != nil {
			klog.Errorf("worker %d: waiting for pending copies: %+v", worker, err)
		}
	}()
	if err = ctx.CopyBytesFromCPU(n, gpu.HostPtr(input.Bytes()), buffers[0]); err != nil {
		return err
	}
	for i := range *flagIterations {
		if err = ctx.CopyBytesSameDevice(n, buffers[i%2], buffers[(i+1)%2]); err != nil {
			return err
		}
	}
	if err = ctx.CopyBytesToCPU(n, buffers[*flagIterations%2], gpu.HostPtr(output.Bytes())); err != nil {
		return err
	}
	if err = ctx.FinishDeviceComputation(); err != nil {
		return err
	}
	if !bytes.Equal(input.Bytes(), output.Bytes()) {
		return errors.Errorf("worker %d: data corrupted after %d copies on device %d", worker, *flagIterations, device)
	}
	stream, err := ctx.Stream()
	if err != nil {
		return err
	}
	klog.V(1).Infof("worker %d done on %s", worker, stream)
	return nil
}
