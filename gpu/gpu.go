// Package gpu manages the per-thread execution resources of accelerator devices for a tensor runtime:
// streams, library handles (BLAS, DNN, RNG), and the memory transfers issued on them.
//
// The vendor runtime is abstracted by a Platform (see platform.go), selected by name from the
// registered platforms (see RegisterPlatform). A Runtime bundles a Platform with its Config.
// Each OS thread running operators owns a Thread, which lazily holds that thread's stream pools,
// handle caches and current streams. Operators interact with a Context, bound to one device.
//
// Typical use:
//
//	rt := must.M1(gpu.Open(gpu.DefaultConfig()))
//	defer rt.Close()
//	err := rt.Run(func(t *gpu.Thread) error {
//		ctx, err := gpu.NewContext(t, 0)
//		if err != nil {
//			return err
//		}
//		defer ctx.Close()
//		if err = ctx.SwitchToDevice(1); err != nil {
//			return err
//		}
//		if err = ctx.CopyBytesFromCPU(len(host), gpu.HostPtr(host), devBuf); err != nil {
//			return err
//		}
//		return ctx.FinishDeviceComputation()
//	})
package gpu

//go:generate go tool enumer -type=ErrorKind -output=gen_errorkind_enumer.go errors.go
//go:generate go tool enumer -type=HandleKind -output=gen_handlekind_enumer.go platform.go
//go:generate go tool enumer -type=PointerMode -trimprefix=PointerMode -output=gen_pointermode_enumer.go platform.go
//go:generate go tool enumer -type=MemoryPoolType -trimprefix=MemoryPool -transform=lower -yaml -output=gen_memorypooltype_enumer.go config.go
