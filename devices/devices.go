// Package devices defines the identity of the devices known to gpuctx: their type, their index and the
// device-option descriptor used by the operator layer to describe where an operator runs.
package devices

import "fmt"

//go:generate go tool enumer -type=Type -output=gen_type_enumer.go devices.go
//go:generate go tool enumer -type=CopyKind -trimprefix=Copy -output=gen_copykind_enumer.go devices.go

// MaxDevices is the compile-time bound on the number of devices of one type.
// Device ids are always in the range [0, MaxDevices).
const MaxDevices = 16

// Type of device. The values match the ones used by the caffe2 DeviceTypeProto, so they
// can be exchanged in serialized Option descriptors.
type Type int32

const (
	CPU  Type = 0
	CUDA Type = 1
	HIP  Type = 6
)

// IsGPU returns whether the device type is an accelerator managed by package gpu.
func (t Type) IsGPU() bool {
	return t == CUDA || t == HIP
}

// Device is the full identity of a device: its type and its index.
// CPU devices use ID -1.
type Device struct {
	Type Type
	ID   int
}

// Host is the CPU device.
var Host = Device{Type: CPU, ID: -1}

// New returns a Device of the given type and id.
func New(deviceType Type, id int) Device {
	return Device{Type: deviceType, ID: id}
}

// IsGPU returns whether the device is an accelerator.
func (d Device) IsGPU() bool {
	return d.Type.IsGPU()
}

// String implements fmt.Stringer.
func (d Device) String() string {
	if d.ID < 0 {
		return d.Type.String()
	}
	return fmt.Sprintf("%s:%d", d.Type, d.ID)
}

// ValidID returns whether id is a valid device index.
func ValidID(id int) bool {
	return id >= 0 && id < MaxDevices
}

// CopyKind is the direction of a memory transfer. Values match the vendor runtimes' memcpy kinds.
type CopyKind int

const (
	CopyHostToHost CopyKind = iota
	CopyHostToDevice
	CopyDeviceToHost
	CopyDeviceToDevice
)

// InferCopyKind returns the direction of a transfer from src to dst, based only on the device types.
func InferCopyKind(src, dst Device) CopyKind {
	switch {
	case src.IsGPU() && dst.IsGPU():
		return CopyDeviceToDevice
	case src.IsGPU():
		return CopyDeviceToHost
	case dst.IsGPU():
		return CopyHostToDevice
	default:
		return CopyHostToHost
	}
}
