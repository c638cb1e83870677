package devices

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the caffe2 DeviceOption proto message.
const (
	optionDeviceTypeField protowire.Number = 1
	optionDeviceIDField   protowire.Number = 2
	optionRandomSeedField protowire.Number = 3
	optionNodeNameField   protowire.Number = 4
	optionNUMANodeField   protowire.Number = 5
	optionExtraInfoField  protowire.Number = 6
)

// Option describes where an operator should run. It is the Go side of the DeviceOption
// descriptor, and it can be exchanged in its protobuf wire format with Marshal and ParseOption.
//
// Optional fields have a matching Has* flag, set by ParseOption or by the With* methods.
type Option struct {
	Type Type

	ID    int
	HasID bool

	RandomSeed    uint32
	HasRandomSeed bool

	NodeName   string
	NUMANodeID int
	HasNUMA    bool
	ExtraInfo  []string
}

// NewOption returns an Option for the given device.
func NewOption(deviceType Type, id int) Option {
	return Option{Type: deviceType, ID: id, HasID: true}
}

// WithRandomSeed returns a copy of the Option with the random seed set.
func (o Option) WithRandomSeed(seed uint32) Option {
	o.RandomSeed = seed
	o.HasRandomSeed = true
	return o
}

// Device returns the device described by the option. The CPU device is returned for non-GPU types.
func (o Option) Device() Device {
	if !o.Type.IsGPU() {
		return Host
	}
	return Device{Type: o.Type, ID: o.ID}
}

// Marshal encodes the option in the protobuf wire format of the DeviceOption message.
func (o Option) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, optionDeviceTypeField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(int64(o.Type)))
	if o.HasID {
		b = protowire.AppendTag(b, optionDeviceIDField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(o.ID)))
	}
	if o.HasRandomSeed {
		b = protowire.AppendTag(b, optionRandomSeedField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.RandomSeed))
	}
	if o.NodeName != "" {
		b = protowire.AppendTag(b, optionNodeNameField, protowire.BytesType)
		b = protowire.AppendString(b, o.NodeName)
	}
	if o.HasNUMA {
		b = protowire.AppendTag(b, optionNUMANodeField, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(o.NUMANodeID)))
	}
	for _, info := range o.ExtraInfo {
		b = protowire.AppendTag(b, optionExtraInfoField, protowire.BytesType)
		b = protowire.AppendString(b, info)
	}
	return b
}

// ParseOption decodes a DeviceOption message from its protobuf wire format.
// Unknown fields are skipped.
func ParseOption(data []byte) (Option, error) {
	var o Option
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Option{}, errors.Wrap(protowire.ParseError(n), "failed to parse DeviceOption tag")
		}
		data = data[n:]
		switch {
		case num == optionNodeNameField && typ == protowire.BytesType,
			num == optionExtraInfoField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return Option{}, errors.Wrapf(protowire.ParseError(n), "failed to parse DeviceOption field %d", num)
			}
			data = data[n:]
			if num == optionNodeNameField {
				o.NodeName = s
			} else {
				o.ExtraInfo = append(o.ExtraInfo, s)
			}

		case typ == protowire.VarintType && num >= optionDeviceTypeField && num <= optionNUMANodeField:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Option{}, errors.Wrapf(protowire.ParseError(n), "failed to parse DeviceOption field %d", num)
			}
			data = data[n:]
			switch num {
			case optionDeviceTypeField:
				o.Type = Type(int32(v))
			case optionDeviceIDField:
				o.ID, o.HasID = int(int32(v)), true
			case optionRandomSeedField:
				o.RandomSeed, o.HasRandomSeed = uint32(v), true
			case optionNUMANodeField:
				o.NUMANodeID, o.HasNUMA = int(int32(v)), true
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Option{}, errors.Wrapf(protowire.ParseError(n), "failed to skip DeviceOption field %d", num)
			}
			data = data[n:]
		}
	}
	return o, nil
}
