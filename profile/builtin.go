package profile

import "github.com/cedinu/flexicart-control/protocol"

// Built-in profile names.
const (
	BuiltinFlexicart      = "flexicart"
	BuiltinFlexicartEarly = "flexicart-early"
	BuiltinVTR            = "vtr"
)

func u8(b byte) *uint8 { return &b }

// Builtin returns a file with the stock profiles: current cart firmware,
// early cart firmware acknowledging with 0x10, and a 9-pin VTR.
func Builtin() *File {
	early := protocol.EarlyFirmwareResponseProfile

	f := &File{
		Default: BuiltinFlexicart,
		Profiles: map[string]*Profile{
			BuiltinFlexicart: {
				Protocol: ProtocolCart,
				Checksum: "sum",
			},
			BuiltinFlexicartEarly: {
				Protocol: ProtocolCart,
				Checksum: "sum",
				Ack:      u8(early.Ack),
				Nack:     u8(early.Nack),
				Busy:     u8(early.Busy),
			},
			BuiltinVTR: {
				Protocol: ProtocolNinePin,
			},
		},
	}
	for name, p := range f.Profiles {
		p.Name = name
	}

	return f
}
