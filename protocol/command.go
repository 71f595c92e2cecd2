package protocol

import "fmt"

// Category tells the executor how a command completes.
type Category uint8

const (
	// Immediate commands return the requested data directly in their response.
	Immediate Category = iota
	// Macro commands are only acknowledged; completion is observed by polling
	// a status query afterwards.
	Macro
	// Control commands take effect at once and confirm synchronously.
	Control
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Immediate:
		return "immediate"
	case Macro:
		return "macro"
	case Control:
		return "control"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// CommandSpec describes one logical operation at the wire level.
//
// Every field is a single byte, so an out-of-range code cannot be expressed
// and encoding never fails.
type CommandSpec struct {
	Name      string
	Command   byte
	Control   byte
	Data      byte
	BlockType byte
	Category  Category
}

// WithData returns a copy of the spec carrying the data byte d, e.g. a target
// bin for a load command.
func (s CommandSpec) WithData(d byte) CommandSpec {
	s.Data = d
	return s
}

// String returns a compact representation such as "status(61/10/80 immediate)".
func (s CommandSpec) String() string {
	return fmt.Sprintf("%s(%02X/%02X/%02X %s)", s.Name, s.Command, s.Control, s.Data, s.Category)
}

// EndpointID identifies a transport endpoint, typically a serial port name.
type EndpointID string

// DeviceAddress identifies one addressable device on one transport endpoint.
type DeviceAddress struct {
	Endpoint EndpointID
	Unit     byte
}

// String returns "endpoint#unit", e.g. "/dev/ttyUSB0#01".
func (a DeviceAddress) String() string {
	return fmt.Sprintf("%s#%02X", a.Endpoint, a.Unit)
}

// Encoder turns a command into the bytes written on the wire.
type Encoder interface {
	Encode(spec CommandSpec, addr DeviceAddress) []byte
}
