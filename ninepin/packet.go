// Package ninepin implements the short command packets of the RS-422 VTR
// control protocol.
//
// A command is CMD1, CMD2 and an optional data byte followed by one checksum
// byte, the XOR of everything before it. The low nibble of CMD1 is the number
// of data bytes that follow CMD2.
package ninepin

import (
	"errors"
	"fmt"

	"github.com/cedinu/flexicart-control/protocol"
)

const (
	MinCommandLen = 2
	MaxCommandLen = 3
)

var (
	ErrInvalidLength    = errors.New("ninepin: command must be 2 or 3 bytes")
	ErrChecksumMismatch = errors.New("ninepin: checksum mismatch")
	ErrShortResponse    = errors.New("ninepin: response too short")
)

// Checksum returns the XOR of b.
func Checksum(b []byte) byte {
	var cs byte
	for _, v := range b {
		cs ^= v
	}

	return cs
}

// Encode appends the checksum to a 2 or 3 byte command.
func Encode(cmd []byte) ([]byte, error) {
	if len(cmd) < MinCommandLen || len(cmd) > MaxCommandLen {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, len(cmd))
	}

	out := make([]byte, len(cmd)+1)
	copy(out, cmd)
	out[len(cmd)] = Checksum(cmd)

	return out, nil
}

// Verify reports whether the last byte of packet is the XOR of the rest.
// Packets shorter than one command plus checksum are never valid.
func Verify(packet []byte) bool {
	if len(packet) < MinCommandLen+1 {
		return false
	}
	n := len(packet) - 1

	return Checksum(packet[:n]) == packet[n]
}

// DataCount returns the data byte count carried in the low nibble of cmd1.
func DataCount(cmd1 byte) int {
	return int(cmd1 & 0x0F)
}

// Payload verifies a checksummed response and returns the bytes between
// CMD2 and the checksum.
func Payload(resp []byte) ([]byte, error) {
	if len(resp) < MinCommandLen+1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortResponse, len(resp))
	}
	if !Verify(resp) {
		return nil, fmt.Errorf("%w: % X", ErrChecksumMismatch, resp)
	}

	return resp[MinCommandLen : len(resp)-1], nil
}

// Codec encodes catalog commands as 9-pin packets. The device address is not
// used: 9-pin links are point to point.
type Codec struct{}

var _ protocol.Encoder = Codec{}

// Encode implements protocol.Encoder. The data byte is sent only when CMD1
// announces data.
func (Codec) Encode(spec protocol.CommandSpec, _ protocol.DeviceAddress) []byte {
	cmd := []byte{spec.Command, spec.Control}
	if DataCount(spec.Command) > 0 {
		cmd = append(cmd, spec.Data)
	}

	out, _ := Encode(cmd) // always 2 or 3 bytes

	return out
}
