package cart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cedinu/flexicart-control/protocol"
)

// PacketSize is the length of every cart command packet.
const PacketSize = 9

// Fixed header bytes.
const (
	STX          byte = 0x02
	ByteCount    byte = 0x06
	UnitAddress1 byte = 0x01
)

// Byte offsets within a packet.
const (
	offSTX = iota
	offCount
	offUA1
	offUA2
	offBlockType
	offCommand
	offControl
	offData
	offChecksum
)

var (
	ErrChecksumMismatch = errors.New("cart: checksum mismatch")
	ErrInvalidPacket    = errors.New("cart: invalid packet")
)

// ChecksumAlgorithm selects how the trailing checksum byte is computed.
type ChecksumAlgorithm uint8

const (
	// ChecksumSum is the two's complement of the byte sum.
	ChecksumSum ChecksumAlgorithm = iota
	// ChecksumXOR is the XOR of the covered bytes.
	ChecksumXOR
)

// ParseChecksumAlgorithm maps "sum" (or "twos-complement") and "xor" to an
// algorithm.
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sum", "twos-complement":
		return ChecksumSum, nil
	case "xor":
		return ChecksumXOR, nil
	default:
		return 0, fmt.Errorf("cart: unknown checksum algorithm %q", s)
	}
}

func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumSum:
		return "sum"
	case ChecksumXOR:
		return "xor"
	default:
		return fmt.Sprintf("checksum(%d)", uint8(a))
	}
}

// Compute returns the checksum of b.
func (a ChecksumAlgorithm) Compute(b []byte) byte {
	var cs byte
	if a == ChecksumXOR {
		for _, v := range b {
			cs ^= v
		}

		return cs
	}

	for _, v := range b {
		cs += v
	}

	return -cs
}

// Verify reports whether packet is a well-formed 9-byte frame whose last byte
// matches the checksum of bytes 1..7 under a.
func (a ChecksumAlgorithm) Verify(packet []byte) bool {
	if len(packet) != PacketSize || packet[offSTX] != STX {
		return false
	}

	return a.Compute(packet[offCount:offChecksum]) == packet[offChecksum]
}

// Packet is an encoded cart command frame.
type Packet [PacketSize]byte

// Encode fills the 9-byte layout for spec addressed to addr and appends the
// checksum computed with alg.
func Encode(spec protocol.CommandSpec, addr protocol.DeviceAddress, alg ChecksumAlgorithm) Packet {
	var p Packet
	p[offSTX] = STX
	p[offCount] = ByteCount
	p[offUA1] = UnitAddress1
	p[offUA2] = addr.Unit
	p[offBlockType] = spec.BlockType
	p[offCommand] = spec.Command
	p[offControl] = spec.Control
	p[offData] = spec.Data
	p[offChecksum] = alg.Compute(p[offCount:offChecksum])

	return p
}

// VerifyChecksum recomputes the checksum of a two's-complement packet.
// Use ChecksumAlgorithm.Verify for XOR deployments.
func VerifyChecksum(packet []byte) bool {
	return ChecksumSum.Verify(packet)
}

// ParsePacket decodes a frame presented as a cart command packet.
func ParsePacket(b []byte, alg ChecksumAlgorithm) (Packet, error) {
	var p Packet
	if len(b) != PacketSize {
		return p, fmt.Errorf("%w: length %d, want %d", ErrInvalidPacket, len(b), PacketSize)
	}
	if b[offSTX] != STX || b[offCount] != ByteCount {
		return p, fmt.Errorf("%w: header % X", ErrInvalidPacket, b[:offUA1])
	}

	copy(p[:], b)
	if calc := alg.Compute(p[offCount:offChecksum]); calc != p[offChecksum] {
		return p, fmt.Errorf("%w: wire=0x%02X, computed=0x%02X (%s)", ErrChecksumMismatch, p[offChecksum], calc, alg)
	}

	return p, nil
}

// Bytes returns the packet as a slice.
func (p Packet) Bytes() []byte {
	return p[:]
}

// Unit returns unit-address byte 2.
func (p Packet) Unit() byte { return p[offUA2] }

// BlockType returns the block-type byte.
func (p Packet) BlockType() byte { return p[offBlockType] }

// Command returns the command byte.
func (p Packet) Command() byte { return p[offCommand] }

// Control returns the control sub-code byte.
func (p Packet) Control() byte { return p[offControl] }

// Data returns the data byte.
func (p Packet) Data() byte { return p[offData] }

// Checksum returns the trailing checksum byte.
func (p Packet) Checksum() byte { return p[offChecksum] }

// String renders the packet as spaced hex, e.g. "02 06 01 01 00 61 10 80 07".
func (p Packet) String() string {
	return fmt.Sprintf("% X", p[:])
}

// Codec encodes cart packets with a fixed checksum algorithm.
type Codec struct {
	Algorithm ChecksumAlgorithm
}

var _ protocol.Encoder = Codec{}

// Encode implements protocol.Encoder.
func (c Codec) Encode(spec protocol.CommandSpec, addr protocol.DeviceAddress) []byte {
	p := Encode(spec, addr, c.Algorithm)
	return p.Bytes()
}
