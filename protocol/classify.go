package protocol

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Classification is the outcome of inspecting a raw response.
type Classification uint8

const (
	Empty Classification = iota
	Ack
	Nack
	Busy
	Data
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case Empty:
		return "empty"
	case Ack:
		return "ack"
	case Nack:
		return "nack"
	case Busy:
		return "busy"
	case Data:
		return "data"
	default:
		return fmt.Sprintf("classification(%d)", uint8(c))
	}
}

// ResponseProfile holds the control byte values a device revision answers with.
type ResponseProfile struct {
	Ack  byte
	Nack byte
	Busy byte
}

var (
	// DefaultResponseProfile matches current cart firmware wired per the
	// corrected pinout.
	DefaultResponseProfile = ResponseProfile{Ack: 0x04, Nack: 0x05, Busy: 0x06}

	// EarlyFirmwareResponseProfile matches units that acknowledge with 0x10.
	EarlyFirmwareResponseProfile = ResponseProfile{Ack: 0x10, Nack: 0x05, Busy: 0x06}
)

// Validate reports an error unless the three control bytes are distinct.
func (p ResponseProfile) Validate() error {
	if p.Ack == p.Nack || p.Ack == p.Busy || p.Nack == p.Busy {
		return fmt.Errorf("protocol: response profile bytes must be distinct: ack=0x%02X nack=0x%02X busy=0x%02X",
			p.Ack, p.Nack, p.Busy)
	}

	return nil
}

// Classify inspects the first byte of raw. It is total: every input maps to
// exactly one classification.
func Classify(raw []byte, p ResponseProfile) Classification {
	if len(raw) == 0 {
		return Empty
	}

	switch raw[0] {
	case p.Ack:
		return Ack
	case p.Nack:
		return Nack
	case p.Busy:
		return Busy
	default:
		return Data
	}
}

// ResponseFrame is one response as accumulated from the transport.
type ResponseFrame struct {
	Raw     []byte
	Class   Classification
	Elapsed time.Duration
}

// NewResponseFrame classifies raw and wraps it into a frame.
func NewResponseFrame(raw []byte, elapsed time.Duration, p ResponseProfile) *ResponseFrame {
	return &ResponseFrame{Raw: raw, Class: Classify(raw, p), Elapsed: elapsed}
}

// Len returns the number of raw bytes.
func (f *ResponseFrame) Len() int {
	return len(f.Raw)
}

// HasData reports whether the frame is a non-empty data payload.
func (f *ResponseFrame) HasData() bool {
	return f.Class == Data && len(f.Raw) > 0
}

// String returns the class and the hex dump of the raw bytes.
func (f *ResponseFrame) String() string {
	return fmt.Sprintf("%s[%s] in %v", f.Class, hex.EncodeToString(f.Raw), f.Elapsed)
}
