package timecode

import "fmt"

// Format identifies one candidate byte layout.
type Format uint8

const (
	Packed24 Format = iota
	BCD
	Binary
	Packed24Reversed
)

// Candidates lists the layouts in the order Decode tries them.
var Candidates = []Format{Packed24, BCD, Binary, Packed24Reversed}

func (f Format) String() string {
	switch f {
	case Packed24:
		return "packed24"
	case BCD:
		return "bcd"
	case Binary:
		return "binary"
	case Packed24Reversed:
		return "packed24-reversed"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// MinLen returns the number of leading bytes the layout consumes.
func (f Format) MinLen() int {
	switch f {
	case Packed24, Packed24Reversed:
		return 3
	default:
		return 4
	}
}

// Decode interprets raw under this layout alone. Inputs shorter than MinLen
// and values outside the timecode ranges are rejected.
func (f Format) Decode(raw []byte) (Timecode, bool) {
	if len(raw) < f.MinLen() {
		return Timecode{}, false
	}

	var (
		tc Timecode
		ok = true
	)

	switch f {
	case Packed24:
		tc = unpack24(uint32(raw[0])<<16 | uint32(raw[1])<<8 | uint32(raw[2]))
	case Packed24Reversed:
		tc = unpack24(uint32(raw[2])<<16 | uint32(raw[1])<<8 | uint32(raw[0]))
	case BCD:
		tc, ok = decodeBCD(raw[:4])
	case Binary:
		tc = Timecode{Hours: int(raw[0]), Minutes: int(raw[1]), Seconds: int(raw[2]), Frames: int(raw[3])}
	default:
		return Timecode{}, false
	}

	if !ok || !tc.Valid() {
		return Timecode{}, false
	}

	return tc, true
}

// unpack24 splits a 24-bit value: frames bits 0-5, seconds 6-11,
// minutes 12-17, hours 18-22.
func unpack24(v uint32) Timecode {
	return Timecode{
		Frames:  int(v & 0x3F),
		Seconds: int(v >> 6 & 0x3F),
		Minutes: int(v >> 12 & 0x3F),
		Hours:   int(v >> 18 & 0x1F),
	}
}

func decodeBCD(b []byte) (Timecode, bool) {
	var vals [4]int
	for i, v := range b {
		hi, lo := int(v>>4), int(v&0x0F)
		if hi > 9 || lo > 9 {
			return Timecode{}, false
		}
		vals[i] = hi*10 + lo
	}

	return Timecode{Hours: vals[0], Minutes: vals[1], Seconds: vals[2], Frames: vals[3]}, true
}
