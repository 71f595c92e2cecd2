// Package timecode decodes hours:minutes:seconds:frames values from device
// responses whose binary layout is not documented.
//
// Decode tries a fixed list of candidate layouts and returns the first one
// that yields an in-range value:
//
//  1. Packed24: the first 3 bytes as a big-endian 24-bit integer, frames in
//     bits 0-5, seconds in bits 6-11, minutes in bits 12-17, hours in bits 18-22.
//  2. BCD: 4 bytes, two decimal digits each, for hours, minutes, seconds, frames.
//  3. Binary: 4 bytes holding hours, minutes, seconds, frames as plain integers.
//  4. Packed24Reversed: like Packed24 with the 3 bytes in reverse order.
//
// Responses that are all 0x00, all 0xFF, or start with 0x91 mean the device
// has no timecode to report and are rejected before any candidate is tried.
package timecode

import "fmt"

// Validation ceilings. Frames are checked against a 30 fps ceiling; the
// decoder is not frame-rate aware.
const (
	MaxHours   = 23
	MaxMinutes = 59
	MaxSeconds = 59
	MaxFrames  = 29
)

// noTimecodeLead is the leading byte of a "timecode not available" reply.
const noTimecodeLead byte = 0x91

// Timecode is a decoded hours:minutes:seconds:frames value.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

// Valid reports whether every field lies within its range.
func (tc Timecode) Valid() bool {
	return inRange(tc.Hours, MaxHours) &&
		inRange(tc.Minutes, MaxMinutes) &&
		inRange(tc.Seconds, MaxSeconds) &&
		inRange(tc.Frames, MaxFrames)
}

// String formats the value as HH:MM:SS:FF.
func (tc Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", tc.Hours, tc.Minutes, tc.Seconds, tc.Frames)
}

func inRange(v, hi int) bool {
	return v >= 0 && v <= hi
}

// Decode returns the first valid candidate decoding of raw.
func Decode(raw []byte) (Timecode, bool) {
	tc, _, ok := DecodeFormat(raw)
	return tc, ok
}

// DecodeFormat is Decode that also reports which layout matched.
func DecodeFormat(raw []byte) (Timecode, Format, bool) {
	if Unavailable(raw) {
		return Timecode{}, 0, false
	}

	for _, f := range Candidates {
		if tc, ok := f.Decode(raw); ok {
			return tc, f, true
		}
	}

	return Timecode{}, 0, false
}

// Unavailable reports whether raw is empty or one of the known
// "no timecode" patterns.
func Unavailable(raw []byte) bool {
	if len(raw) == 0 || raw[0] == noTimecodeLead {
		return true
	}

	return allBytes(raw, 0x00) || allBytes(raw, 0xFF)
}

func allBytes(raw []byte, v byte) bool {
	for _, b := range raw {
		if b != v {
			return false
		}
	}

	return true
}
