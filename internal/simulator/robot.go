// Package simulator emulates a video-cart robot on the device side of a
// transport, for examples and end-to-end tests of the engine.
//
// The robot answers cart packets addressed to its unit: sense queries and
// the probe return data, Macro commands are acknowledged and keep the robot
// busy for a configurable number of status polls, Control commands are
// acknowledged, and malformed or unknown packets are rejected with NACK.
// Packets for other units are ignored, as on a multi-drop line.
package simulator

import (
	"errors"
	"io"
	"sync"

	"github.com/cedinu/flexicart-control/cart"
	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
)

// DefaultBins is the number of bins of a simulated carousel.
const DefaultBins = 36

// status byte flags
const (
	statusReady byte = 0x80
	statusBusy  byte = 0x40
	statusTally byte = 0x01
)

// Robot is a simulated cart robot. Configure the exported fields before
// calling Serve.
type Robot struct {
	Unit     byte
	Profile  protocol.ResponseProfile
	Checksum cart.ChecksumAlgorithm
	// BusyPolls is the number of status polls answered with BUSY after a
	// Macro command was accepted.
	BusyPolls int
	// Bins is the highest bin number accepted by load and unload.
	Bins   int
	Logger logger.Logger

	mu       sync.Mutex
	busyLeft int
	position byte
	tally    bool
	received int
}

// NewRobot returns a robot at unit answering with the default response
// profile and the two's-complement checksum.
func NewRobot(unit byte) *Robot {
	return &Robot{
		Unit:     unit,
		Profile:  protocol.DefaultResponseProfile,
		Checksum: cart.ChecksumSum,
		Bins:     DefaultBins,
		Logger:   logger.GetLogger(),
	}
}

// Received returns the number of packets addressed to this robot so far.
func (r *Robot) Received() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.received
}

// Serve answers packets from rw as the only robot on the line; see Bus.Serve.
func (r *Robot) Serve(rw io.ReadWriter) error {
	return Bus{r}.Serve(rw)
}

// Handle returns the answer to one packet, nil when the robot stays silent.
func (r *Robot) Handle(b []byte) []byte {
	pkt, err := cart.ParsePacket(b, r.Checksum)
	if err != nil {
		if errors.Is(err, cart.ErrChecksumMismatch) && len(b) > 3 && b[3] == r.Unit {
			r.Logger.Debug("simulator: bad checksum", "packet", pkt.String(), "error", err)
			return []byte{r.Profile.Nack}
		}

		return nil
	}
	if pkt.Unit() != r.Unit {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.received++

	spec, ok := lookup(pkt)
	if !ok {
		r.Logger.Debug("simulator: unknown command", "packet", pkt.String())
		return []byte{r.Profile.Nack}
	}

	switch spec.Category {
	case protocol.Immediate:
		return r.sense(spec)
	case protocol.Macro:
		return r.macro(spec, pkt.Data())
	default:
		r.tally = spec.Name == cart.CmdTallyOn
		return []byte{r.Profile.Ack}
	}
}

func (r *Robot) sense(spec protocol.CommandSpec) []byte {
	switch spec.Name {
	case cart.CmdStatus:
		if r.busyLeft > 0 {
			r.busyLeft--
			return []byte{r.Profile.Busy}
		}

		flags := statusReady
		if r.tally {
			flags |= statusTally
		}

		return []byte{flags, r.position}
	case cart.CmdPosition:
		return []byte{statusReady, r.position}
	case cart.CmdDummy:
		return []byte{statusReady, r.Unit}
	default:
		flags := statusReady
		if r.busyLeft > 0 {
			flags |= statusBusy
		}

		return []byte{flags, spec.Control, 0x00}
	}
}

func (r *Robot) macro(spec protocol.CommandSpec, data byte) []byte {
	switch spec.Name {
	case cart.CmdLoad, cart.CmdUnload:
		if data == 0 || int(data) > r.Bins {
			r.Logger.Debug("simulator: bin out of range", "command", spec.Name, "bin", data)
			return []byte{r.Profile.Nack}
		}
		r.position = data
	case cart.CmdElevatorHome, cart.CmdInitialize:
		r.position = 0
	}

	r.busyLeft = r.BusyPolls

	return []byte{r.Profile.Ack}
}

// Bus is a multi-drop line shared by several robots. Every packet is offered
// to each robot in turn and the first answer is sent back.
type Bus []*Robot

// Serve reads packets from rw until it fails and answers them.
// It returns nil when rw reaches EOF or is closed.
func (b Bus) Serve(rw io.ReadWriter) error {
	buf := make([]byte, cart.PacketSize)
	for {
		if _, err := io.ReadFull(rw, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}

			return err
		}

		for _, r := range b {
			resp := r.Handle(buf)
			if len(resp) == 0 {
				continue
			}
			if _, err := rw.Write(resp); err != nil {
				return err
			}

			break
		}
	}
}

// lookup maps a packet back to its catalog entry by command and control byte.
func lookup(pkt cart.Packet) (protocol.CommandSpec, bool) {
	for _, name := range cart.Catalog.Names() {
		s := cart.Catalog.MustLookup(name)
		if s.Command == pkt.Command() && s.Control == pkt.Control() {
			return s, true
		}
	}

	return protocol.CommandSpec{}, false
}
