package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
)

// SerialConfig holds the line settings of a serial endpoint.
type SerialConfig struct {
	BaudRate int
	DataBits int
	Parity   string // none, odd, even, mark, space
	StopBits int    // 1 or 2
	// ReadTimeout bounds each blocking read so the receive goroutine can
	// notice Close.
	ReadTimeout time.Duration
}

// DefaultSerialConfig is the RS-422 setting used by both protocols:
// 38400 baud, 8 data bits, odd parity, 1 stop bit.
var DefaultSerialConfig = SerialConfig{
	BaudRate:    38400,
	DataBits:    8,
	Parity:      "odd",
	StopBits:    1,
	ReadTimeout: 50 * time.Millisecond,
}

func (c SerialConfig) mode() (*serial.Mode, error) {
	m := &serial.Mode{BaudRate: c.BaudRate, DataBits: c.DataBits}

	switch strings.ToLower(c.Parity) {
	case "", "none":
		m.Parity = serial.NoParity
	case "odd":
		m.Parity = serial.OddParity
	case "even":
		m.Parity = serial.EvenParity
	case "mark":
		m.Parity = serial.MarkParity
	case "space":
		m.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("transport: unknown parity %q", c.Parity)
	}

	switch c.StopBits {
	case 0, 1:
		m.StopBits = serial.OneStopBit
	case 2:
		m.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("transport: unsupported stop bits %d", c.StopBits)
	}

	return m, nil
}

// OpenSerial opens the named port and wraps it in a Stream.
func OpenSerial(name string, cfg SerialConfig, l logger.Logger) (*Stream, error) {
	mode, err := cfg.mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", name, describePortError(err))
	}

	if cfg.ReadTimeout > 0 {
		if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("transport: set read timeout on %s: %w", name, err)
		}
	}

	// Discard whatever the device sent before we were listening.
	_ = port.ResetInputBuffer()

	if l == nil {
		l = logger.GetLogger()
	}
	l.Debug("transport: serial port opened", "port", name, "baud", mode.BaudRate, "parity", cfg.Parity)

	return NewStream(port, l.With("port", name)), nil
}

// SerialOpener returns an Opener that treats endpoint IDs as port names.
func SerialOpener(cfg SerialConfig, l logger.Logger) Opener {
	return func(endpoint protocol.EndpointID) (Transport, error) {
		return OpenSerial(string(endpoint), cfg, l)
	}
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]protocol.EndpointID, error) {
	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list ports: %w", err)
	}

	out := make([]protocol.EndpointID, len(names))
	for i, n := range names {
		out[i] = protocol.EndpointID(n)
	}

	return out, nil
}

// describePortError adds a hint for the port errors operators hit most.
func describePortError(err error) error {
	var code serial.PortErrorCode

	var ptrErr *serial.PortError
	var valErr serial.PortError
	switch {
	case errors.As(err, &ptrErr):
		code = ptrErr.Code()
	case errors.As(err, &valErr):
		code = valErr.Code()
	default:
		return err
	}

	switch code {
	case serial.PortBusy:
		return fmt.Errorf("%w (port is locked by another process)", err)
	case serial.PortNotFound:
		return fmt.Errorf("%w (no such device)", err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w (check dialout group membership)", err)
	default:
		return err
	}
}
