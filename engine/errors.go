package engine

import (
	"errors"
	"fmt"

	"github.com/cedinu/flexicart-control/protocol"
)

// Sentinel errors. Every error returned by Execute is an *ExecError wrapping
// one of these, so callers test with errors.Is.
var (
	ErrTransportWriteFailed = errors.New("engine: transport write failed")
	ErrTransportClosed      = errors.New("engine: transport closed")
	ErrNoResponse           = errors.New("engine: no response")
	ErrCommandRejected      = errors.New("engine: command rejected")
	ErrUnexpectedResponse   = errors.New("engine: unexpected response")
	ErrOperationTimeout     = errors.New("engine: operation timeout")

	ErrUnknownCommand   = errors.New("engine: unknown command")
	ErrEndpointMismatch = errors.New("engine: address belongs to another endpoint")
	ErrEngineClosed     = errors.New("engine: closed")
	ErrNoOpener         = errors.New("engine: endpoint not attached and no opener configured")
	ErrNoEndpoint       = errors.New("engine: address has no endpoint")
)

// ExecError describes a failed command execution.
type ExecError struct {
	Command string
	Address protocol.DeviceAddress
	// Frame is the last response observed, nil when none arrived.
	Frame *protocol.ResponseFrame
	// Attempts is the number of status polls issued for a Macro command.
	Attempts int
	Err      error
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("%s: command %q at %s", e.Err, e.Command, e.Address)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d polls", e.Attempts)
	}
	if e.Frame != nil {
		msg += fmt.Sprintf(" (last response %s)", e.Frame)
	}

	return msg
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
