// Package transport provides the byte-duplex channel the command executor
// drives: a write operation and a stream of byte-arrival events.
//
// Stream adapts any io.ReadWriteCloser (a serial port, a net.Conn in tests)
// by running a receive goroutine that forwards every chunk it reads.
// OpenSerial opens an RS-422 port through go.bug.st/serial and wraps it.
package transport

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
)

// recvQueueSize bounds the number of undelivered chunks held by a Stream.
const recvQueueSize = 64

// readBufferSize is the size of a single read from the underlying port.
const readBufferSize = 256

var ErrClosed = errors.New("transport: closed")

// Transport is a byte-duplex channel to one endpoint.
//
// Recv delivers chunks in arrival order and is closed when the channel can
// no longer receive. Chunks carry no framing; the reader decides where a
// response ends.
type Transport interface {
	Write(p []byte) error
	Recv() <-chan []byte
	Close() error
}

// Opener opens the transport for an endpoint.
type Opener func(endpoint protocol.EndpointID) (Transport, error)

// Stream implements Transport over an io.ReadWriteCloser.
type Stream struct {
	rwc    io.ReadWriteCloser
	logger logger.Logger

	recv chan []byte
	done chan struct{}

	closeOnce sync.Once
	closeErr  error

	errMu sync.Mutex
	err   error
}

var _ Transport = (*Stream)(nil)

// NewStream wraps rwc and starts its receive goroutine.
func NewStream(rwc io.ReadWriteCloser, l logger.Logger) *Stream {
	if l == nil {
		l = logger.GetLogger()
	}

	s := &Stream{
		rwc:    rwc,
		logger: l,
		recv:   make(chan []byte, recvQueueSize),
		done:   make(chan struct{}),
	}
	go s.receiveLoop()

	return s
}

// Write writes all of p, looping over short writes.
func (s *Stream) Write(p []byte) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	for written := 0; written < len(p); {
		n, err := s.rwc.Write(p[written:])
		written += n

		if err != nil {
			return fmt.Errorf("transport: write: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("transport: write: %w", io.ErrShortWrite)
		}
	}

	return nil
}

// Recv returns the chunk channel.
func (s *Stream) Recv() <-chan []byte {
	return s.recv
}

// Close stops the receive goroutine and closes the underlying port.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.rwc.Close()
	})

	return s.closeErr
}

// Err returns the error that ended the receive goroutine, if any.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	return s.err
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	s.err = err
}

// receiveLoop forwards chunks until the port fails or the stream is closed.
// A read returning no bytes and no error is a port read timeout and is
// simply retried.
func (s *Stream) receiveLoop() {
	defer close(s.recv)

	buf := make([]byte, readBufferSize)
	for {
		n, err := s.rwc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			select {
			case s.recv <- chunk:
			case <-s.done:
				return
			}
		}

		if err != nil {
			select {
			case <-s.done:
				s.setErr(ErrClosed)
			default:
				s.logger.Debug("transport: receive loop ended", "error", err)
				s.setErr(err)
			}

			return
		}
	}
}
