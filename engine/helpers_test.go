package engine

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cedinu/flexicart-control/protocol"
	"github.com/cedinu/flexicart-control/transport"
)

const testEndpoint protocol.EndpointID = "/dev/ttyTEST0"

// newTestConfig creates a Config with short timeouts suitable for tests.
func newTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	defaults := []Option{
		WithInactivityGap(5 * time.Millisecond),
		WithResponseTimeout(100 * time.Millisecond),
		WithPollInterval(time.Millisecond),
		WithMaxPollAttempts(5),
		WithScanTimeout(30 * time.Millisecond),
		WithProbeDelay(0),
	}

	cfg, err := NewConfig(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestConfig: %v", err)
	}

	return cfg
}

// responder is called by a fakeDevice for every packet it reads. n is the
// 1-based packet index; whatever is written to w reaches the executor.
type responder func(n int, pkt []byte, w io.Writer)

// reply answers every packet with b.
func reply(b ...byte) responder {
	return func(_ int, _ []byte, w io.Writer) {
		_, _ = w.Write(b)
	}
}

// silent never answers.
func silent() responder {
	return func(int, []byte, io.Writer) {}
}

// fakeDevice plays the device side of a net.Pipe, reading fixed-size packets.
type fakeDevice struct {
	conn    net.Conn
	size    int
	respond responder

	mu      sync.Mutex
	packets [][]byte
}

// newFakeDevice starts a device reading packets of size bytes and returns it
// with the executor-side transport.
func newFakeDevice(t *testing.T, size int, respond responder) (*fakeDevice, *transport.Stream) {
	t.Helper()

	local, remote := net.Pipe()
	tr := transport.NewStream(local, nil)
	d := &fakeDevice{conn: remote, size: size, respond: respond}
	t.Cleanup(func() {
		_ = tr.Close()
		_ = remote.Close()
	})

	go d.serve()

	return d, tr
}

func (d *fakeDevice) serve() {
	for {
		pkt := make([]byte, d.size)
		if _, err := io.ReadFull(d.conn, pkt); err != nil {
			return
		}

		d.mu.Lock()
		d.packets = append(d.packets, pkt)
		n := len(d.packets)
		d.mu.Unlock()

		d.respond(n, pkt, d.conn)
	}
}

// Packets returns a copy of the packets received so far.
func (d *fakeDevice) Packets() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]byte, len(d.packets))
	copy(out, d.packets)

	return out
}

// count returns the number of received packets carrying cmd/ctrl.
func (d *fakeDevice) count(cmd, ctrl byte) int {
	n := 0
	for _, p := range d.Packets() {
		if p[5] == cmd && p[6] == ctrl {
			n++
		}
	}

	return n
}

// isStatusQuery reports whether a cart packet is the status request.
func isStatusQuery(pkt []byte) bool {
	return pkt[5] == 0x61 && pkt[6] == 0x10
}

var errWriteBroken = errors.New("write broken")

// scriptedTransport is an in-memory Transport. Write consults onWrite,
// which may push response chunks into recv or fail.
type scriptedTransport struct {
	recv    chan []byte
	onWrite func(n int, p []byte, recv chan<- []byte) error

	mu     sync.Mutex
	writes int
	closed bool
}

func newScriptedTransport(onWrite func(n int, p []byte, recv chan<- []byte) error) *scriptedTransport {
	return &scriptedTransport{recv: make(chan []byte, 16), onWrite: onWrite}
}

func (s *scriptedTransport) Write(p []byte) error {
	s.mu.Lock()
	s.writes++
	n := s.writes
	s.mu.Unlock()

	return s.onWrite(n, p, s.recv)
}

func (s *scriptedTransport) Recv() <-chan []byte { return s.recv }

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.recv)
	}

	return nil
}

func (s *scriptedTransport) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writes
}
