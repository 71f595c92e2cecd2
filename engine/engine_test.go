package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cedinu/flexicart-control/cart"
	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
	"github.com/cedinu/flexicart-control/transport"
)

var errNoSuchPort = errors.New("no such port")

// testOpener serves transports from a fixed set and counts opens.
type testOpener struct {
	mu     sync.Mutex
	open   map[protocol.EndpointID]func() transport.Transport
	counts map[protocol.EndpointID]int
}

func newTestOpener() *testOpener {
	return &testOpener{
		open:   make(map[protocol.EndpointID]func() transport.Transport),
		counts: make(map[protocol.EndpointID]int),
	}
}

func (o *testOpener) add(endpoint protocol.EndpointID, f func() transport.Transport) {
	o.open[endpoint] = f
}

func (o *testOpener) Open(endpoint protocol.EndpointID) (transport.Transport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, ok := o.open[endpoint]
	if !ok {
		return nil, errNoSuchPort
	}
	o.counts[endpoint]++

	return f(), nil
}

func (o *testOpener) Count(endpoint protocol.EndpointID) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.counts[endpoint]
}

func TestEngine_ExecuteCommandOpensLazily(t *testing.T) {
	dev, tr := newFakeDevice(t, cart.PacketSize, reply(0x80, 0x10))
	opener := newTestOpener()
	opener.add(testEndpoint, func() transport.Transport { return tr })

	eng := New(newTestConfig(t), opener.Open)
	defer eng.Close()

	for range 2 {
		frame, err := eng.ExecuteCommand(context.Background(), cart.CmdStatus, unit1, 0)
		require.NoError(t, err)
		assert.Equal(t, protocol.Data, frame.Class)
	}

	assert.Equal(t, 1, opener.Count(testEndpoint))
	assert.Len(t, dev.Packets(), 2)
	assert.Equal(t, []protocol.EndpointID{testEndpoint}, eng.Endpoints())
}

func TestEngine_ExecuteCommandErrors(t *testing.T) {
	eng := New(newTestConfig(t), newTestOpener().Open)
	defer eng.Close()

	_, err := eng.ExecuteCommand(context.Background(), "teleport", unit1, 0)
	require.ErrorIs(t, err, ErrUnknownCommand)

	_, err = eng.ExecuteCommand(context.Background(), cart.CmdStatus, unit1, 0)
	require.ErrorIs(t, err, errNoSuchPort)

	noOpener := New(newTestConfig(t), nil)
	_, err = noOpener.ExecuteCommand(context.Background(), cart.CmdStatus, unit1, 0)
	assert.ErrorIs(t, err, ErrNoOpener)
}

func TestEngine_WriteFailureDetachesEndpoint(t *testing.T) {
	opener := newTestOpener()
	opener.add(testEndpoint, func() transport.Transport {
		return newScriptedTransport(func(int, []byte, chan<- []byte) error { return errWriteBroken })
	})

	eng := New(newTestConfig(t), opener.Open)
	defer eng.Close()

	for range 2 {
		_, err := eng.ExecuteCommand(context.Background(), cart.CmdStatus, unit1, 0)
		require.ErrorIs(t, err, ErrTransportWriteFailed)
	}
	assert.Equal(t, 2, opener.Count(testEndpoint), "failed transport is reopened")
}

func TestEngine_EmptyEndpointIsRejected(t *testing.T) {
	opener := newTestOpener()
	eng := New(newTestConfig(t), opener.Open)
	defer eng.Close()

	_, err := eng.ExecuteCommand(context.Background(), cart.CmdStatus, protocol.DeviceAddress{Unit: 0x01}, 0)
	require.ErrorIs(t, err, ErrNoEndpoint)

	_, err = eng.Attach("", newScriptedTransport(func(int, []byte, chan<- []byte) error { return nil }))
	require.ErrorIs(t, err, ErrNoEndpoint)

	found, err := eng.ScanDevices(context.Background(), []protocol.EndpointID{""}, []byte{0x01})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Zero(t, opener.Count(""))
}

func TestEngine_ExecutorAfterConcurrentClose(t *testing.T) {
	opener := newTestOpener()
	opener.add(testEndpoint, func() transport.Transport {
		return newScriptedTransport(func(int, []byte, chan<- []byte) error { return nil })
	})
	eng := New(newTestConfig(t), opener.Open)

	// hold the open lock so the lookup below waits on it while the engine
	// is marked closed
	eng.openMu.Lock()
	errc := make(chan error, 1)
	go func() {
		_, err := eng.Executor(testEndpoint)
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	eng.closed.Store(true)
	eng.openMu.Unlock()

	require.ErrorIs(t, <-errc, ErrEngineClosed)
	assert.Zero(t, opener.Count(testEndpoint))
	assert.Empty(t, eng.Endpoints())
}

func TestEngine_AttachAndClose(t *testing.T) {
	_, tr := newFakeDevice(t, cart.PacketSize, reply(0x04))
	eng := New(newTestConfig(t), nil)

	_, err := eng.Attach(testEndpoint, tr)
	require.NoError(t, err)
	_, err = eng.Attach(testEndpoint, tr)
	require.Error(t, err)

	frame, err := eng.ExecuteCommand(context.Background(), cart.CmdTallyOff, unit1, 0)
	require.NoError(t, err)
	assert.Equal(t, protocol.Ack, frame.Class)

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())
	assert.ErrorIs(t, tr.Write([]byte{0x00}), transport.ErrClosed)

	_, err = eng.ExecuteCommand(context.Background(), cart.CmdStatus, unit1, 0)
	require.ErrorIs(t, err, ErrEngineClosed)
	_, err = eng.Attach(testEndpoint, tr)
	assert.ErrorIs(t, err, ErrEngineClosed)
}

func TestEngine_Detach(t *testing.T) {
	_, tr := newFakeDevice(t, cart.PacketSize, reply(0x04))
	eng := New(newTestConfig(t), nil)
	defer eng.Close()

	_, err := eng.Attach(testEndpoint, tr)
	require.NoError(t, err)
	require.NoError(t, eng.Detach(testEndpoint))
	require.NoError(t, eng.Detach(testEndpoint))
	assert.Empty(t, eng.Endpoints())
}

func TestEngine_ScanDevices(t *testing.T) {
	const (
		portA protocol.EndpointID = "/dev/ttyA"
		portB protocol.EndpointID = "/dev/ttyB"
		portC protocol.EndpointID = "/dev/ttyMISSING"
	)

	// A answers units 1 and 3, B acknowledges 1 and 2 and rejects 3.
	devA, trA := newFakeDevice(t, cart.PacketSize, func(_ int, pkt []byte, w io.Writer) {
		if pkt[3] != 0x02 {
			_, _ = w.Write([]byte{0x80, pkt[3]})
		}
	})
	devB, trB := newFakeDevice(t, cart.PacketSize, func(_ int, pkt []byte, w io.Writer) {
		if pkt[3] == 0x03 {
			_, _ = w.Write([]byte{0x05})
			return
		}
		_, _ = w.Write([]byte{0x04})
	})

	opener := newTestOpener()
	opener.add(portA, func() transport.Transport { return trA })
	opener.add(portB, func() transport.Transport { return trB })

	eng := New(newTestConfig(t), opener.Open)
	defer eng.Close()

	found, err := eng.ScanDevices(context.Background(),
		[]protocol.EndpointID{portA, portC, portB}, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	assert.Equal(t, []protocol.DeviceAddress{
		{Endpoint: portA, Unit: 0x01},
		{Endpoint: portA, Unit: 0x03},
		{Endpoint: portB, Unit: 0x01},
		{Endpoint: portB, Unit: 0x02},
	}, found)

	// one probe per pair on each endpoint that opened
	assert.Len(t, devA.Packets(), 3)
	assert.Len(t, devB.Packets(), 3)
	assert.Equal(t, 3, devA.count(0x50, 0x00))
}

func TestEngine_ScanReopensFailedTransport(t *testing.T) {
	dev, healthy := newFakeDevice(t, cart.PacketSize, reply(0x80, 0x01))
	broken := newScriptedTransport(func(int, []byte, chan<- []byte) error { return errWriteBroken })

	opens := 0
	opener := newTestOpener()
	opener.add(testEndpoint, func() transport.Transport {
		opens++
		if opens == 1 {
			return broken
		}

		return healthy
	})

	eng := New(newTestConfig(t), opener.Open)
	defer eng.Close()

	units := []byte{0x01, 0x02, 0x03}

	found, err := eng.ScanDevices(context.Background(), []protocol.EndpointID{testEndpoint}, units)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, 1, broken.Writes(), "remaining units skipped after the write failure")
	assert.Empty(t, eng.Endpoints())

	found, err = eng.ScanDevices(context.Background(), []protocol.EndpointID{testEndpoint}, units)
	require.NoError(t, err)
	assert.Equal(t, 2, opener.Count(testEndpoint))
	assert.Equal(t, []protocol.DeviceAddress{
		{Endpoint: testEndpoint, Unit: 0x01},
		{Endpoint: testEndpoint, Unit: 0x02},
		{Endpoint: testEndpoint, Unit: 0x03},
	}, found)
	assert.Len(t, dev.Packets(), 3)
}

func TestEngine_ScanCanceled(t *testing.T) {
	_, tr := newFakeDevice(t, cart.PacketSize, reply(0x80))
	eng := New(newTestConfig(t), nil)
	defer eng.Close()
	_, err := eng.Attach(testEndpoint, tr)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	found, err := eng.ScanDevices(ctx, []protocol.EndpointID{testEndpoint}, []byte{0x01, 0x02})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, found)
}

func TestEngine_DecodeTimecode(t *testing.T) {
	eng := New(newTestConfig(t), nil)

	tc, ok := eng.DecodeTimecode([]byte{0x12, 0x34, 0x56, 0x07})
	require.True(t, ok)
	assert.Equal(t, "12:34:56:07", tc.String())

	_, ok = eng.DecodeTimecode([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	assert.False(t, ok)
}

func TestEngine_RejectionIsLogged(t *testing.T) {
	l := logger.NewMockLogger()
	l.On("Debug", mock.Anything, mock.Anything).Maybe()
	l.On("Warn", "engine: command rejected", mock.Anything).Once()

	_, tr := newFakeDevice(t, cart.PacketSize, reply(0x05))
	eng := New(newTestConfig(t, WithLogger(l)), nil)
	defer eng.Close()
	_, err := eng.Attach(testEndpoint, tr)
	require.NoError(t, err)

	_, err = eng.ExecuteCommand(context.Background(), cart.CmdEject, unit1, 0)
	require.ErrorIs(t, err, ErrCommandRejected)
	l.AssertExpectations(t)
}
