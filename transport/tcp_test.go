package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cedinu/flexicart-control/protocol"
)

// echoServer accepts one connection and echoes everything back.
func echoServer(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestDialTCP(t *testing.T) {
	addr := echoServer(t)

	s, err := DialTCP(context.Background(), TCPScheme+addr, time.Second, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write([]byte{0x04}))
	select {
	case chunk := <-s.Recv():
		assert.Equal(t, []byte{0x04}, chunk)
	case <-time.After(time.Second):
		t.Fatal("no echo received")
	}
}

func TestDialTCP_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = DialTCP(context.Background(), addr, 200*time.Millisecond, nil)
	assert.Error(t, err)
}

func TestAutoOpener(t *testing.T) {
	addr := echoServer(t)
	open := AutoOpener(DefaultSerialConfig, time.Second, nil)

	tr, err := open(protocol.EndpointID(TCPScheme + addr))
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	_, err = open("/dev/flexicart-does-not-exist")
	assert.Error(t, err)
}

func TestIsTCP(t *testing.T) {
	assert.True(t, IsTCP("tcp://10.0.0.5:4001"))
	assert.False(t, IsTCP("/dev/ttyUSB0"))
	assert.False(t, IsTCP("COM3"))
}
