package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cedinu/flexicart-control/logger"
	"github.com/cedinu/flexicart-control/protocol"
)

// TCPScheme prefixes endpoints reached through a serial device server
// (an RS-422 to Ethernet converter in raw TCP mode), e.g. "tcp://10.0.0.5:4001".
const TCPScheme = "tcp://"

// DefaultDialTimeout bounds DialTCP when no timeout is given.
const DefaultDialTimeout = 3 * time.Second

// IsTCP reports whether endpoint names a TCP device server.
func IsTCP(endpoint protocol.EndpointID) bool {
	return strings.HasPrefix(string(endpoint), TCPScheme)
}

// DialTCP connects to a device server at address (host:port, with or without
// the tcp:// prefix) and wraps the connection in a Stream.
func DialTCP(ctx context.Context, address string, timeout time.Duration, l logger.Logger) (*Stream, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	if l == nil {
		l = logger.GetLogger()
	}
	address = strings.TrimPrefix(address, TCPScheme)

	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", address)
	if err != nil {
		l.Debug("transport: dial failed", "address", address, "error", err)
		return nil, fmt.Errorf("transport: dial %s: %w", address, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
	}

	l.Debug("transport: connected", "localAddr", conn.LocalAddr(), "remoteAddr", conn.RemoteAddr())

	return NewStream(conn, l.With("remoteAddr", address)), nil
}

// AutoOpener opens tcp:// endpoints with DialTCP and everything else as a
// serial port with cfg.
func AutoOpener(cfg SerialConfig, dialTimeout time.Duration, l logger.Logger) Opener {
	serialOpener := SerialOpener(cfg, l)

	return func(endpoint protocol.EndpointID) (Transport, error) {
		if IsTCP(endpoint) {
			return DialTCP(context.Background(), string(endpoint), dialTimeout, l)
		}

		return serialOpener(endpoint)
	}
}
