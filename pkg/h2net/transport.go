package h2net

import (
	"errors"
	"net"
	"time"

	"github.com/nilbound/h2core/pkg/h2"
)

// ConnTransport adapts a net.Conn into h2.Transport, the reference
// implementation the example command (cmd/h2get) uses to drive a real
// socket; pkg/h2script uses its own in-memory transport instead. Grounded on this package's own TCPConnect/UnixConnect
// (dial side) plus the read/write-deadline helpers already here
// (SetReadTimeout/SetWriteTimeout) — h2.Connection never touches net
// directly, only this thin adapter does.
type ConnTransport struct {
	conn net.Conn
}

// NewConnTransport wraps an already-established net.Conn (from
// TCPConnect or UnixConnect) as a Transport.
func NewConnTransport(conn net.Conn) *ConnTransport {
	return &ConnTransport{conn: conn}
}

// DialTransport dials addr (TCP host:port, or a Unix/abstract socket path
// per ParseAddress/IsUnixSocket) and wraps the resulting connection.
func DialTransport(addr string, timeout time.Duration) (*ConnTransport, error) {
	conn, err := TCPConnect(addr, timeout)
	if err != nil {
		return nil, h2.NewTransportError("connect_failed", err)
	}
	return NewConnTransport(conn), nil
}

// Send implements h2.Transport.
func (t *ConnTransport) Send(b []byte) error {
	if err := SetWriteTimeout(t.conn, 0); err != nil {
		return h2.NewTransportError("set_write_timeout", err)
	}
	_, err := t.conn.Write(b)
	if err != nil {
		return h2.NewTransportError(classify(err), err)
	}
	return nil
}

// Close implements h2.Transport.
func (t *ConnTransport) Close() error {
	if err := t.conn.Close(); err != nil {
		return h2.NewTransportError("close_failed", err)
	}
	return nil
}

// Recv implements h2.Transport for ModePassive use: it sets a read
// deadline derived from timeout and returns whatever bytes arrive before
// it, translating net's deadline-exceeded error into the "timeout"
// reason Connection.Recv treats as non-fatal.
func (t *ConnTransport) Recv(timeout time.Duration) ([]byte, error) {
	if err := SetReadTimeout(t.conn, timeout); err != nil {
		return nil, h2.NewTransportError("set_read_timeout", err)
	}
	buf := make([]byte, 65536)
	n, err := t.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, h2.NewTransportError("timeout", err)
		}
		return nil, h2.NewTransportError(classify(err), err)
	}
	return buf[:n], nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, net.ErrClosed):
		return "closed"
	default:
		return "io_error"
	}
}
