package h2

import "time"

// Transport is the abstract I/O handle a Connection is driven through.
// Connection never dials, listens, accepts, or owns a socket, goroutine,
// or timer (SPEC_FULL.md §1): every byte it writes goes through Send on
// whatever Transport the caller passed to Connect, and in passive mode
// (see Mode) inbound bytes are pulled through Recv — never both at once
// on the same connection.
//
// Grounded on the teacher's pkg/net/socket.go send/recv/close trio,
// generalized from a concrete *Socket to an interface so pkg/h2 never
// imports net directly; pkg/h2net provides the reference implementation.
type Transport interface {
	// Send writes b in full or returns a *TransportError. Implementations
	// may be called synchronously from inside a façade operation and
	// must not block indefinitely.
	Send(b []byte) error

	// Close closes the underlying transport. Idempotent.
	Close() error

	// Recv waits up to timeout for at least one byte and returns what
	// arrived, or a *TransportError (including a timeout reason, which
	// is not fatal — the caller is expected to call Recv again). Only
	// ever called by Connection.Recv in ModePassive.
	Recv(timeout time.Duration) ([]byte, error)
}

// TransportMessage is what an owner in ModeActive hands to
// Connection.Stream after observing activity on its own transport, mirroring
// an actor mailbox message in spec.md §4.7's "stream(conn, msg)" operation.
type TransportMessage struct {
	Data   []byte // nil unless Kind == TransportData
	Err    error  // non-nil only for TransportFailed; a *TransportError
	Kind   TransportMessageKind
}

type TransportMessageKind int

const (
	TransportData TransportMessageKind = iota
	TransportClosed
	TransportFailed
)
