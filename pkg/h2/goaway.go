package h2

import "golang.org/x/net/http2"

// GoAwayState tracks this connection's GOAWAY bookkeeping in both
// directions, grounded on dgrr-http2's goaway.go (last-stream-id plus
// sent/received booleans) but extended with the debug string spec.md's
// error builder surfaces on server_closed_connection.
type GoAwayState struct {
	Sent           bool
	Received       bool
	SentLastID     uint32
	ReceivedLastID uint32
	Code           http2.ErrCode
	Debug          string
}

// AllowsNewStreams reports whether a new client-initiated stream may
// still be opened: false once either side has sent or received a GOAWAY.
func (g *GoAwayState) AllowsNewStreams() bool {
	return !g.Sent && !g.Received
}

// WasProcessed reports whether a peer-observed GOAWAY indicates the given
// client stream id was (or was not) accepted by the server, per RFC 7540
// §6.8: any id greater than the GOAWAY's Last-Stream-ID was never
// processed and is safe to retry elsewhere.
func (g *GoAwayState) WasProcessed(streamID uint32) bool {
	if !g.Received {
		return true
	}
	return streamID <= g.ReceivedLastID
}
