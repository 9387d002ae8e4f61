package h2

// StreamState is a stream's position in the RFC 7540 §5.1 state machine,
// generalized to this core's single-threaded, re-entrant-free model: a
// transition never blocks and never spawns anything, it just flips State.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamReservedLocal
	StreamReservedRemote
	StreamOpen
	StreamHalfClosedLocal
	StreamHalfClosedRemote
	StreamClosed
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamReservedLocal:
		return "reserved_local"
	case StreamReservedRemote:
		return "reserved_remote"
	case StreamOpen:
		return "open"
	case StreamHalfClosedLocal:
		return "half_closed_local"
	case StreamHalfClosedRemote:
		return "half_closed_remote"
	case StreamClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is one HTTP/2 stream's state, keyed both by its wire ID and by
// the opaque RequestRef the caller used to open it. Unlike the teacher's
// Stream (pkg/http2/stream.go), this holds no mutex and no signal
// channel: all mutation happens inline inside Connection.handleFrame or a
// façade call, never from a second goroutine.
type Stream struct {
	ID    uint32
	Ref   RequestRef
	State StreamState

	IsPush   bool
	ParentID uint32 // for push streams, the stream that carried the PUSH_PROMISE

	SendWindow int32
	RecvWindow int32
	// RecvInitial is this side's receive window at stream creation, used
	// to size the "refill at half" threshold the same way FlowController
	// does for the connection window.
	RecvInitial   uint32
	RecvHighWater uint32

	// SawFinalHeaders distinguishes the first (status-bearing) HEADERS
	// from a later trailers-only HEADERS.
	SawFinalHeaders bool
	StatusCode      int
	Got1xx          bool

	// Streaming marks a request opened with RequestOptions.Streaming (the
	// body is supplied incrementally through StreamRequestBody rather than
	// all at once); StreamRequestBody outside that mode returns an
	// HTTP2Error with reason request_is_not_streaming.
	Streaming bool
}

// Transition applies RFC 7540 §5.1's state table for one HEADERS/DATA
// event: sending is true for an event this side originates (we send
// HEADERS/DATA), false for one the peer originates; endStream is that
// frame's END_STREAM flag.
func (s *Stream) Transition(sending, endStream bool) {
	switch s.State {
	case StreamIdle:
		switch {
		case sending && endStream:
			s.State = StreamHalfClosedLocal
		case sending:
			s.State = StreamOpen
		case endStream:
			s.State = StreamHalfClosedRemote
		default:
			s.State = StreamOpen
		}
	case StreamReservedLocal:
		if sending {
			if endStream {
				s.State = StreamClosed
			} else {
				s.State = StreamHalfClosedRemote
			}
		}
	case StreamReservedRemote:
		if !sending {
			if endStream {
				s.State = StreamClosed
			} else {
				s.State = StreamHalfClosedLocal
			}
		}
	case StreamOpen:
		switch {
		case sending && endStream:
			s.State = StreamHalfClosedLocal
		case !sending && endStream:
			s.State = StreamHalfClosedRemote
		}
	case StreamHalfClosedLocal:
		if !sending && endStream {
			s.State = StreamClosed
		}
	case StreamHalfClosedRemote:
		if sending && endStream {
			s.State = StreamClosed
		}
	case StreamClosed:
		// terminal; callers must check IsClosed before acting on a frame.
	}
}

// Reset forces the stream directly to closed, as RST_STREAM does in
// either direction (RFC 7540 §5.1, "closed" via RST_STREAM from any
// non-idle state).
func (s *Stream) Reset() {
	s.State = StreamClosed
}

func (s *Stream) IsClosed() bool { return s.State == StreamClosed }

// CanReceiveData reports whether an inbound DATA frame is legal in the
// current state (RFC 7540 §6.1: only while the stream is open or
// half-closed(local) — i.e. this side hasn't already seen END_STREAM).
func (s *Stream) CanReceiveData() bool {
	return s.State == StreamOpen || s.State == StreamHalfClosedLocal
}

// CanSendData reports the send-direction equivalent of CanReceiveData.
func (s *Stream) CanSendData() bool {
	return s.State == StreamOpen || s.State == StreamHalfClosedRemote
}
