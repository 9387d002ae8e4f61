package h2

// RequestRef is the opaque handle a caller receives from Request/Connect
// and uses for every subsequent façade operation (StreamRequestBody,
// CancelRequest, GetWindowSize, ...) and every Event it appears in. It is
// comparable, so it can be used directly as a map key the way the
// teacher's code keys streams by name (pkg/http2/stream.go's
// StreamManager.GetByName) — here keyed by an opaque counter instead of a
// caller-chosen string, since this core assigns refs itself.
type RequestRef struct {
	n uint64
}

// Valid reports whether r was ever issued by a StreamTable (the zero
// value is never a live ref).
func (r RequestRef) Valid() bool { return r.n != 0 }

// StreamTable owns id allocation, the id→Stream and ref→Stream maps, and
// the concurrent-stream-count bookkeeping against the peer's
// SETTINGS_MAX_CONCURRENT_STREAMS. Grounded on the teacher's
// StreamManager (pkg/http2/stream.go) but with its RWMutex removed: this
// core is single-threaded and re-entrant-free, so there is never
// concurrent access to guard against.
type StreamTable struct {
	nextRef    uint64
	nextStream uint32 // next client-initiated (odd) stream id to hand out
	byID       map[uint32]*Stream
	byRef      map[RequestRef]*Stream
	openCount  int
	maxOpen    uint32
	maxOpenSet bool
	lastPeerID uint32 // highest server-initiated (even) stream id seen

	// pushOpenCount/localMaxOpen(Set) track the symmetric cap on
	// server-initiated streams (RFC 7540 §4.4): how many PUSH_PROMISEs we
	// will accept before refusing further ones, governed by the
	// SETTINGS_MAX_CONCURRENT_STREAMS *we* advertised to the peer.
	pushOpenCount   int
	localMaxOpen    uint32
	localMaxOpenSet bool
}

// NewStreamTable creates an empty table. Client-initiated stream ids
// start at 1 per RFC 7540 §5.1.1.
func NewStreamTable() *StreamTable {
	return &StreamTable{
		nextStream: 1,
		byID:       make(map[uint32]*Stream),
		byRef:      make(map[RequestRef]*Stream),
	}
}

// NewRef mints a fresh opaque RequestRef.
func (t *StreamTable) NewRef() RequestRef {
	t.nextRef++
	return RequestRef{n: t.nextRef}
}

// OpenCount is the façade's OpenRequestCount: streams not yet closed.
func (t *StreamTable) OpenCount() int { return t.openCount }

// SetMaxConcurrentStreams records the peer's SETTINGS_MAX_CONCURRENT_STREAMS
// (or clears the limit if set is false, the RFC default).
func (t *StreamTable) SetMaxConcurrentStreams(n uint32, set bool) {
	t.maxOpen, t.maxOpenSet = n, set
}

// CanOpen reports whether one more client-initiated stream may be opened
// without exceeding the peer's concurrency limit.
func (t *StreamTable) CanOpen() bool {
	if !t.maxOpenSet {
		return true
	}
	return uint32(t.openCount) < t.maxOpen
}

// SetLocalMaxConcurrentStreams records the SETTINGS_MAX_CONCURRENT_STREAMS
// value this side advertised to the peer, governing CanOpenPush.
func (t *StreamTable) SetLocalMaxConcurrentStreams(n uint32, set bool) {
	t.localMaxOpen, t.localMaxOpenSet = n, set
}

// CanOpenPush reports whether one more server-initiated (push) stream may
// be accepted without exceeding the concurrency limit this side advertised
// to the peer (RFC 7540 §4.4's symmetric cap on PUSH_PROMISE).
func (t *StreamTable) CanOpenPush() bool {
	if !t.localMaxOpenSet {
		return true
	}
	return t.pushOpenCount < int(t.localMaxOpen)
}

// CreateClientStream allocates the next odd stream id and a Stream for a
// new outbound request.
func (t *StreamTable) CreateClientStream(ref RequestRef, sendInitial, recvInitial uint32) *Stream {
	id := t.nextStream
	t.nextStream += 2
	s := &Stream{
		ID:          id,
		Ref:         ref,
		State:       StreamIdle,
		SendWindow:  int32(sendInitial),
		RecvWindow:  int32(recvInitial),
		RecvInitial: recvInitial,
	}
	t.byID[id] = s
	t.byRef[ref] = s
	t.openCount++
	return s
}

// CreatePushStream reserves a server-initiated (even) stream id in
// response to an inbound PUSH_PROMISE.
func (t *StreamTable) CreatePushStream(id, parentID uint32, ref RequestRef, sendInitial, recvInitial uint32) *Stream {
	if id > t.lastPeerID {
		t.lastPeerID = id
	}
	s := &Stream{
		ID:          id,
		Ref:         ref,
		State:       StreamReservedRemote,
		IsPush:      true,
		ParentID:    parentID,
		SendWindow:  int32(sendInitial),
		RecvWindow:  int32(recvInitial),
		RecvInitial: recvInitial,
	}
	t.byID[id] = s
	t.byRef[ref] = s
	t.openCount++
	t.pushOpenCount++
	return s
}

// ByID looks up a stream by its wire id (used while dispatching an
// inbound frame).
func (t *StreamTable) ByID(id uint32) (*Stream, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// ByRef looks up a stream by the RequestRef a caller holds.
func (t *StreamTable) ByRef(ref RequestRef) (*Stream, bool) {
	s, ok := t.byRef[ref]
	return s, ok
}

// MarkClosed transitions the open/closed accounting for a stream that has
// just reached StreamClosed; it does not remove the stream from the
// table (final events may still reference it) — see Drain.
func (t *StreamTable) MarkClosed(id uint32) {
	s, ok := t.byID[id]
	if !ok || s.State == StreamClosed {
		return
	}
	s.State = StreamClosed
	t.openCount--
	if s.IsPush {
		t.pushOpenCount--
	}
}

// Drain removes a closed stream's bookkeeping entirely, once its final
// Event (done or error) has been delivered to the caller — spec.md's
// "closed streams are drained from the table" lifecycle note.
func (t *StreamTable) Drain(id uint32) {
	s, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	delete(t.byRef, s.Ref)
}

// All returns every live stream, in no particular order — used when
// building the GOAWAY "mark unprocessed requests" sweep.
func (t *StreamTable) All() []*Stream {
	out := make([]*Stream, 0, len(t.byID))
	for _, s := range t.byID {
		out = append(out, s)
	}
	return out
}
