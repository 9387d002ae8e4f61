package h2

// PingRef identifies one outstanding PING this side sent, returned by the
// façade's Ping operation and later carried on the matching EventPong.
// Grounded on dgrr-http2's ping.go, which also tracks outstanding pings by
// their 8-byte opaque payload rather than trusting frame order alone.
type PingRef struct {
	n uint64
}

type pingEntry struct {
	ref     PingRef
	payload [8]byte
}

// PingQueue tracks PINGs sent but not yet acked, in send order. RFC 7540
// does not require acks to arrive in order, but in practice peers ack
// FIFO; MatchAck still searches the whole queue so an out-of-order ack
// does not get misattributed.
type PingQueue struct {
	next uint64
	q    []pingEntry
}

// Enqueue records a newly sent PING's opaque payload and returns its ref.
func (q *PingQueue) Enqueue(payload [8]byte) PingRef {
	q.next++
	ref := PingRef{n: q.next}
	q.q = append(q.q, pingEntry{ref: ref, payload: payload})
	return ref
}

// MatchAck consumes the queue entry whose payload matches an inbound PING
// ACK, returning its ref. ok is false for an ack with no matching
// outstanding ping (a protocol violation callers may choose to ignore or
// flag per their own policy; this core does not treat it as fatal).
func (q *PingQueue) MatchAck(payload [8]byte) (PingRef, bool) {
	for i, e := range q.q {
		if e.payload == payload {
			q.q = append(q.q[:i], q.q[i+1:]...)
			return e.ref, true
		}
	}
	return PingRef{}, false
}

// Pending reports how many PINGs are awaiting an ack.
func (q *PingQueue) Pending() int { return len(q.q) }
