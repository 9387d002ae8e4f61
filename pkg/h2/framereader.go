package h2

// FrameReader incrementally reassembles frames out of arbitrarily
// fragmented inbound byte ranges. Feed never blocks and Next never blocks:
// it returns ok=false when the buffer does not yet hold a complete frame,
// which is simply "come back after the next Feed" rather than an error.
type FrameReader struct {
	buf          []byte
	maxFrameSize uint32
}

// NewFrameReader creates a reader that rejects frames larger than
// maxFrameSize (the local SETTINGS_MAX_FRAME_SIZE).
func NewFrameReader(maxFrameSize uint32) *FrameReader {
	return &FrameReader{maxFrameSize: maxFrameSize}
}

// SetMaxFrameSize updates the limit applied to subsequently parsed frame
// headers, e.g. after a local PutSettings raises it.
func (r *FrameReader) SetMaxFrameSize(n uint32) {
	r.maxFrameSize = n
}

// Feed appends newly arrived bytes. The core never copies more than it has
// to: Feed retains a reference-free copy so the caller's slice can be
// reused.
func (r *FrameReader) Feed(b []byte) {
	if len(b) == 0 {
		return
	}
	r.buf = append(r.buf, b...)
}

// Pending reports how many unconsumed bytes are buffered.
func (r *FrameReader) Pending() int { return len(r.buf) }

// Next extracts the next complete frame from the buffer, if any.
//
//   - (_, false, nil): not enough bytes yet for a full frame; call again
//     after the next Feed.
//   - (_, false, err): the buffered header is structurally invalid
//     (oversize, bad fixed length, a stream id that is zero where it must
//     be nonzero or nonzero where it must be zero) — connection-fatal.
//   - (f, true, nil): a frame was extracted and the buffer advanced.
func (r *FrameReader) Next() (Frame, bool, error) {
	if len(r.buf) < FrameHeaderLen {
		return Frame{}, false, nil
	}
	h, err := ParseFrameHeader(r.buf)
	if err != nil {
		return Frame{}, false, err
	}
	if err := validateHeader(h, r.maxFrameSize); err != nil {
		return Frame{}, false, err
	}
	total := FrameHeaderLen + int(h.Length)
	if len(r.buf) < total {
		return Frame{}, false, nil
	}
	payload := make([]byte, h.Length)
	copy(payload, r.buf[FrameHeaderLen:total])
	r.buf = r.buf[total:]
	return Frame{Header: h, Payload: payload}, true, nil
}

// PrefaceReader consumes the fixed 24-byte client connection preface from
// a server-observed byte stream. The façade's Connect always sends the
// preface itself (this is a client-only core, SPEC_FULL.md §1), so
// Connection never uses this; only its own tests exercise it.
type PrefaceReader struct {
	buf []byte
}

func (p *PrefaceReader) Feed(b []byte) { p.buf = append(p.buf, b...) }

// Consume reports whether the full preface has now been seen, returning
// any bytes observed past it.
func (p *PrefaceReader) Consume() (rest []byte, ok bool) {
	if len(p.buf) < len(clientPreface) {
		return nil, false
	}
	matched := string(p.buf[:len(clientPreface)]) == string(clientPreface)
	if !matched {
		return nil, false
	}
	rest = p.buf[len(clientPreface):]
	p.buf = nil
	return rest, true
}
