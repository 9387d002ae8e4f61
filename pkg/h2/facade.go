package h2

import (
	"crypto/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

// RequestOptions describes a new client-initiated request, mirroring
// spec.md §4.7's request(conn, method, path, headers, body) operation.
// The façade builds the :method/:scheme/:authority/:path pseudo-header
// set itself; callers supply only the request-line components plus any
// regular headers.
type RequestOptions struct {
	Method    string
	Scheme    string
	Authority string // host[:port]; the port is dropped when it matches Scheme's default
	Path      string
	// Protocol, non-empty only for Extended CONNECT (RFC 8441), is sent
	// as the :protocol pseudo-header; the peer must have advertised
	// SETTINGS_ENABLE_CONNECT_PROTOCOL=1.
	Protocol string
	// Headers are regular request headers in send order. Repeated
	// "cookie" entries are joined into one, "; "-separated, preserving
	// their relative order (spec.md §4.8).
	Headers []HeaderField
	// Body is the fixed request body, if any; nil means no body at all.
	// Ignored once Streaming is true — use StreamRequestBody instead.
	Body      []byte
	Streaming bool
	EndStream bool
}

// Request opens a new client-initiated stream, builds its pseudo-header
// set from opts, and sends the header block (and, for a non-streaming
// body, its full DATA).
//
// Grounded on the teacher's TxReq (pkg/http2/commands.go), reworked from
// a blocking send-then-stream.Wait() call into a non-blocking one that
// only ever writes the request immediately and returns its ref.
func (c *Connection) Request(opts RequestOptions) (RequestRef, error) {
	if c.substate == SubstateClosed {
		return RequestRef{}, ErrClosed()
	}
	if !c.goAway.AllowsNewStreams() {
		return RequestRef{}, ErrClosedForWriting()
	}
	if !c.streams.CanOpen() {
		return RequestRef{}, ErrTooManyConcurrentRequests()
	}
	if opts.Protocol != "" && !c.remoteSettings.EnableConnectProtocol {
		return RequestRef{}, NewArgumentError(":protocol pseudo-header requires the peer's SETTINGS_ENABLE_CONNECT_PROTOCOL")
	}

	headers := buildRequestHeaders(opts)

	ref := c.streams.NewRef()
	s := c.streams.CreateClientStream(ref, c.remoteSettings.InitialWindowSize, c.localSettings.InitialWindowSize)
	s.Streaming = opts.Streaming

	block, err := c.hpackEnc.Encode(headers)
	if err != nil {
		c.closeStream(s)
		return RequestRef{}, err
	}

	headerEndStream := opts.EndStream && !opts.Streaming && len(opts.Body) == 0
	frames := splitHeaderBlock(s.ID, block, c.remoteSettings.MaxFrameSize, headerEndStream, 0)
	if err := c.sendFrames(frames); err != nil {
		return RequestRef{}, err
	}
	s.Transition(true, headerEndStream)
	if s.IsClosed() {
		c.closeStream(s)
	}

	switch {
	case len(opts.Body) > 0 && !opts.Streaming:
		if err := c.writeData(s, opts.Body, opts.EndStream && !opts.Streaming); err != nil {
			return RequestRef{}, err
		}
	case opts.EndStream && opts.Streaming:
		// caller asked to end the stream immediately despite opening it
		// in streaming mode and supplying no initial body.
		if err := c.writeData(s, nil, true); err != nil {
			return RequestRef{}, err
		}
	}
	return ref, nil
}

// buildRequestHeaders assembles the wire header field list for a new
// request per spec.md §4.7: :method and :authority first (with the
// :authority port dropped when it matches Scheme's default port), then
// :protocol when opts.Protocol is set (Extended CONNECT), then
// :scheme/:path — omitted for CONNECT unless
// explicitly supplied — then regular headers with repeated Cookie
// entries joined into one.
func buildRequestHeaders(opts RequestOptions) []HeaderField {
	out := make([]HeaderField, 0, len(opts.Headers)+4)
	out = append(out, HeaderField{Name: ":method", Value: opts.Method})
	out = append(out, HeaderField{Name: ":authority", Value: trimDefaultPort(opts.Scheme, opts.Authority)})
	if opts.Protocol != "" {
		out = append(out, HeaderField{Name: ":protocol", Value: opts.Protocol})
	}

	isConnect := strings.EqualFold(opts.Method, "CONNECT")
	if !isConnect || opts.Scheme != "" {
		out = append(out, HeaderField{Name: ":scheme", Value: opts.Scheme})
	}
	if !isConnect || opts.Path != "" {
		out = append(out, HeaderField{Name: ":path", Value: opts.Path})
	}

	regular := joinCookies(opts.Headers)
	out = append(out, regular...)

	if !opts.Streaming && opts.Body != nil && !hasHeaderCI(opts.Headers, "content-length") {
		out = append(out, HeaderField{Name: "content-length", Value: strconv.Itoa(len(opts.Body))})
	}
	return out
}

// trimDefaultPort drops authority's port when it equals scheme's
// default (443 for https, 80 for http), per spec.md §4.7.
func trimDefaultPort(scheme, authority string) string {
	host, port, err := net.SplitHostPort(authority)
	if err != nil {
		return authority
	}
	var def string
	switch scheme {
	case "https":
		def = "443"
	case "http":
		def = "80"
	}
	if def != "" && port == def {
		return host
	}
	return authority
}

// joinCookies returns headers with every "cookie" entry collapsed into
// a single "; "-joined field at the position of its first occurrence,
// preserving the order of both the cookie values and the other headers
// (spec.md §4.8).
func joinCookies(headers []HeaderField) []HeaderField {
	var cookies []string
	out := make([]HeaderField, 0, len(headers))
	cookieIdx := -1
	for _, h := range headers {
		if strings.EqualFold(h.Name, "cookie") {
			cookies = append(cookies, h.Value)
			if cookieIdx == -1 {
				cookieIdx = len(out)
				out = append(out, HeaderField{Name: "cookie"})
			}
			continue
		}
		out = append(out, h)
	}
	if cookieIdx >= 0 {
		out[cookieIdx].Value = strings.Join(cookies, "; ")
	}
	return out
}

func hasHeaderCI(headers []HeaderField, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// connectionSpecificTrailers are the RFC 7540 §8.1.2.2 header fields
// that must never appear in a trailer block (connection-specific
// fields have no meaning in HTTP/2, where the connection is framed,
// not delimited by them).
var connectionSpecificTrailers = map[string]bool{
	"connection":        true,
	"keep-alive":        true,
	"proxy-connection":  true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// filterTrailers lowercases names and rejects anything disallowed in a
// trailer block — pseudo-headers, RFC 7540 §8.1.2.2's connection-
// specific fields, and any "te" value other than "trailers" — per
// spec.md §4.7's stream_request_body trailers rule.
func filterTrailers(trailers []HeaderField) ([]HeaderField, *HTTP2Error) {
	out := make([]HeaderField, 0, len(trailers))
	for _, h := range trailers {
		name := strings.ToLower(h.Name)
		switch {
		case len(name) > 0 && name[0] == ':':
			return nil, ErrUnallowedTrailingHeader(h.Name, h.Value)
		case connectionSpecificTrailers[name]:
			return nil, ErrUnallowedTrailingHeader(h.Name, h.Value)
		case name == "te" && h.Value != "trailers":
			return nil, ErrUnallowedTrailingHeader(h.Name, h.Value)
		}
		out = append(out, HeaderField{Name: name, Value: h.Value})
	}
	return out, nil
}

// StreamRequestBody appends another chunk of request body to a stream
// opened with streaming=true in Request. endStream closes the request
// side once this chunk is flushed; trailers, if non-empty, are sent as
// a final HEADERS block and always end the stream (spec.md §4.7's
// `{:eof, trailers}` sentinel), regardless of endStream.
func (c *Connection) StreamRequestBody(ref RequestRef, chunk []byte, endStream bool, trailers []HeaderField) error {
	s, ok := c.streams.ByRef(ref)
	if !ok || s.IsClosed() {
		return ErrUnknownRequestToStream()
	}
	if !s.Streaming {
		return ErrRequestIsNotStreaming()
	}
	if len(trailers) == 0 {
		return c.writeData(s, chunk, endStream)
	}
	filtered, err := filterTrailers(trailers)
	if err != nil {
		return err
	}
	if err := c.writeData(s, chunk, false); err != nil {
		return err
	}
	return c.writeTrailers(s, filtered)
}

// writeData partitions chunk into DATA frames honoring both the
// connection and stream send windows and the peer's max frame size; any
// portion that exceeds the currently available window is rejected with
// exceeds_window_size rather than silently buffered, since this core
// never buffers outbound bytes on the caller's behalf (spec.md §5).
func (c *Connection) writeData(s *Stream, chunk []byte, endStream bool) error {
	if len(chunk) > 0 {
		// Frame size is not a limit here: splitDataFrames below cuts the
		// chunk into frames of at most the peer's max frame size.
		avail := EligibleBytes(len(chunk), c.flow.SendWindow(), s.SendWindow, 0)
		if avail < len(chunk) {
			if avail == 0 && c.flow.SendWindow() <= 0 {
				return ErrExceedsWindowSize("connection", c.flow.SendWindow())
			}
			return ErrExceedsWindowSize("request", s.SendWindow)
		}
	}
	frames := splitDataFrames(s.ID, chunk, c.remoteSettings.MaxFrameSize, endStream)
	if err := c.sendFrames(frames); err != nil {
		return err
	}
	c.flow.ConsumeSend(uint32(len(chunk)))
	s.SendWindow -= int32(len(chunk))
	s.Transition(true, endStream)
	if s.IsClosed() {
		c.closeStream(s)
	}
	return nil
}

// writeTrailers sends trailers as a final HEADERS block with
// END_STREAM set, splitting across CONTINUATION frames if it exceeds
// the peer's max frame size.
func (c *Connection) writeTrailers(s *Stream, trailers []HeaderField) error {
	block, err := c.hpackEnc.Encode(trailers)
	if err != nil {
		return err
	}
	frames := splitHeaderBlock(s.ID, block, c.remoteSettings.MaxFrameSize, true, 0)
	if err := c.sendFrames(frames); err != nil {
		return err
	}
	s.Transition(true, true)
	if s.IsClosed() {
		c.closeStream(s)
	}
	return nil
}

// CancelRequest resets an in-flight request with CANCEL and drains its
// stream table entry. Per spec.md, cancelling an already-closed or
// unknown ref is a no-op, not an error — close/cancel is idempotent.
func (c *Connection) CancelRequest(ref RequestRef) error {
	s, ok := c.streams.ByRef(ref)
	if !ok || s.IsClosed() {
		return nil
	}
	if err := c.sendFrame(encodeRSTStreamFrame(s.ID, http2.ErrCodeCancel)); err != nil {
		return err
	}
	c.closeStream(s)
	return nil
}

// Drain removes a finished stream's bookkeeping once the caller has
// consumed its terminal (done/error) Event. Calling it twice, or on an
// unknown ref, is a no-op.
func (c *Connection) Drain(ref RequestRef) {
	if s, ok := c.streams.ByRef(ref); ok {
		c.streams.Drain(s.ID)
	}
}

// Ping sends a PING and returns a PingRef the caller matches against the
// EventPong it will eventually see.
func (c *Connection) Ping() (PingRef, error) {
	if c.substate == SubstateClosed {
		return PingRef{}, ErrClosed()
	}
	var payload [8]byte
	if _, err := rand.Read(payload[:]); err != nil {
		return PingRef{}, NewTransportError("rand", err)
	}
	ref := c.pings.Enqueue(payload)
	if err := c.sendFrame(encodePingFrame(payload, false)); err != nil {
		return PingRef{}, err
	}
	return ref, nil
}

// PutSettings issues a SETTINGS frame for every field in want that
// differs from the current local Settings. The new values are applied
// to the local Settings (and to the frame reader's max frame size and
// the HPACK decoder's table size) as soon as the frame is sent, without
// waiting for the peer's SETTINGS ACK; the ACK is later reported as an
// EventSettingsAck. GetServerSetting reads the peer's settings and is
// not affected.
func (c *Connection) PutSettings(want Settings) error {
	if c.substate == SubstateClosed {
		return ErrClosed()
	}
	diff := c.localSettings.Diff(want)
	if len(diff) == 0 {
		return nil
	}
	pairs := make([]SettingPair, 0, len(diff))
	for _, d := range diff {
		pairs = append(pairs, SettingPair{ID: d.ID, Value: d.Value})
	}
	if err := c.sendFrame(encodeSettingsFrame(pairs)); err != nil {
		return err
	}
	for _, d := range diff {
		if err := c.localSettings.Apply(d.ID, d.Value); err != nil {
			return err
		}
	}
	c.reader.SetMaxFrameSize(c.localSettings.MaxFrameSize)
	c.hpackDec.SetMaxDynamicTableSize(c.localSettings.HeaderTableSize)
	c.pendingLocalAck = true
	return nil
}

// GetWindowSize reports the current flow-control window for a request's
// stream (scope "request") or the whole connection (scope "connection",
// ref is ignored).
func (c *Connection) GetWindowSize(scope string, ref RequestRef) (int32, error) {
	if scope == "connection" {
		return c.flow.SendWindow(), nil
	}
	s, ok := c.streams.ByRef(ref)
	if !ok {
		// An unknown or already-drained ref is a programmer mistake, not
		// a protocol fault (spec.md §7's ArgumentError).
		return 0, NewArgumentError("get_window_size on unknown request")
	}
	return s.SendWindow, nil
}

// GetServerSetting reads back the peer's last-acknowledged value for a
// given setting identifier.
func (c *Connection) GetServerSetting(id SettingID) (uint32, error) {
	v, ok := c.remoteSettings.Get(id)
	if !ok {
		return 0, NewArgumentError("unknown setting id %d", uint32(id))
	}
	return v, nil
}

// OpenRequestCount returns the number of streams not yet closed.
func (c *Connection) OpenRequestCount() int { return c.streams.OpenCount() }

// PutPrivate stores an opaque value the owning process wants attached to
// the connection (e.g. a supervising process id), mirroring spec.md's
// "controlling process" slot.
func (c *Connection) PutPrivate(v interface{}) { c.private = v }

// GetPrivate retrieves the value stored by PutPrivate.
func (c *Connection) GetPrivate() interface{} { return c.private }

// Close sends a GOAWAY with NO_ERROR (if one hasn't already gone out) and
// transitions the connection to closed. Idempotent.
func (c *Connection) Close() error {
	if c.substate == SubstateClosed {
		return nil
	}
	if !c.goAway.Sent {
		c.goAway.Sent = true
		c.goAway.SentLastID = c.lastOpenedStreamID()
		_ = c.sendFrame(encodeGoAwayFrame(c.goAway.SentLastID, 0, nil))
	}
	c.substate = SubstateClosed
	return c.transport.Close()
}

// Recv is only valid in ModePassive: it blocks (via the Transport, not a
// core-owned timer) for up to timeout waiting for bytes, then processes
// whatever arrived exactly as Feed would.
func (c *Connection) Recv(timeout time.Duration) ([]Event, error) {
	if c.mode != ModePassive {
		return nil, NewArgumentError("Recv is only valid in ModePassive")
	}
	b, err := c.transport.Recv(timeout)
	if err != nil {
		if te, ok := err.(*TransportError); ok && te.Reason == "timeout" {
			return nil, nil
		}
		c.substate = SubstateClosed
		return nil, err
	}
	return c.feed(b)
}

// StreamResult is the outcome of dispatching one TransportMessage
// through Stream, mirroring spec.md §4.7's
// `{:ok, conn, responses} | {:error, conn, error, responses} | :unknown`.
type StreamResult struct {
	Events  []Event
	Err     error
	Unknown bool
}

// Stream dispatches one transport-shaped message an owner observed on
// its own transport (spec.md §4.7's stream(conn, msg)): TransportData is
// processed exactly as Feed would be; TransportClosed/TransportFailed
// closes every still-open stream and reports a TransportError with no
// events ("transport-closed while streams are in flight surfaces
// TransportError(:closed) with responses=[]"); any other kind yields
// StreamResult{Unknown: true}.
func (c *Connection) Stream(msg TransportMessage) StreamResult {
	switch msg.Kind {
	case TransportData:
		events, err := c.feed(msg.Data)
		return StreamResult{Events: events, Err: err}
	case TransportClosed:
		c.closeAllStreams()
		c.substate = SubstateClosed
		return StreamResult{Err: NewTransportError("closed", nil)}
	case TransportFailed:
		c.closeAllStreams()
		c.substate = SubstateClosed
		if msg.Err != nil {
			return StreamResult{Err: msg.Err}
		}
		return StreamResult{Err: NewTransportError("closed", nil)}
	default:
		return StreamResult{Unknown: true}
	}
}

func (c *Connection) closeAllStreams() {
	for _, s := range c.streams.All() {
		if !s.IsClosed() {
			c.closeStream(s)
		}
	}
}

// SetMode switches the connection between ModeActive and ModePassive
// byte ingestion, mirroring spec.md's set_mode(conn, :active|:passive).
func (c *Connection) SetMode(mode Mode) { c.mode = mode }

// ControllingProcess stores the owner handle a transport should notify
// of activity — an alias for PutPrivate under the name spec.md's
// controlling_process(conn, pid_or_handle) uses.
func (c *Connection) ControllingProcess(v interface{}) { c.private = v }

// Open reports whether the connection is usable at all, mirroring
// spec.md's open?/1.
func (c *Connection) Open() bool { return c.substate != SubstateClosed }

// OpenFor reports whether the connection still accepts the given
// direction of traffic, mirroring spec.md's open?(conn, :read|:write):
// "write" goes false once either side has sent or received a GOAWAY;
// "read" stays true until the connection is fully closed.
func (c *Connection) OpenFor(direction string) bool {
	if c.substate == SubstateClosed {
		return false
	}
	if direction == "write" {
		return c.goAway.AllowsNewStreams()
	}
	return true
}

// GetSocket returns the Transport this connection was created with,
// mirroring spec.md's get_socket/1.
func (c *Connection) GetSocket() Transport { return c.transport }
