package h2

import (
	"strconv"

	"golang.org/x/net/http2"

	"github.com/nilbound/h2core/pkg/logging"
)

// Mode selects how inbound bytes reach a Connection (spec.md §4.7 /
// SPEC_FULL.md §3-9, unchanged). ModeActive means the owner pushes bytes
// in via Feed as they arrive on its own transport; ModePassive means the
// Connection itself calls Transport.Recv from inside the façade's Recv
// operation. A connection is in one mode at a time; SetMode switches it.
type Mode int

const (
	ModeActive Mode = iota
	ModePassive
)

// Substate is the connection-level state machine (Data Model §3):
// handshaking until the local SETTINGS is acked or the peer's SETTINGS
// arrives, open for normal traffic, read_only once a GOAWAY has been
// received (no new requests may be started, but in-flight streams keep
// running), and closed once the transport is gone. write_only is defined
// but never entered: this side sends GOAWAY only from Close or on a
// fatal error, and both go straight to closed.
type Substate int

const (
	SubstateHandshaking Substate = iota
	SubstateOpen
	SubstateReadOnly
	SubstateWriteOnly
	SubstateClosed
)

func (s Substate) String() string {
	switch s {
	case SubstateHandshaking:
		return "handshaking"
	case SubstateOpen:
		return "open"
	case SubstateReadOnly:
		return "read_only"
	case SubstateWriteOnly:
		return "write_only"
	case SubstateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// headerAssembly is the connection-wide (not per-stream) header-block
// reassembly buffer. RFC 7540 §6.10 allows only one header block in
// flight on a connection at a time, and — critically for PUSH_PROMISE —
// every CONTINUATION shares its carrier frame's StreamID, which for a
// push is the *associated* (parent) stream, not the promised one. Tracking
// this on the Connection rather than on a Stream is what lets push
// assembly and ordinary response assembly share one code path without
// conflating "which stream ID the wire frames carry" with "which stream
// the decoded headers belong to".
type headerAssembly struct {
	active          bool
	carrierStreamID uint32
	target          *Stream
	parent          *Stream // non-nil only while assembling a push promise
	endStream       bool
	refusePush      bool // push exceeded local.max_concurrent_streams; RST_STREAM(refused_stream) once decoded
	buf             []byte
}

// Connection drives one HTTP/2 connection's protocol state machine. It
// owns no socket, goroutine, or timer; all I/O happens through the
// Transport handed to Connect, and all inbound bytes arrive via Feed
// (ModeActive) or internally via Recv (ModePassive, through transport.Recv).
//
// Grounded on the teacher's Conn (pkg/http2/conn.go), with its
// goroutine-spawning frameReceiveLoop and per-handler direct socket
// writes removed: handlers here return []Event and any outbound bytes are
// written synchronously by the same call, never from a second goroutine.
type Connection struct {
	transport Transport
	mode      Mode
	substate  Substate

	localSettings      Settings
	remoteSettings     Settings
	pendingLocalAck    bool // a local SETTINGS change is outstanding, unacked

	reader   *FrameReader
	hpackEnc *HPACKEncoder
	hpackDec *HPACKDecoder

	streams *StreamTable
	flow    *FlowController

	goAway GoAwayState
	pings  PingQueue
	hdrAsm headerAssembly

	logger *logging.Logger

	private interface{}
}

// ConnectOptions configures a new Connection, mirroring dgrr-http2's
// option-struct convention (a plain struct with zero-value defaults
// passed once to the constructor) rather than functional options.
type ConnectOptions struct {
	// Mode selects active vs. passive byte delivery; zero value is
	// ModeActive.
	Mode Mode
	// LocalSettings, when non-nil, replaces DefaultSettings() as this
	// side's outbound SETTINGS as a whole; every field, zero or not, is
	// used as given.
	LocalSettings *Settings
	// Logger receives observable-hook messages (unsolicited PING acks,
	// unknown frame types); a no-op logger is used if nil.
	Logger *logging.Logger
}

// Connect creates a Connection bound to transport and immediately writes
// the client connection preface and an initial SETTINGS frame — the only
// two things spec.md says a client-role core sends unconditionally.
// Connect never blocks waiting for the peer's reply; the caller observes
// the handshake completing via an EventSettingsAck/EventSettingsChanged
// pair once the peer's bytes are fed back in.
func Connect(transport Transport, opts ConnectOptions) (*Connection, error) {
	if transport == nil {
		return nil, NewArgumentError("Connect requires a non-nil Transport")
	}
	local := DefaultSettings()
	if opts.LocalSettings != nil {
		local = *opts.LocalSettings
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("h2")
	}
	c := &Connection{
		transport:      transport,
		mode:           opts.Mode,
		substate:       SubstateHandshaking,
		localSettings:  local,
		remoteSettings: DefaultSettings(),
		reader:         NewFrameReader(local.MaxFrameSize),
		hpackEnc:       NewHPACKEncoder(4096),
		hpackDec:       NewHPACKDecoder(local.HeaderTableSize),
		streams:        NewStreamTable(),
		// The connection-level flow control window always starts at
		// 65535 in both directions (RFC 7540 §6.9.2); only stream-level
		// windows are affected by SETTINGS_INITIAL_WINDOW_SIZE.
		flow:   newFlowController(65535, 65535),
		logger: logger,
	}
	c.streams.SetLocalMaxConcurrentStreams(local.MaxConcurrentStreams, local.MaxConcurrentStreamsSet)

	if err := c.sendRaw(clientPreface); err != nil {
		return nil, err
	}
	pairs := settingsToPairs(DefaultSettings(), local)
	if err := c.sendFrame(encodeSettingsFrame(pairs)); err != nil {
		return nil, err
	}
	c.pendingLocalAck = true
	return c, nil
}

func settingsToPairs(from, to Settings) []SettingPair {
	diff := from.Diff(to)
	out := make([]SettingPair, 0, len(diff))
	for _, d := range diff {
		out = append(out, SettingPair{ID: d.ID, Value: d.Value})
	}
	return out
}

// Substate exposes the current connection substate.
func (c *Connection) Substate() Substate { return c.substate }

// sendRaw writes bytes directly to the transport, translating any
// transport failure into the connection's closed state.
func (c *Connection) sendRaw(b []byte) error {
	if c.substate == SubstateClosed {
		return ErrClosed()
	}
	if err := c.transport.Send(b); err != nil {
		c.substate = SubstateClosed
		return err
	}
	return nil
}

func (c *Connection) sendFrame(f Frame) error {
	buf := f.Header.AppendTo(make([]byte, 0, FrameHeaderLen+len(f.Payload)))
	buf = append(buf, f.Payload...)
	return c.sendRaw(buf)
}

func (c *Connection) sendFrames(frames []Frame) error {
	for _, f := range frames {
		if err := c.sendFrame(f); err != nil {
			return err
		}
	}
	return nil
}

// Feed delivers newly arrived inbound bytes to the connection in
// ModeActive and returns every Event that processing them produced, in
// order. Feed never blocks: any complete frames already buffered are
// processed synchronously and Feed returns as soon as the buffer is
// exhausted or a connection-fatal error occurs.
func (c *Connection) Feed(b []byte) ([]Event, error) {
	if c.mode != ModeActive {
		return nil, NewArgumentError("Feed is only valid in ModeActive")
	}
	return c.feed(b)
}

func (c *Connection) feed(b []byte) ([]Event, error) {
	if c.substate == SubstateClosed {
		return nil, ErrClosed()
	}
	c.reader.Feed(b)
	var events []Event
	for {
		f, ok, err := c.reader.Next()
		if err != nil {
			return append(events, c.fatal(toHTTP2Error(err))...), nil
		}
		if !ok {
			break
		}
		if c.hdrAsm.active && !(f.Header.Type == http2.FrameContinuation && f.Header.StreamID == c.hdrAsm.carrierStreamID) {
			return append(events, c.fatal(ErrProtocol("a frame other than CONTINUATION arrived while a header block was in progress"))...), nil
		}
		evs, err := c.handleFrame(f)
		if err != nil {
			return append(events, c.fatal(toHTTP2Error(err))...), nil
		}
		events = append(events, evs...)
	}
	return events, nil
}

// closeStream marks s closed and immediately drains its table entry. Every
// path that hands the caller a terminal (done/error) Event for a stream
// calls this instead of MarkClosed alone, so a ref never outlives the
// terminal event the caller consumes for it (Data Model §3).
func (c *Connection) closeStream(s *Stream) {
	c.streams.MarkClosed(s.ID)
	c.streams.Drain(s.ID)
}

func toHTTP2Error(err error) *HTTP2Error {
	if he, ok := err.(*HTTP2Error); ok {
		return he
	}
	return ErrProtocol(err.Error())
}

// fatal tears the connection down after a connection-level HTTP2Error:
// it sends GOAWAY (if not already sent), marks every open stream with an
// EventError, and transitions to closed.
func (c *Connection) fatal(err *HTTP2Error) []Event {
	if c.substate == SubstateClosed {
		return nil
	}
	if !c.goAway.Sent {
		c.goAway.Sent = true
		c.goAway.SentLastID = c.lastOpenedStreamID()
		_ = c.sendFrame(encodeGoAwayFrame(c.goAway.SentLastID, err.Code, []byte(err.Debug)))
	}
	var events []Event
	for _, s := range c.streams.All() {
		if s.IsClosed() {
			continue
		}
		c.closeStream(s)
		events = append(events, evError(s.Ref, err))
	}
	c.substate = SubstateClosed
	return events
}

func (c *Connection) lastOpenedStreamID() uint32 {
	var max uint32
	for _, s := range c.streams.All() {
		if s.ID > max {
			max = s.ID
		}
	}
	return max
}

// handleFrame dispatches one fully reassembled frame to its per-kind
// handler, grounded on the teacher's Conn.processFrame switch
// (pkg/http2/conn.go) but returning []Event instead of mutating shared
// state and writing to the socket as a side effect.
func (c *Connection) handleFrame(f Frame) ([]Event, error) {
	switch f.Header.Type {
	case http2.FrameSettings:
		return c.handleSettings(f)
	case http2.FramePing:
		return c.handlePing(f)
	case http2.FrameGoAway:
		return c.handleGoAway(f)
	case http2.FrameWindowUpdate:
		return c.handleWindowUpdate(f)
	case http2.FrameHeaders:
		return c.handleHeaders(f)
	case http2.FrameContinuation:
		return c.handleContinuation(f)
	case http2.FrameData:
		return c.handleData(f)
	case http2.FrameRSTStream:
		return c.handleRSTStream(f)
	case http2.FramePushPromise:
		return c.handlePushPromise(f)
	case http2.FramePriority:
		if _, err := parsePriorityFrame(f.Payload); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		c.logger.Debug("ignoring unknown frame type %d on stream %d", int(f.Header.Type), f.Header.StreamID)
		return nil, nil
	}
}

func (c *Connection) handleSettings(f Frame) ([]Event, error) {
	sp, err := parseSettingsFrame(f.Header, f.Payload)
	if err != nil {
		return nil, err
	}
	if sp.Ack {
		if c.pendingLocalAck {
			c.pendingLocalAck = false
			if c.substate == SubstateHandshaking {
				c.substate = SubstateOpen
			}
		}
		return []Event{evSettingsAck()}, nil
	}

	prevInitial := c.remoteSettings.InitialWindowSize
	for _, p := range sp.Settings {
		if err := c.remoteSettings.Apply(p.ID, p.Value); err != nil {
			return nil, err
		}
	}
	c.streams.SetMaxConcurrentStreams(c.remoteSettings.MaxConcurrentStreams, c.remoteSettings.MaxConcurrentStreamsSet)
	c.hpackEnc.SetMaxDynamicTableSize(c.remoteSettings.HeaderTableSize)

	if delta := int32(c.remoteSettings.InitialWindowSize) - int32(prevInitial); delta != 0 {
		for _, s := range c.streams.All() {
			if s.IsClosed() {
				continue
			}
			if err := applyInitialWindowDelta(s, delta); err != nil {
				return nil, err
			}
		}
	}

	if err := c.sendFrame(encodeSettingsAckFrame()); err != nil {
		return nil, err
	}
	if c.substate == SubstateHandshaking {
		c.substate = SubstateOpen
	}
	return []Event{evSettingsChanged()}, nil
}

func (c *Connection) handlePing(f Frame) ([]Event, error) {
	pp, err := parsePingFrame(f.Header, f.Payload)
	if err != nil {
		return nil, err
	}
	if pp.Ack {
		if ref, ok := c.pings.MatchAck(pp.Data); ok {
			return []Event{evPong(ref)}, nil
		}
		c.logger.Debug("unsolicited PING ack, no matching outstanding ping")
		return nil, nil
	}
	if err := c.sendFrame(encodePingFrame(pp.Data, true)); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Connection) handleGoAway(f Frame) ([]Event, error) {
	gp, err := parseGoAwayFrame(f.Payload)
	if err != nil {
		return nil, err
	}
	c.goAway.Received = true
	c.goAway.ReceivedLastID = gp.LastStreamID
	c.goAway.Code = gp.ErrorCode
	c.goAway.Debug = string(gp.DebugData)
	if c.substate == SubstateOpen || c.substate == SubstateHandshaking {
		c.substate = SubstateReadOnly
	}

	var events []Event
	for _, s := range c.streams.All() {
		if s.IsClosed() || s.IsPush {
			continue
		}
		if s.ID%2 == 1 && s.ID > gp.LastStreamID {
			c.closeStream(s)
			events = append(events, evError(s.Ref, ErrUnprocessed()))
		}
	}
	return events, nil
}

func (c *Connection) handleWindowUpdate(f Frame) ([]Event, error) {
	wp, err := parseWindowUpdateFrame(f.Payload)
	if err != nil {
		return nil, err
	}
	if f.Header.StreamID == 0 {
		if err := c.flow.ApplyWindowUpdate(wp.Increment); err != nil {
			return nil, err
		}
		return nil, nil
	}
	s, ok := c.streams.ByID(f.Header.StreamID)
	if !ok {
		return nil, nil
	}
	if err := applyInitialWindowDelta(s, int32(wp.Increment)); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Connection) handleRSTStream(f Frame) ([]Event, error) {
	rp, err := parseRSTStreamFrame(f.Payload)
	if err != nil {
		return nil, err
	}
	s, ok := c.streams.ByID(f.Header.StreamID)
	if !ok || s.IsClosed() {
		return nil, nil
	}
	c.closeStream(s)
	return []Event{evError(s.Ref, ErrServerClosedRequest(rp.ErrorCode))}, nil
}

func (c *Connection) handleHeaders(f Frame) ([]Event, error) {
	hp, err := parseHeadersFrame(f.Header, f.Payload)
	if err != nil {
		return nil, err
	}
	s, ok := c.streams.ByID(f.Header.StreamID)
	if !ok {
		return nil, ErrProtocol("HEADERS on a stream the client never opened")
	}
	if s.IsClosed() {
		return nil, nil
	}
	c.hdrAsm = headerAssembly{
		active:          true,
		carrierStreamID: f.Header.StreamID,
		target:          s,
		endStream:       hp.EndStream,
		buf:             append([]byte(nil), hp.HeaderBlockFragment...),
	}
	if !hp.EndHeaders {
		return nil, nil
	}
	return c.finishHeaders()
}

func (c *Connection) handlePushPromise(f Frame) ([]Event, error) {
	if !c.localSettings.EnablePush {
		return nil, ErrProtocol("PUSH_PROMISE received with SETTINGS_ENABLE_PUSH disabled")
	}
	pp, err := parsePushPromiseFrame(f.Header, f.Payload)
	if err != nil {
		return nil, err
	}
	parent, ok := c.streams.ByID(f.Header.StreamID)
	if !ok {
		return nil, ErrProtocol("PUSH_PROMISE on an unknown associated stream")
	}
	// Checked before CreatePushStream increments the counter: a promise
	// that would be the one-too-many push is the one refused.
	refused := !c.streams.CanOpenPush()
	ref := c.streams.NewRef()
	ps := c.streams.CreatePushStream(pp.PromisedStreamID, parent.ID, ref, c.remoteSettings.InitialWindowSize, c.localSettings.InitialWindowSize)
	c.hdrAsm = headerAssembly{
		active:          true,
		carrierStreamID: f.Header.StreamID,
		target:          ps,
		parent:          parent,
		refusePush:      refused,
		buf:             append([]byte(nil), pp.HeaderBlockFragment...),
	}
	if !pp.EndHeaders {
		return nil, nil
	}
	return c.finishHeaders()
}

func (c *Connection) handleContinuation(f Frame) ([]Event, error) {
	if !c.hdrAsm.active || f.Header.StreamID != c.hdrAsm.carrierStreamID {
		return nil, ErrProtocol("unexpected CONTINUATION frame")
	}
	cp := parseContinuationFrame(f.Header, f.Payload)
	c.hdrAsm.buf = append(c.hdrAsm.buf, cp.HeaderBlockFragment...)
	if !cp.EndHeaders {
		return nil, nil
	}
	return c.finishHeaders()
}

// finishHeaders decodes the accumulated header block (shared HPACK
// dynamic table state, persisted across calls) and builds the Events it
// implies: status + headers for a new response, headers-only for
// trailers, or a push_promise for a reserved push stream.
func (c *Connection) finishHeaders() ([]Event, error) {
	asm := c.hdrAsm
	c.hdrAsm = headerAssembly{}

	fields, err := c.hpackDec.DecodeBlock(asm.buf)
	if err != nil {
		return nil, err
	}

	if asm.parent != nil {
		ev := evPushPromise(asm.parent.Ref, asm.target.Ref, fields)
		if asm.refusePush {
			_ = c.sendFrame(encodeRSTStreamFrame(asm.target.ID, http2.ErrCodeRefusedStream))
			c.closeStream(asm.target)
		}
		return []Event{ev}, nil
	}

	s := asm.target
	s.Transition(false, asm.endStream)

	if !s.SawFinalHeaders {
		code, rest, is1xx, ok := splitStatus(fields)
		if !ok {
			// Missing :status is a stream error, not a connection one
			// (§4.5): RST_STREAM(protocol_error), surfaced as an Event.
			return c.headerStreamError(s, ErrMissingStatusHeader()), nil
		}
		if is1xx && asm.endStream {
			return c.headerStreamError(s, ErrProtocol("1xx must not set END_STREAM")), nil
		}
		events := []Event{evStatus(s.Ref, code)}
		if rest = stripPseudoHeaders(rest); len(rest) > 0 {
			events = append(events, evHeaders(s.Ref, rest))
		}
		if is1xx {
			s.Got1xx = true
			return events, nil
		}
		s.SawFinalHeaders = true
		if asm.endStream {
			c.closeStream(s)
			events = append(events, evDone(s.Ref))
		}
		return events, nil
	}

	// A HEADERS block after the final status has already been seen is
	// either another (illegal) informational response or trailers.
	if _, _, is1xx, hasStatus := splitStatus(fields); hasStatus && is1xx {
		return c.headerStreamError(s, ErrProtocol("informational must appear before final status")), nil
	}
	if !asm.endStream {
		return c.headerStreamError(s, ErrProtocol("trailing headers didn't set END_STREAM")), nil
	}
	events := []Event{evHeaders(s.Ref, stripPseudoHeaders(fields))}
	c.closeStream(s)
	events = append(events, evDone(s.Ref))
	return events, nil
}

// headerStreamError resets s with RST_STREAM(protocol_error) and reports
// err as the stream's terminal Event, for the §4.5 HEADERS-sequencing
// violations that are stream errors rather than connection errors.
func (c *Connection) headerStreamError(s *Stream, err *HTTP2Error) []Event {
	_ = c.sendFrame(encodeRSTStreamFrame(s.ID, http2.ErrCodeProtocol))
	c.closeStream(s)
	return []Event{evError(s.Ref, err)}
}

// stripPseudoHeaders removes any ":"-prefixed pseudo-header fields before
// headers are delivered to the caller (§4.8: "Pseudo-headers are stripped
// from delivered headers").
func stripPseudoHeaders(fields []HeaderField) []HeaderField {
	out := make([]HeaderField, 0, len(fields))
	for _, f := range fields {
		if len(f.Name) > 0 && f.Name[0] == ':' {
			continue
		}
		out = append(out, f)
	}
	return out
}

func splitStatus(fields []HeaderField) (code int, rest []HeaderField, is1xx bool, ok bool) {
	for _, f := range fields {
		if f.Name == ":status" {
			n, err := strconv.Atoi(f.Value)
			if err != nil {
				return 0, nil, false, false
			}
			code = n
			ok = true
			continue
		}
		rest = append(rest, f)
	}
	is1xx = code >= 100 && code < 200
	return
}

func (c *Connection) handleData(f Frame) ([]Event, error) {
	dp, err := parseDataFrame(f.Header, f.Payload)
	if err != nil {
		return nil, err
	}
	s, ok := c.streams.ByID(f.Header.StreamID)
	if !ok {
		return nil, ErrProtocol("DATA on a stream the client never opened")
	}
	if s.IsClosed() {
		// RFC 7540 §5.1: frames on a closed stream are silently ignored.
		return nil, nil
	}
	if !s.CanReceiveData() {
		c.closeStream(s)
		return []Event{evError(s.Ref, ErrProtocol("DATA received on a stream not open for reading"))}, nil
	}
	n := uint32(len(dp.Data))
	if err := c.flow.ConsumeRecv(n); err != nil {
		return nil, err
	}
	if int32(n) > s.RecvWindow {
		return nil, ErrFlowControl("request", "peer sent more data than the stream receive window allows")
	}
	s.RecvWindow -= int32(n)
	s.RecvHighWater += n

	var events []Event
	if len(dp.Data) > 0 {
		events = append(events, evData(s.Ref, dp.Data))
	}
	s.Transition(false, dp.EndStream)
	if dp.EndStream {
		c.closeStream(s)
		events = append(events, evDone(s.Ref))
		return events, nil
	}
	if err := c.sendWindowUpdates(s); err != nil {
		return nil, err
	}
	return events, nil
}

// sendWindowUpdates emits WINDOW_UPDATE frames to refill the connection
// and/or stream receive windows once enough has been consumed, per
// FlowController's halfway-refill heuristic.
func (c *Connection) sendWindowUpdates(s *Stream) error {
	if inc := c.flow.WindowUpdateIncrement(); inc > 0 {
		if err := c.sendFrame(encodeWindowUpdateFrame(0, inc)); err != nil {
			return err
		}
	}
	if s.RecvHighWater > 0 && s.RecvWindow <= int32(s.RecvInitial/2) {
		inc := s.RecvHighWater
		s.RecvHighWater = 0
		s.RecvWindow += int32(inc)
		if err := c.sendFrame(encodeWindowUpdateFrame(s.ID, inc)); err != nil {
			return err
		}
	}
	return nil
}

func applyInitialWindowDelta(s *Stream, delta int32) error {
	w := flowWindow{size: s.SendWindow}
	if err := w.add(delta, "request"); err != nil {
		return err
	}
	s.SendWindow = w.size
	return nil
}
