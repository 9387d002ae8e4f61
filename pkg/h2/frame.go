package h2

import (
	"encoding/binary"

	"golang.org/x/net/http2"
)

// FrameHeaderLen is the fixed 9-byte frame header size (RFC 7540 §4.1).
const FrameHeaderLen = 9

// FrameHeader is the 9-byte prefix common to every HTTP/2 frame.
type FrameHeader struct {
	Length   uint32 // 24 bits
	Type     http2.FrameType
	Flags    http2.Flags
	StreamID uint32 // 31 bits, reserved bit always 0
}

// ParseFrameHeader decodes the first FrameHeaderLen bytes of b.
func ParseFrameHeader(b []byte) (FrameHeader, error) {
	if len(b) < FrameHeaderLen {
		return FrameHeader{}, NewArgumentError("frame header requires %d bytes, got %d", FrameHeaderLen, len(b))
	}
	length := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	streamID := binary.BigEndian.Uint32(b[5:9]) &^ (1 << 31)
	return FrameHeader{
		Length:   length,
		Type:     http2.FrameType(b[3]),
		Flags:    http2.Flags(b[4]),
		StreamID: streamID,
	}, nil
}

// AppendTo appends the wire encoding of h to dst.
func (h FrameHeader) AppendTo(dst []byte) []byte {
	dst = append(dst,
		byte(h.Length>>16), byte(h.Length>>8), byte(h.Length),
		byte(h.Type),
		byte(h.Flags),
	)
	var sid [4]byte
	binary.BigEndian.PutUint32(sid[:], h.StreamID&^(1<<31))
	return append(dst, sid[:]...)
}

// Frame is a fully reassembled frame: header plus raw payload bytes
// (payload does not include padding-length/pad bytes stripping — callers
// that care about PADDED use stripPadding).
type Frame struct {
	Header  FrameHeader
	Payload []byte
}

// fixedPayloadLen reports the required exact payload length for frame
// kinds with a fixed size, and whether kind has one at all.
func fixedPayloadLen(kind http2.FrameType) (int, bool) {
	switch kind {
	case http2.FramePing:
		return 8, true
	case http2.FrameRSTStream:
		return 4, true
	case http2.FrameWindowUpdate:
		return 4, true
	case http2.FramePriority:
		return 5, true
	default:
		return 0, false
	}
}

// requiresZeroStream / requiresNonzeroStream describe RFC 7540's per-kind
// stream-id constraints used to validate inbound frames.
func requiresZeroStream(kind http2.FrameType) bool {
	switch kind {
	case http2.FrameSettings, http2.FramePing, http2.FrameGoAway:
		return true
	default:
		return false
	}
}

func requiresNonzeroStream(kind http2.FrameType) bool {
	switch kind {
	case http2.FrameData, http2.FrameHeaders, http2.FramePriority,
		http2.FrameRSTStream, http2.FramePushPromise, http2.FrameContinuation:
		return true
	default:
		return false
	}
}

// validateHeader applies the structural checks that do not require the
// payload: fixed-length kinds, stream-id-zero/nonzero kinds, and the
// frame's length against maxFrameSize.
func validateHeader(h FrameHeader, maxFrameSize uint32) error {
	if h.Length > maxFrameSize {
		return ErrFrameSize("frame length exceeds SETTINGS_MAX_FRAME_SIZE")
	}
	if n, ok := fixedPayloadLen(h.Type); ok && int(h.Length) != n {
		return ErrFrameSize("fixed-size frame has the wrong length")
	}
	if h.Type == http2.FrameSettings && h.Length%6 != 0 {
		return ErrFrameSize("SETTINGS frame length is not a multiple of 6")
	}
	if requiresZeroStream(h.Type) && h.StreamID != 0 {
		return ErrProtocol("frame kind requires stream id 0")
	}
	if requiresNonzeroStream(h.Type) && h.StreamID == 0 {
		return ErrProtocol("frame kind requires a nonzero stream id")
	}
	return nil
}

// stripPadding removes the PADDED-flag's pad-length prefix and trailing
// padding, returning the remaining payload (which may still include a
// priority prefix for HEADERS).
func stripPadding(flags http2.Flags, payload []byte) ([]byte, error) {
	if flags&http2.FlagHeadersPadded == 0 && flags&http2.FlagDataPadded == 0 {
		return payload, nil
	}
	if len(payload) < 1 {
		return nil, ErrFrameSize("PADDED frame missing pad length byte")
	}
	padLen := int(payload[0])
	payload = payload[1:]
	if padLen > len(payload) {
		return nil, ErrProtocol("padding length exceeds frame payload")
	}
	return payload[:len(payload)-padLen], nil
}

// DataPayload is the decoded body of a DATA frame.
type DataPayload struct {
	Data       []byte
	EndStream  bool
}

func parseDataFrame(h FrameHeader, payload []byte) (DataPayload, error) {
	data, err := stripPadding(h.Flags, payload)
	if err != nil {
		return DataPayload{}, err
	}
	return DataPayload{Data: data, EndStream: h.Flags&http2.FlagDataEndStream != 0}, nil
}

// HeadersPayload is the decoded body of a HEADERS frame (priority prefix,
// if present, is parsed but not enforced — this core does not implement
// priority scheduling, per RFC 7540 §5.3's "MAY be ignored").
type HeadersPayload struct {
	HeaderBlockFragment []byte
	EndStream           bool
	EndHeaders          bool
	Exclusive           bool
	StreamDependency    uint32
	Weight              uint8
	HasPriority         bool
}

func parseHeadersFrame(h FrameHeader, payload []byte) (HeadersPayload, error) {
	body, err := stripPadding(h.Flags, payload)
	if err != nil {
		return HeadersPayload{}, err
	}
	out := HeadersPayload{
		EndStream:  h.Flags&http2.FlagHeadersEndStream != 0,
		EndHeaders: h.Flags&http2.FlagHeadersEndHeaders != 0,
	}
	if h.Flags&http2.FlagHeadersPriority != 0 {
		if len(body) < 5 {
			return HeadersPayload{}, ErrFrameSize("HEADERS with PRIORITY flag too short")
		}
		dep := binary.BigEndian.Uint32(body[0:4])
		out.Exclusive = dep&(1<<31) != 0
		out.StreamDependency = dep &^ (1 << 31)
		out.Weight = body[4]
		out.HasPriority = true
		body = body[5:]
	}
	out.HeaderBlockFragment = body
	return out, nil
}

// PriorityPayload is the decoded body of a PRIORITY frame. The core
// validates but otherwise ignores it (see SPEC_FULL.md §2.3).
type PriorityPayload struct {
	Exclusive        bool
	StreamDependency uint32
	Weight           uint8
}

func parsePriorityFrame(payload []byte) (PriorityPayload, error) {
	if len(payload) != 5 {
		return PriorityPayload{}, ErrFrameSize("PRIORITY frame must be 5 bytes")
	}
	dep := binary.BigEndian.Uint32(payload[0:4])
	return PriorityPayload{
		Exclusive:        dep&(1<<31) != 0,
		StreamDependency: dep &^ (1 << 31),
		Weight:           payload[4],
	}, nil
}

// RSTStreamPayload is the decoded body of a RST_STREAM frame.
type RSTStreamPayload struct {
	ErrorCode http2.ErrCode
}

func parseRSTStreamFrame(payload []byte) (RSTStreamPayload, error) {
	if len(payload) != 4 {
		return RSTStreamPayload{}, ErrFrameSize("RST_STREAM frame must be 4 bytes")
	}
	return RSTStreamPayload{ErrorCode: http2.ErrCode(binary.BigEndian.Uint32(payload))}, nil
}

// SettingPair is one (identifier, value) entry inside a SETTINGS frame.
type SettingPair struct {
	ID    SettingID
	Value uint32
}

// SettingsPayload is the decoded body of a SETTINGS frame.
type SettingsPayload struct {
	Ack      bool
	Settings []SettingPair
}

func parseSettingsFrame(h FrameHeader, payload []byte) (SettingsPayload, error) {
	if h.Flags&http2.FlagSettingsAck != 0 {
		if len(payload) != 0 {
			return SettingsPayload{}, ErrFrameSize("SETTINGS ACK must have an empty payload")
		}
		return SettingsPayload{Ack: true}, nil
	}
	out := SettingsPayload{}
	for i := 0; i+6 <= len(payload); i += 6 {
		out.Settings = append(out.Settings, SettingPair{
			ID:    SettingID(binary.BigEndian.Uint16(payload[i : i+2])),
			Value: binary.BigEndian.Uint32(payload[i+2 : i+6]),
		})
	}
	return out, nil
}

// PushPromisePayload is the decoded body of a PUSH_PROMISE frame.
type PushPromisePayload struct {
	PromisedStreamID    uint32
	HeaderBlockFragment []byte
	EndHeaders          bool
}

func parsePushPromiseFrame(h FrameHeader, payload []byte) (PushPromisePayload, error) {
	body, err := stripPadding(h.Flags, payload)
	if err != nil {
		return PushPromisePayload{}, err
	}
	if len(body) < 4 {
		return PushPromisePayload{}, ErrFrameSize("PUSH_PROMISE too short")
	}
	promised := binary.BigEndian.Uint32(body[0:4]) &^ (1 << 31)
	return PushPromisePayload{
		PromisedStreamID:    promised,
		HeaderBlockFragment: body[4:],
		EndHeaders:          h.Flags&http2.FlagPushPromiseEndHeaders != 0,
	}, nil
}

// PingPayload is the decoded body of a PING frame.
type PingPayload struct {
	Ack  bool
	Data [8]byte
}

func parsePingFrame(h FrameHeader, payload []byte) (PingPayload, error) {
	var out PingPayload
	out.Ack = h.Flags&http2.FlagPingAck != 0
	copy(out.Data[:], payload)
	return out, nil
}

// GoAwayPayload is the decoded body of a GOAWAY frame.
type GoAwayPayload struct {
	LastStreamID uint32
	ErrorCode    http2.ErrCode
	DebugData    []byte
}

func parseGoAwayFrame(payload []byte) (GoAwayPayload, error) {
	if len(payload) < 8 {
		return GoAwayPayload{}, ErrFrameSize("GOAWAY too short")
	}
	return GoAwayPayload{
		LastStreamID: binary.BigEndian.Uint32(payload[0:4]) &^ (1 << 31),
		ErrorCode:    http2.ErrCode(binary.BigEndian.Uint32(payload[4:8])),
		DebugData:    payload[8:],
	}, nil
}

// WindowUpdatePayload is the decoded body of a WINDOW_UPDATE frame.
type WindowUpdatePayload struct {
	Increment uint32
}

func parseWindowUpdateFrame(payload []byte) (WindowUpdatePayload, error) {
	if len(payload) != 4 {
		return WindowUpdatePayload{}, ErrFrameSize("WINDOW_UPDATE must be 4 bytes")
	}
	inc := binary.BigEndian.Uint32(payload) &^ (1 << 31)
	if inc == 0 {
		return WindowUpdatePayload{}, ErrProtocol("WINDOW_UPDATE increment must be nonzero")
	}
	return WindowUpdatePayload{Increment: inc}, nil
}

// ContinuationPayload is the decoded body of a CONTINUATION frame.
type ContinuationPayload struct {
	HeaderBlockFragment []byte
	EndHeaders          bool
}

func parseContinuationFrame(h FrameHeader, payload []byte) ContinuationPayload {
	return ContinuationPayload{
		HeaderBlockFragment: payload,
		EndHeaders:          h.Flags&http2.FlagContinuationEndHeaders != 0,
	}
}

// --- encoding ---

func encodeDataFrame(streamID uint32, data []byte, endStream bool) Frame {
	var flags http2.Flags
	if endStream {
		flags |= http2.FlagDataEndStream
	}
	return Frame{Header: FrameHeader{Length: uint32(len(data)), Type: http2.FrameData, Flags: flags, StreamID: streamID}, Payload: data}
}

// splitDataFrames partitions data into one or more DATA frames no larger
// than maxFrameSize bytes each; only the final frame carries END_STREAM.
func splitDataFrames(streamID uint32, data []byte, maxFrameSize uint32, endStream bool) []Frame {
	if maxFrameSize == 0 {
		maxFrameSize = minMaxFrameSize
	}
	if len(data) == 0 {
		return []Frame{encodeDataFrame(streamID, nil, endStream)}
	}
	var frames []Frame
	for len(data) > 0 {
		n := int(maxFrameSize)
		if n > len(data) {
			n = len(data)
		}
		chunk := data[:n]
		data = data[n:]
		frames = append(frames, encodeDataFrame(streamID, chunk, endStream && len(data) == 0))
	}
	return frames
}

// splitHeaderBlock partitions an HPACK-encoded header block into a leading
// HEADERS (or PUSH_PROMISE, if promisedStreamID != 0) frame followed by
// zero or more CONTINUATION frames, so that no frame exceeds maxFrameSize.
// Only the final frame carries END_HEADERS.
func splitHeaderBlock(streamID uint32, block []byte, maxFrameSize uint32, endStream bool, promisedStreamID uint32) []Frame {
	if maxFrameSize == 0 {
		maxFrameSize = minMaxFrameSize
	}
	first := true
	var frames []Frame
	for {
		n := int(maxFrameSize)
		if first && promisedStreamID != 0 {
			n -= 4 // room for the promised stream id
		}
		if n > len(block) {
			n = len(block)
		}
		chunk := block[:n]
		rest := block[n:]
		last := len(rest) == 0
		if first {
			if promisedStreamID != 0 {
				var payload []byte
				var sid [4]byte
				binary.BigEndian.PutUint32(sid[:], promisedStreamID&^(1<<31))
				payload = append(payload, sid[:]...)
				payload = append(payload, chunk...)
				var flags http2.Flags
				if last {
					flags |= http2.FlagPushPromiseEndHeaders
				}
				frames = append(frames, Frame{Header: FrameHeader{Length: uint32(len(payload)), Type: http2.FramePushPromise, Flags: flags, StreamID: streamID}, Payload: payload})
			} else {
				var flags http2.Flags
				if endStream {
					flags |= http2.FlagHeadersEndStream
				}
				if last {
					flags |= http2.FlagHeadersEndHeaders
				}
				frames = append(frames, Frame{Header: FrameHeader{Length: uint32(len(chunk)), Type: http2.FrameHeaders, Flags: flags, StreamID: streamID}, Payload: chunk})
			}
			first = false
		} else {
			var flags http2.Flags
			if last {
				flags |= http2.FlagContinuationEndHeaders
			}
			frames = append(frames, Frame{Header: FrameHeader{Length: uint32(len(chunk)), Type: http2.FrameContinuation, Flags: flags, StreamID: streamID}, Payload: chunk})
		}
		block = rest
		if last {
			break
		}
	}
	return frames
}

func encodeSettingsFrame(pairs []SettingPair) Frame {
	payload := make([]byte, 0, len(pairs)*6)
	for _, p := range pairs {
		var b [6]byte
		binary.BigEndian.PutUint16(b[0:2], uint16(p.ID))
		binary.BigEndian.PutUint32(b[2:6], p.Value)
		payload = append(payload, b[:]...)
	}
	return Frame{Header: FrameHeader{Length: uint32(len(payload)), Type: http2.FrameSettings, StreamID: 0}, Payload: payload}
}

func encodeSettingsAckFrame() Frame {
	return Frame{Header: FrameHeader{Type: http2.FrameSettings, Flags: http2.FlagSettingsAck, StreamID: 0}}
}

func encodeRSTStreamFrame(streamID uint32, code http2.ErrCode) Frame {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], uint32(code))
	return Frame{Header: FrameHeader{Length: 4, Type: http2.FrameRSTStream, StreamID: streamID}, Payload: payload[:]}
}

func encodePingFrame(data [8]byte, ack bool) Frame {
	var flags http2.Flags
	if ack {
		flags = http2.FlagPingAck
	}
	payload := make([]byte, 8)
	copy(payload, data[:])
	return Frame{Header: FrameHeader{Length: 8, Type: http2.FramePing, Flags: flags, StreamID: 0}, Payload: payload}
}

func encodeGoAwayFrame(lastStreamID uint32, code http2.ErrCode, debug []byte) Frame {
	payload := make([]byte, 8+len(debug))
	binary.BigEndian.PutUint32(payload[0:4], lastStreamID&^(1<<31))
	binary.BigEndian.PutUint32(payload[4:8], uint32(code))
	copy(payload[8:], debug)
	return Frame{Header: FrameHeader{Length: uint32(len(payload)), Type: http2.FrameGoAway, StreamID: 0}, Payload: payload}
}

func encodeWindowUpdateFrame(streamID uint32, increment uint32) Frame {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], increment&^(1<<31))
	return Frame{Header: FrameHeader{Length: 4, Type: http2.FrameWindowUpdate, StreamID: streamID}, Payload: payload[:]}
}

// clientPreface is the 24-octet connection preface a client must send
// before any frame (RFC 7540 §3.5).
var clientPreface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")
