package h2

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestFrameHeaderRoundTrip(t *testing.T) {
	h := FrameHeader{Length: 12345, Type: http2.FrameHeaders, Flags: http2.FlagHeadersEndStream, StreamID: 7}
	buf := h.AppendTo(nil)
	require.Len(t, buf, FrameHeaderLen)

	got, err := ParseFrameHeader(buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestFrameHeaderClearsReservedBit(t *testing.T) {
	h := FrameHeader{StreamID: 1 << 31, Type: http2.FrameData}
	buf := h.AppendTo(nil)
	got, err := ParseFrameHeader(buf)
	require.NoError(t, err)
	assert.Zero(t, got.StreamID, "the reserved high bit must never round-trip into StreamID")
}

func TestParseFrameHeaderTooShort(t *testing.T) {
	_, err := ParseFrameHeader([]byte{1, 2, 3})
	require.Error(t, err)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestValidateHeaderFixedSizeMismatch(t *testing.T) {
	h := FrameHeader{Type: http2.FramePing, Length: 4}
	err := validateHeader(h, minMaxFrameSize)
	require.Error(t, err)
	assert.Equal(t, ReasonFrameSizeError, err.(*HTTP2Error).Reason())
}

func TestValidateHeaderOversize(t *testing.T) {
	h := FrameHeader{Type: http2.FrameData, Length: minMaxFrameSize + 1, StreamID: 1}
	err := validateHeader(h, minMaxFrameSize)
	require.Error(t, err)
	assert.Equal(t, ReasonFrameSizeError, err.(*HTTP2Error).Reason())
}

func TestValidateHeaderStreamIDZeroOrNonzero(t *testing.T) {
	// SETTINGS must carry stream id 0.
	err := validateHeader(FrameHeader{Type: http2.FrameSettings, StreamID: 1}, minMaxFrameSize)
	require.Error(t, err)

	// HEADERS must carry a nonzero stream id.
	err = validateHeader(FrameHeader{Type: http2.FrameHeaders, StreamID: 0}, minMaxFrameSize)
	require.Error(t, err)
}

func TestStripPaddingNoFlag(t *testing.T) {
	out, err := stripPadding(0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)
}

func TestStripPaddingRemovesPadBytes(t *testing.T) {
	// pad length byte (2), 3 bytes of payload, 2 bytes of padding.
	payload := []byte{2, 'a', 'b', 'c', 0, 0}
	out, err := stripPadding(http2.FlagDataPadded, payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
}

func TestStripPaddingLengthExceedsPayload(t *testing.T) {
	_, err := stripPadding(http2.FlagDataPadded, []byte{10, 'a'})
	require.Error(t, err)
}

func TestParseDataFrame(t *testing.T) {
	h := FrameHeader{Type: http2.FrameData, Flags: http2.FlagDataEndStream}
	dp, err := parseDataFrame(h, []byte("payload"))
	require.NoError(t, err)
	assert.True(t, dp.EndStream)
	assert.Equal(t, []byte("payload"), dp.Data)
}

func TestParseHeadersFrameWithPriority(t *testing.T) {
	h := FrameHeader{Type: http2.FrameHeaders, Flags: http2.FlagHeadersPriority | http2.FlagHeadersEndHeaders}
	payload := append([]byte{0, 0, 0, 5, 200}, []byte("block")...)
	hp, err := parseHeadersFrame(h, payload)
	require.NoError(t, err)
	assert.True(t, hp.HasPriority)
	assert.Equal(t, uint32(5), hp.StreamDependency)
	assert.Equal(t, uint8(200), hp.Weight)
	assert.True(t, hp.EndHeaders)
	assert.Equal(t, []byte("block"), hp.HeaderBlockFragment)
}

func TestParseHeadersFramePriorityTooShort(t *testing.T) {
	h := FrameHeader{Type: http2.FrameHeaders, Flags: http2.FlagHeadersPriority}
	_, err := parseHeadersFrame(h, []byte{0, 0})
	require.Error(t, err)
}

func TestParseRSTStreamFrame(t *testing.T) {
	rp, err := parseRSTStreamFrame([]byte{0, 0, 0, 8})
	require.NoError(t, err)
	assert.Equal(t, http2.ErrCodeCancel, rp.ErrorCode)

	_, err = parseRSTStreamFrame([]byte{0, 0, 0})
	require.Error(t, err)
}

func TestSettingsFrameRoundTrip(t *testing.T) {
	pairs := []SettingPair{
		{ID: http2.SettingInitialWindowSize, Value: 1 << 20},
		{ID: http2.SettingMaxFrameSize, Value: 1 << 16},
	}
	f := encodeSettingsFrame(pairs)
	sp, err := parseSettingsFrame(f.Header, f.Payload)
	require.NoError(t, err)
	assert.False(t, sp.Ack)
	assert.Equal(t, pairs, sp.Settings)
}

func TestSettingsAckFrame(t *testing.T) {
	f := encodeSettingsAckFrame()
	sp, err := parseSettingsFrame(f.Header, f.Payload)
	require.NoError(t, err)
	assert.True(t, sp.Ack)
}

func TestSettingsAckWithPayloadIsRejected(t *testing.T) {
	h := FrameHeader{Type: http2.FrameSettings, Flags: http2.FlagSettingsAck}
	_, err := parseSettingsFrame(h, []byte{0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

func TestPushPromiseFrameRoundTrip(t *testing.T) {
	h := FrameHeader{Type: http2.FramePushPromise, Flags: http2.FlagPushPromiseEndHeaders}
	payload := append([]byte{0, 0, 0, 2}, []byte("hdrs")...)
	pp, err := parsePushPromiseFrame(h, payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), pp.PromisedStreamID)
	assert.Equal(t, []byte("hdrs"), pp.HeaderBlockFragment)
	assert.True(t, pp.EndHeaders)
}

func TestPingFrameRoundTrip(t *testing.T) {
	var data [8]byte
	copy(data[:], "abcdefgh")
	f := encodePingFrame(data, true)
	pp, err := parsePingFrame(f.Header, f.Payload)
	require.NoError(t, err)
	assert.True(t, pp.Ack)
	assert.Equal(t, data, pp.Data)
}

func TestGoAwayFrameRoundTrip(t *testing.T) {
	f := encodeGoAwayFrame(41, http2.ErrCodeProtocol, []byte("debug"))
	gp, err := parseGoAwayFrame(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(41), gp.LastStreamID)
	assert.Equal(t, http2.ErrCodeProtocol, gp.ErrorCode)
	assert.Equal(t, []byte("debug"), gp.DebugData)
}

func TestWindowUpdateFrameRoundTrip(t *testing.T) {
	f := encodeWindowUpdateFrame(3, 100)
	wp, err := parseWindowUpdateFrame(f.Payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), wp.Increment)
}

func TestWindowUpdateZeroIncrementRejected(t *testing.T) {
	_, err := parseWindowUpdateFrame([]byte{0, 0, 0, 0})
	require.Error(t, err)
}

func TestContinuationFrame(t *testing.T) {
	h := FrameHeader{Type: http2.FrameContinuation, Flags: http2.FlagContinuationEndHeaders}
	cp := parseContinuationFrame(h, []byte("more"))
	assert.True(t, cp.EndHeaders)
	assert.Equal(t, []byte("more"), cp.HeaderBlockFragment)
}

func TestSplitDataFramesEmptyBody(t *testing.T) {
	frames := splitDataFrames(1, nil, minMaxFrameSize, true)
	require.Len(t, frames, 1)
	assert.True(t, frames[0].Header.Flags&http2.FlagDataEndStream != 0)
}

func TestSplitDataFramesOnlyLastCarriesEndStream(t *testing.T) {
	data := make([]byte, 5)
	frames := splitDataFrames(9, data, 2, true)
	require.Len(t, frames, 3)
	for i, f := range frames {
		assert.Equal(t, uint32(9), f.Header.StreamID)
		last := i == len(frames)-1
		assert.Equal(t, last, f.Header.Flags&http2.FlagDataEndStream != 0)
	}
	assert.Equal(t, 2, len(frames[0].Payload))
	assert.Equal(t, 1, len(frames[2].Payload))
}

func TestSplitHeaderBlockSingleFrame(t *testing.T) {
	frames := splitHeaderBlock(1, []byte("small"), minMaxFrameSize, true, 0)
	require.Len(t, frames, 1)
	f := frames[0]
	assert.Equal(t, http2.FrameHeaders, f.Header.Type)
	assert.True(t, f.Header.Flags&http2.FlagHeadersEndHeaders != 0)
	assert.True(t, f.Header.Flags&http2.FlagHeadersEndStream != 0)
}

func TestSplitHeaderBlockContinuation(t *testing.T) {
	block := make([]byte, 10)
	for i := range block {
		block[i] = byte(i)
	}
	frames := splitHeaderBlock(5, block, 4, false, 0)
	require.Len(t, frames, 3)
	assert.Equal(t, http2.FrameHeaders, frames[0].Header.Type)
	assert.False(t, frames[0].Header.Flags&http2.FlagHeadersEndHeaders != 0)
	assert.Equal(t, http2.FrameContinuation, frames[1].Header.Type)
	assert.Equal(t, http2.FrameContinuation, frames[2].Header.Type)
	assert.True(t, frames[2].Header.Flags&http2.FlagContinuationEndHeaders != 0)
	for _, f := range frames {
		assert.Equal(t, uint32(5), f.Header.StreamID)
	}
}

func TestSplitHeaderBlockPushPromise(t *testing.T) {
	frames := splitHeaderBlock(3, []byte("hdrs"), minMaxFrameSize, false, 8)
	require.Len(t, frames, 1)
	f := frames[0]
	assert.Equal(t, http2.FramePushPromise, f.Header.Type)
	// PUSH_PROMISE's CONTINUATION frames (and the promise itself) carry the
	// *associated* stream's id on the wire, never the promised stream's.
	assert.Equal(t, uint32(3), f.Header.StreamID)
	assert.Equal(t, uint32(8), binary.BigEndian.Uint32(f.Payload[0:4]))
	assert.Equal(t, []byte("hdrs"), f.Payload[4:])
}
