package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestFrameReaderNeedsMoreBytes(t *testing.T) {
	r := NewFrameReader(minMaxFrameSize)
	r.Feed([]byte{0, 0, 0, 4})

	_, ok, err := r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, r.Pending())
}

func TestFrameReaderSplitAcrossArbitraryBoundaries(t *testing.T) {
	want := encodePingFrame([8]byte{1, 2, 3, 4, 5, 6, 7, 8}, false)
	wire := want.Header.AppendTo(nil)
	wire = append(wire, want.Payload...)

	r := NewFrameReader(minMaxFrameSize)
	for _, b := range wire {
		_, ok, err := r.Next()
		require.NoError(t, err)
		assert.False(t, ok, "must not report a complete frame before every byte arrives")
		r.Feed([]byte{b})
	}

	f, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Header, f.Header)
	assert.Equal(t, want.Payload, f.Payload)
	assert.Zero(t, r.Pending())
}

func TestFrameReaderMultipleFramesInOneFeed(t *testing.T) {
	a := encodeSettingsAckFrame()
	b := encodeWindowUpdateFrame(0, 10)

	var wire []byte
	wire = append(wire, a.Header.AppendTo(nil)...)
	wire = append(wire, a.Payload...)
	wire = append(wire, b.Header.AppendTo(nil)...)
	wire = append(wire, b.Payload...)

	r := NewFrameReader(minMaxFrameSize)
	r.Feed(wire)

	f1, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, http2.FrameSettings, f1.Header.Type)

	f2, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, http2.FrameWindowUpdate, f2.Header.Type)

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFrameReaderRejectsOversizeFrame(t *testing.T) {
	r := NewFrameReader(16)
	h := FrameHeader{Type: http2.FrameData, Length: 17, StreamID: 1}
	r.Feed(h.AppendTo(nil))

	_, ok, err := r.Next()
	assert.False(t, ok)
	require.Error(t, err)
}

func TestFrameReaderSetMaxFrameSizeAppliesToLaterFrames(t *testing.T) {
	r := NewFrameReader(16)
	r.SetMaxFrameSize(32)

	h := FrameHeader{Type: http2.FrameData, Length: 20, StreamID: 1}
	r.Feed(h.AppendTo(nil))
	r.Feed(make([]byte, 20))

	_, ok, err := r.Next()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrefaceReaderConsume(t *testing.T) {
	var p PrefaceReader
	p.Feed(clientPreface[:10])
	_, ok := p.Consume()
	assert.False(t, ok)

	p.Feed(clientPreface[10:])
	p.Feed([]byte("extra"))
	rest, ok := p.Consume()
	require.True(t, ok)
	assert.Equal(t, []byte("extra"), rest)
}

func TestPrefaceReaderRejectsWrongBytes(t *testing.T) {
	var p PrefaceReader
	p.Feed(make([]byte, len(clientPreface)))
	_, ok := p.Consume()
	assert.False(t, ok)
}
