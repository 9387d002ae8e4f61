package h2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, uint32(4096), s.HeaderTableSize)
	assert.True(t, s.EnablePush)
	assert.Equal(t, uint32(65535), s.InitialWindowSize)
	assert.Equal(t, uint32(minMaxFrameSize), s.MaxFrameSize)
	assert.False(t, s.MaxConcurrentStreamsSet)
	assert.False(t, s.MaxHeaderListSizeSet)
}

func TestSettingsApplyKnownValues(t *testing.T) {
	var s Settings
	require.NoError(t, s.Apply(http2.SettingEnablePush, 0))
	assert.False(t, s.EnablePush)

	require.NoError(t, s.Apply(http2.SettingMaxConcurrentStreams, 42))
	assert.Equal(t, uint32(42), s.MaxConcurrentStreams)
	assert.True(t, s.MaxConcurrentStreamsSet)

	require.NoError(t, s.Apply(SettingEnableConnectProtocol, 1))
	assert.True(t, s.EnableConnectProtocol)
}

func TestSettingsApplyRejectsInvalidEnablePush(t *testing.T) {
	var s Settings
	err := s.Apply(http2.SettingEnablePush, 2)
	require.Error(t, err)
	assert.Equal(t, ReasonProtocolError, err.(*HTTP2Error).Reason())
}

func TestSettingsApplyRejectsMaxFrameSizeOutOfRange(t *testing.T) {
	var s Settings
	require.Error(t, s.Apply(http2.SettingMaxFrameSize, minMaxFrameSize-1))
	require.Error(t, s.Apply(http2.SettingMaxFrameSize, maxMaxFrameSize+1))
	require.NoError(t, s.Apply(http2.SettingMaxFrameSize, minMaxFrameSize))
}

func TestSettingsApplyRejectsInitialWindowSizeOverflow(t *testing.T) {
	var s Settings
	err := s.Apply(http2.SettingInitialWindowSize, math.MaxInt32+1)
	require.Error(t, err)
	assert.Equal(t, ReasonFlowControlError, err.(*HTTP2Error).Reason())
}

func TestSettingsApplyIgnoresUnknownID(t *testing.T) {
	var s Settings
	err := s.Apply(SettingID(0xFF), 1)
	require.NoError(t, err)
}

func TestSettingsGetUnboundedWhenUnset(t *testing.T) {
	s := DefaultSettings()
	v, ok := s.Get(http2.SettingMaxConcurrentStreams)
	require.True(t, ok)
	assert.Equal(t, uint32(math.MaxUint32), v)
}

func TestSettingsGetUnknownID(t *testing.T) {
	s := DefaultSettings()
	_, ok := s.Get(SettingID(0xFF))
	assert.False(t, ok)
}

func TestSettingsDiffOnlyChangedFields(t *testing.T) {
	from := DefaultSettings()
	to := from
	to.InitialWindowSize = 1 << 20
	to.MaxConcurrentStreams = 100
	to.MaxConcurrentStreamsSet = true

	diff := from.Diff(to)
	ids := map[SettingID]uint32{}
	for _, d := range diff {
		ids[d.ID] = d.Value
	}
	assert.Equal(t, uint32(1<<20), ids[http2.SettingInitialWindowSize])
	assert.Equal(t, uint32(100), ids[http2.SettingMaxConcurrentStreams])
	_, hasFrameSize := ids[http2.SettingMaxFrameSize]
	assert.False(t, hasFrameSize)
}

func TestSettingsDiffEmptyWhenEqual(t *testing.T) {
	s := DefaultSettings()
	assert.Empty(t, s.Diff(s))
}
