package h2

import (
	"math"

	"golang.org/x/net/http2"
)

// SettingID reuses golang.org/x/net/http2's enumeration for the six RFC
// 7540 settings; SettingEnableConnectProtocol (RFC 8441) has no upstream
// constant and is declared locally.
type SettingID = http2.SettingID

const SettingEnableConnectProtocol SettingID = 0x8

const (
	minMaxFrameSize = 1 << 14
	maxMaxFrameSize = 1<<24 - 1
)

// Settings is one side's (local or remote) view of the SETTINGS values
// negotiated on a connection. Zero value is not meaningful; use
// DefaultSettings.
type Settings struct {
	HeaderTableSize        uint32
	EnablePush              bool
	MaxConcurrentStreams    uint32
	MaxConcurrentStreamsSet bool // false => unbounded, per RFC 7540 §6.5.2
	InitialWindowSize       uint32
	MaxFrameSize            uint32
	MaxHeaderListSize       uint32
	MaxHeaderListSizeSet    bool // false => unbounded
	EnableConnectProtocol   bool
}

// DefaultSettings returns the RFC 7540/8441 default values, which apply to
// both ends of a connection until a SETTINGS frame changes them.
func DefaultSettings() Settings {
	return Settings{
		HeaderTableSize:      4096,
		EnablePush:           true,
		InitialWindowSize:    65535,
		MaxFrameSize:         minMaxFrameSize,
		EnableConnectProtocol: false,
	}
}

// Apply validates and applies a single SETTINGS identifier/value pair.
// Unknown identifiers are ignored per RFC 7540 §6.5.2 (returns nil, no
// change). A validation failure returns a connection-level HTTP2Error.
func (s *Settings) Apply(id SettingID, value uint32) error {
	switch id {
	case http2.SettingHeaderTableSize:
		s.HeaderTableSize = value
	case http2.SettingEnablePush:
		if value > 1 {
			return ErrProtocol("SETTINGS_ENABLE_PUSH must be 0 or 1")
		}
		s.EnablePush = value == 1
	case http2.SettingMaxConcurrentStreams:
		s.MaxConcurrentStreams = value
		s.MaxConcurrentStreamsSet = true
	case http2.SettingInitialWindowSize:
		if value > math.MaxInt32 {
			return ErrFlowControl("connection", "SETTINGS_INITIAL_WINDOW_SIZE exceeds the maximum flow-control window")
		}
		s.InitialWindowSize = value
	case http2.SettingMaxFrameSize:
		if value < minMaxFrameSize || value > maxMaxFrameSize {
			return ErrProtocol("SETTINGS_MAX_FRAME_SIZE out of the [2^14, 2^24-1] range")
		}
		s.MaxFrameSize = value
	case http2.SettingMaxHeaderListSize:
		s.MaxHeaderListSize = value
		s.MaxHeaderListSizeSet = true
	case SettingEnableConnectProtocol:
		if value > 1 {
			return ErrProtocol("SETTINGS_ENABLE_CONNECT_PROTOCOL must be 0 or 1")
		}
		s.EnableConnectProtocol = value == 1
	default:
		// unknown setting: ignore, per RFC 7540 §6.5.2.
	}
	return nil
}

// Get returns the current value of a known setting and whether it is a
// recognized identifier, for GetServerSetting's façade operation.
func (s Settings) Get(id SettingID) (uint32, bool) {
	switch id {
	case http2.SettingHeaderTableSize:
		return s.HeaderTableSize, true
	case http2.SettingEnablePush:
		if s.EnablePush {
			return 1, true
		}
		return 0, true
	case http2.SettingMaxConcurrentStreams:
		if !s.MaxConcurrentStreamsSet {
			return math.MaxUint32, true
		}
		return s.MaxConcurrentStreams, true
	case http2.SettingInitialWindowSize:
		return s.InitialWindowSize, true
	case http2.SettingMaxFrameSize:
		return s.MaxFrameSize, true
	case http2.SettingMaxHeaderListSize:
		if !s.MaxHeaderListSizeSet {
			return math.MaxUint32, true
		}
		return s.MaxHeaderListSize, true
	case SettingEnableConnectProtocol:
		if s.EnableConnectProtocol {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Diff returns the (id, value) pairs that differ between a previous and a
// desired Settings value, in a stable order, for emitting a SETTINGS frame
// from PutSettings.
func (s Settings) Diff(want Settings) []struct {
	ID    SettingID
	Value uint32
} {
	var out []struct {
		ID    SettingID
		Value uint32
	}
	add := func(id SettingID, old, new uint32, changed bool) {
		if changed {
			out = append(out, struct {
				ID    SettingID
				Value uint32
			}{id, new})
		}
	}
	add(http2.SettingHeaderTableSize, s.HeaderTableSize, want.HeaderTableSize, s.HeaderTableSize != want.HeaderTableSize)
	add(http2.SettingEnablePush, 0, boolToUint32(want.EnablePush), s.EnablePush != want.EnablePush)
	add(http2.SettingMaxConcurrentStreams, s.MaxConcurrentStreams, want.MaxConcurrentStreams, want.MaxConcurrentStreamsSet && (s.MaxConcurrentStreams != want.MaxConcurrentStreams || !s.MaxConcurrentStreamsSet))
	add(http2.SettingInitialWindowSize, s.InitialWindowSize, want.InitialWindowSize, s.InitialWindowSize != want.InitialWindowSize)
	add(http2.SettingMaxFrameSize, s.MaxFrameSize, want.MaxFrameSize, s.MaxFrameSize != want.MaxFrameSize)
	add(http2.SettingMaxHeaderListSize, s.MaxHeaderListSize, want.MaxHeaderListSize, want.MaxHeaderListSizeSet && (s.MaxHeaderListSize != want.MaxHeaderListSize || !s.MaxHeaderListSizeSet))
	add(SettingEnableConnectProtocol, 0, boolToUint32(want.EnableConnectProtocol), s.EnableConnectProtocol != want.EnableConnectProtocol)
	return out
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
