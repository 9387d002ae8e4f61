package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamTransitionIdleToOpen(t *testing.T) {
	s := &Stream{State: StreamIdle}
	s.Transition(true, false)
	assert.Equal(t, StreamOpen, s.State)
}

func TestStreamTransitionIdleSendEndStreamHalfClosesLocal(t *testing.T) {
	s := &Stream{State: StreamIdle}
	s.Transition(true, true)
	assert.Equal(t, StreamHalfClosedLocal, s.State)
}

func TestStreamTransitionIdleRecvEndStreamHalfClosesRemote(t *testing.T) {
	s := &Stream{State: StreamIdle}
	s.Transition(false, true)
	assert.Equal(t, StreamHalfClosedRemote, s.State)
}

func TestStreamTransitionOpenToClosedBothSides(t *testing.T) {
	s := &Stream{State: StreamOpen}
	s.Transition(true, true)
	assert.Equal(t, StreamHalfClosedLocal, s.State)
	s.Transition(false, true)
	assert.Equal(t, StreamClosed, s.State)
}

func TestStreamTransitionHalfClosedRemoteToClosed(t *testing.T) {
	s := &Stream{State: StreamHalfClosedRemote}
	s.Transition(true, true)
	assert.Equal(t, StreamClosed, s.State)
}

func TestStreamTransitionReservedLocal(t *testing.T) {
	s := &Stream{State: StreamReservedLocal}
	s.Transition(true, false)
	assert.Equal(t, StreamHalfClosedRemote, s.State)
}

func TestStreamTransitionReservedRemote(t *testing.T) {
	s := &Stream{State: StreamReservedRemote}
	s.Transition(false, true)
	assert.Equal(t, StreamClosed, s.State)
}

func TestStreamResetForcesClosed(t *testing.T) {
	s := &Stream{State: StreamOpen}
	s.Reset()
	assert.True(t, s.IsClosed())
}

func TestStreamCanReceiveCanSendData(t *testing.T) {
	s := &Stream{State: StreamOpen}
	assert.True(t, s.CanReceiveData())
	assert.True(t, s.CanSendData())

	s.State = StreamHalfClosedLocal
	assert.True(t, s.CanReceiveData())
	assert.False(t, s.CanSendData())

	s.State = StreamHalfClosedRemote
	assert.False(t, s.CanReceiveData())
	assert.True(t, s.CanSendData())

	s.State = StreamClosed
	assert.False(t, s.CanReceiveData())
	assert.False(t, s.CanSendData())
}

func TestStreamStateString(t *testing.T) {
	assert.Equal(t, "idle", StreamIdle.String())
	assert.Equal(t, "half_closed_local", StreamHalfClosedLocal.String())
	assert.Equal(t, "closed", StreamClosed.String())
}
