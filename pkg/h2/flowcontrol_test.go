package h2

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowWindowAddOverflow(t *testing.T) {
	w := flowWindow{size: math.MaxInt32 - 1}
	err := w.add(10, "connection")
	require.Error(t, err)
	assert.Equal(t, ReasonFlowControlError, err.(*HTTP2Error).Reason())
}

func TestFlowWindowAddUnderflow(t *testing.T) {
	w := flowWindow{size: math.MinInt32 + 1}
	err := w.add(-10, "request")
	require.Error(t, err)
}

func TestFlowWindowNegativeAfterShrink(t *testing.T) {
	// A SETTINGS_INITIAL_WINDOW_SIZE decrease may legitimately drive a
	// stream window negative (RFC 7540 §6.9.2).
	w := newFlowWindow(100)
	require.NoError(t, w.add(-150, "request"))
	assert.Equal(t, int32(-50), w.size)
}

func TestFlowControllerConsumeRecvExceedsWindow(t *testing.T) {
	fc := newFlowController(65535, 10)
	err := fc.ConsumeRecv(11)
	require.Error(t, err)
}

func TestFlowControllerWindowUpdateIncrementRefillsAfterConsumption(t *testing.T) {
	fc := newFlowController(65535, 100)

	// 40 of 100 consumed: the window (60) is still above half, no refill yet.
	require.NoError(t, fc.ConsumeRecv(40))
	assert.Zero(t, fc.WindowUpdateIncrement())
	assert.Equal(t, int32(60), fc.RecvWindow())

	// 60 of 100 consumed: the window (40) has crossed half, refill it all.
	require.NoError(t, fc.ConsumeRecv(20))
	inc := fc.WindowUpdateIncrement()
	assert.Equal(t, uint32(60), inc)
	assert.Equal(t, int32(100), fc.RecvWindow())

	// Nothing new consumed since the last refill: no further increment.
	assert.Zero(t, fc.WindowUpdateIncrement())
}

func TestFlowControllerApplyWindowUpdate(t *testing.T) {
	fc := newFlowController(0, 65535)
	require.NoError(t, fc.ApplyWindowUpdate(500))
	assert.Equal(t, int32(500), fc.SendWindow())
}

func TestEligibleBytesCapsOnEachDimension(t *testing.T) {
	assert.Equal(t, 0, EligibleBytes(100, 0, 50, 1000))
	assert.Equal(t, 0, EligibleBytes(100, 50, 0, 1000))
	assert.Equal(t, 10, EligibleBytes(100, 10, 50, 1000))
	assert.Equal(t, 20, EligibleBytes(100, 50, 20, 1000))
	assert.Equal(t, 30, EligibleBytes(100, 1000, 1000, 30))
	assert.Equal(t, 100, EligibleBytes(100, 1000, 1000, 0))
}
