package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoAwayAllowsNewStreams(t *testing.T) {
	var g GoAwayState
	assert.True(t, g.AllowsNewStreams())

	g.Sent = true
	assert.False(t, g.AllowsNewStreams())

	g = GoAwayState{Received: true}
	assert.False(t, g.AllowsNewStreams())
}

func TestGoAwayWasProcessed(t *testing.T) {
	var g GoAwayState
	// No GOAWAY received yet: everything is assumed processed.
	assert.True(t, g.WasProcessed(99))

	g.Received = true
	g.ReceivedLastID = 5
	assert.True(t, g.WasProcessed(5))
	assert.True(t, g.WasProcessed(3))
	assert.False(t, g.WasProcessed(7))
}
