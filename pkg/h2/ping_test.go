package h2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingQueueEnqueueAndMatchAck(t *testing.T) {
	var q PingQueue
	ref := q.Enqueue([8]byte{1, 2, 3})
	assert.Equal(t, 1, q.Pending())

	got, ok := q.MatchAck([8]byte{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, ref, got)
	assert.Equal(t, 0, q.Pending())
}

func TestPingQueueMatchAckOutOfOrder(t *testing.T) {
	var q PingQueue
	ref1 := q.Enqueue([8]byte{1})
	ref2 := q.Enqueue([8]byte{2})

	got2, ok := q.MatchAck([8]byte{2})
	require.True(t, ok)
	assert.Equal(t, ref2, got2)

	got1, ok := q.MatchAck([8]byte{1})
	require.True(t, ok)
	assert.Equal(t, ref1, got1)
}

func TestPingQueueUnsolicitedAck(t *testing.T) {
	var q PingQueue
	q.Enqueue([8]byte{1})
	_, ok := q.MatchAck([8]byte{9, 9, 9})
	assert.False(t, ok)
	assert.Equal(t, 1, q.Pending())
}
