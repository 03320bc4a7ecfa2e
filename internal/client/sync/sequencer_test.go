package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencer_LastWriterWins(t *testing.T) {
	var s Sequencer

	// Three overlapping requests issued back to back.
	r0 := s.Issue()
	r1 := s.Issue()
	r2 := s.Issue()
	require.Equal(t, uint64(0), r0)
	require.Equal(t, uint64(1), r1)
	require.Equal(t, uint64(2), r2)

	var state string

	// The newest response lands first and wins.
	assert.True(t, s.Apply(r2, func() { state = "r2" }))
	assert.Equal(t, "r2", state)

	// Older responses trickling in afterwards are discarded.
	assert.False(t, s.Apply(r0, func() { state = "r0" }))
	assert.False(t, s.Apply(r1, func() { state = "r1" }))
	assert.Equal(t, "r2", state)
}

func TestSequencer_FirstQueryException(t *testing.T) {
	var s Sequencer

	r0 := s.Issue()
	_ = s.Issue() // a newer query is already in flight

	// Nothing has been applied yet, so the index-0 response still
	// establishes initial state.
	applied := false
	assert.True(t, s.Apply(r0, func() { applied = true }))
	assert.True(t, applied)
}

func TestSequencer_FirstQueryExceptionExpires(t *testing.T) {
	var s Sequencer

	r0 := s.Issue()
	r1 := s.Issue()

	require.True(t, s.Apply(r1, func() {}))

	// Once any response has been applied, index 0 is stale like any
	// other old index.
	assert.False(t, s.Apply(r0, func() {}))
}

func TestSequencer_InOrderResponsesAllApply(t *testing.T) {
	var s Sequencer

	for i := 0; i < 5; i++ {
		seq := s.Issue()
		assert.True(t, s.Apply(seq, func() {}), "seq %d", seq)
	}
}
