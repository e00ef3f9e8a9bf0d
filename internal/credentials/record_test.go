package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_UnsetVersusEmpty(t *testing.T) {
	r := NewRecord(false)

	_, ok := r.Get(ClientID)
	assert.False(t, ok)

	r.Set(ClientID, "")
	v, ok := r.Get(ClientID)
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestRecord_CleanKeepsDemo(t *testing.T) {
	r := NewRecord(true)
	for _, f := range Fields {
		r.Set(f, "x")
	}
	r.Clean()

	for _, f := range Fields {
		_, ok := r.Get(f)
		assert.False(t, ok, f.Key())
	}
	assert.True(t, r.Demo())
	assert.Empty(t, r.Snapshot())
}

func TestRecord_SnapshotIsACopy(t *testing.T) {
	r := NewRecord(false)
	r.Set(ZivaUserCode, "u1")

	snap := r.Snapshot()
	snap[ZivaUserCode] = "tampered"

	v, _ := r.Get(ZivaUserCode)
	assert.Equal(t, "u1", v)
}
