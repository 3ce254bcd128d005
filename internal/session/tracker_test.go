package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	id := uuid.New()
	connectedAt := time.Unix(1_000, 0)

	tr.Begin(id, "Notch", connectedAt)
	assert.Equal(t, 1, tr.Len())

	info, ok := tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Notch", info.Username)
	assert.Equal(t, connectedAt, info.ConnectedAt)
	assert.Empty(t, info.Version)

	tr.Tag(id, "1.21", "en_us")
	info, ok = tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, "1.21", info.Version)
	assert.Equal(t, "en_us", info.Locale)

	final, ok := tr.End(id)
	require.True(t, ok)
	assert.Equal(t, "Notch", final.Username)
	assert.Equal(t, connectedAt, final.ConnectedAt)
	assert.Equal(t, 0, tr.Len())

	_, ok = tr.Get(id)
	assert.False(t, ok)
}

func TestTrackerTagUnknownSession(t *testing.T) {
	tr := NewTracker()

	// Tagging after the session ended must not resurrect it
	tr.Tag(uuid.New(), "1.21", "en_us")
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerEndUnknownSession(t *testing.T) {
	tr := NewTracker()
	_, ok := tr.End(uuid.New())
	assert.False(t, ok)
}

func TestTrackerReloginReplacesSession(t *testing.T) {
	tr := NewTracker()
	id := uuid.New()

	tr.Begin(id, "Notch", time.Unix(1_000, 0))
	tr.Tag(id, "1.21", "en_us")
	tr.Begin(id, "Notch", time.Unix(2_000, 0))

	info, ok := tr.Get(id)
	require.True(t, ok)
	assert.Equal(t, time.Unix(2_000, 0), info.ConnectedAt)
	assert.Empty(t, info.Version)
	assert.Equal(t, 1, tr.Len())
}

func TestTrackerAll(t *testing.T) {
	tr := NewTracker()
	ids := map[uuid.UUID]bool{}
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids[id] = true
		tr.Begin(id, "player", time.Now())
	}

	entries := tr.All()
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.True(t, ids[e.ID])
	}
}
