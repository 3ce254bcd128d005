package presence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/network-analytics/internal/session"
)

func TestBuilderBuild(t *testing.T) {
	sessions := session.NewTracker()
	connectedAt := time.Unix(500, 0)

	idNotch := uuid.New()
	idAlex := uuid.New()
	sessions.Begin(idNotch, "Notch", connectedAt)
	sessions.Tag(idNotch, "1.21", "EN_US")
	sessions.Begin(idAlex, "Alex", connectedAt)

	b := NewBuilder("lobby-1", sessions)
	b.now = func() time.Time { return time.Unix(1_000, 0) }

	snap := b.Build()

	assert.Equal(t, "lobby-1", snap.InstanceID)
	assert.Equal(t, int64(1_000), snap.TimeSent)
	require.Len(t, snap.Players, 2)

	// Sorted by username; locale lowered at the boundary, missing tags empty
	assert.Equal(t, "Alex", snap.Players[0].Username)
	assert.Empty(t, snap.Players[0].Version)
	assert.Empty(t, snap.Players[0].Locale)

	assert.Equal(t, "Notch", snap.Players[1].Username)
	assert.Equal(t, "1.21", snap.Players[1].Version)
	assert.Equal(t, "en_us", snap.Players[1].Locale)
}

func TestBuilderEmptyTracker(t *testing.T) {
	b := NewBuilder("lobby-1", session.NewTracker())

	snap := b.Build()

	assert.Equal(t, "lobby-1", snap.InstanceID)
	assert.NotNil(t, snap.Players)
	assert.Empty(t, snap.Players)
}

func TestBuilderSnapshotIsDetached(t *testing.T) {
	sessions := session.NewTracker()
	id := uuid.New()
	sessions.Begin(id, "Notch", time.Unix(500, 0))

	b := NewBuilder("lobby-1", sessions)
	snap := b.Build()

	// Ending the session after the build leaves the snapshot untouched
	sessions.End(id)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Notch", snap.Players[0].Username)
}
