package presence

import (
	"sort"
	"strings"
	"time"

	"github.com/network-analytics/internal/domain"
	"github.com/network-analytics/internal/session"
)

// Builder produces this instance's snapshot from the local session tracker.
// Each snapshot is built fresh; nothing is carried over between cycles.
type Builder struct {
	instanceID string
	sessions   *session.Tracker
	now        func() time.Time
}

// NewBuilder creates a snapshot builder for this instance
func NewBuilder(instanceID string, sessions *session.Tracker) *Builder {
	return &Builder{
		instanceID: instanceID,
		sessions:   sessions,
		now:        time.Now,
	}
}

// Build assembles an immutable snapshot of the locally connected players.
// Locale tags are normalized to lower case at this boundary; protocol tags
// travel raw and are decoded by consumers.
func (b *Builder) Build() domain.InstanceSnapshot {
	entries := b.sessions.All()
	players := make([]domain.OnlinePlayerRecord, 0, len(entries))
	for _, e := range entries {
		players = append(players, domain.OnlinePlayerRecord{
			ID:       e.ID,
			Username: e.Info.Username,
			Version:  e.Info.Version,
			Locale:   strings.ToLower(e.Info.Locale),
		})
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].Username != players[j].Username {
			return players[i].Username < players[j].Username
		}
		return players[i].ID.String() < players[j].ID.String()
	})

	return domain.InstanceSnapshot{
		InstanceID: b.instanceID,
		TimeSent:   b.now().Unix(),
		Players:    players,
	}
}
