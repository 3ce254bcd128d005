package domain

import (
	"strings"

	"github.com/google/uuid"
)

// PlayerRecord is the durable per-player row. FirstLogin is set once at
// creation; TimesConnected and MinutesPlayed only ever grow.
type PlayerRecord struct {
	ID               uuid.UUID `json:"id"`
	Username         string    `json:"username"`
	FirstLogin       int64     `json:"first_login"`
	LastLogin        int64     `json:"last_login"`
	LastSeenInstance string    `json:"last_seen_instance"`
	TimesConnected   int64     `json:"times_connected"`
	MinutesPlayed    int64     `json:"minutes_played"`
}

// OnlinePlayerRecord is one player inside an instance snapshot. Version and
// Locale carry the raw tags off the wire; consumers access them through
// ProtocolVersion and LocaleTag, which decode to absent instead of failing.
type OnlinePlayerRecord struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Version  string    `json:"version,omitempty"`
	Locale   string    `json:"locale,omitempty"`
}

// ProtocolVersion returns the player's protocol version tag, absent when the
// raw value is empty or unparseable.
func (r OnlinePlayerRecord) ProtocolVersion() Version {
	return ParseVersion(r.Version)
}

// LocaleTag returns the player's locale tag, absent when undisclosed.
func (r OnlinePlayerRecord) LocaleTag() Locale {
	return ParseLocale(r.Locale)
}

// Matches reports whether the record matches a username-or-id query,
// case-insensitively.
func (r OnlinePlayerRecord) Matches(query string) bool {
	return strings.EqualFold(r.Username, query) || strings.EqualFold(r.ID.String(), query)
}

// InstanceSnapshot is one instance's self-reported list of connected players
// at a point in time. Snapshots are replaced wholesale, never patched.
type InstanceSnapshot struct {
	InstanceID string               `json:"instanceId"`
	TimeSent   int64                `json:"timeSent"`
	Players    []OnlinePlayerRecord `json:"players"`
}
