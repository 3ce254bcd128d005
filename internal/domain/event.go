package domain

// Player event types carried on the ingest topic.
const (
	EventLogin      = "login"
	EventJoin       = "join"
	EventDisconnect = "disconnect"
)

// PlayerEvent is the wire format for login/join/disconnect notifications
// produced by the network-event hooks outside the core.
type PlayerEvent struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Username string `json:"username,omitempty"`
	Version  string `json:"version,omitempty"`
	Locale   string `json:"locale,omitempty"`
}
