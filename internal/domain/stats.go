package domain

// Rolling window lengths, in seconds, for cohort metrics.
const (
	WindowDay   int64 = 86_400
	WindowWeek  int64 = 604_800
	WindowMonth int64 = 2_592_000
)

// StatsSummary is the set of cohort metrics produced by a single stats query.
// It is derived on demand and never stored.
type StatsSummary struct {
	NumWithPtGreaterThan1h   int64 `json:"num_with_pt_greater_than_1h"`
	NumWithPtGreaterThan6h   int64 `json:"num_with_pt_greater_than_6h"`
	NumWithConnGreaterThan50 int64 `json:"num_with_conn_greater_than_50"`

	NumWithLastLoginMoreThan1moAgo int64 `json:"num_with_last_login_more_than_1mo_ago"`
	NumWithLastLoginMoreThan1wAgo  int64 `json:"num_with_last_login_more_than_1w_ago"`
	NumWithConnLessThan10          int64 `json:"num_with_conn_less_than_10"`
	NumWithPtLessThan30m           int64 `json:"num_with_pt_less_than_30m"`

	AverageMinutesPlayed  int64 `json:"average_minutes_played"`
	AverageTimesConnected int64 `json:"average_times_connected"`

	UniqueJoins      int64 `json:"unique_joins"`
	TotalTimePlayed  int64 `json:"total_time_played"`
	TotalConnections int64 `json:"total_connections"`

	UniqueJoinsMonth      int64 `json:"unique_joins_month"`
	NewPlayersMonth       int64 `json:"new_players_month"`
	ReturningPlayersMonth int64 `json:"returning_players_month"`

	UniqueJoinsWeek      int64 `json:"unique_joins_week"`
	NewPlayersWeek       int64 `json:"new_players_week"`
	ReturningPlayersWeek int64 `json:"returning_players_week"`

	UniqueJoinsToday      int64 `json:"unique_joins_today"`
	NewPlayersToday       int64 `json:"new_players_today"`
	ReturningPlayersToday int64 `json:"returning_players_today"`
}
