package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/network-analytics/internal/domain"
)

// Bucket is one row of a breakdown: a display label and how many of the
// fleet's online players fall under it.
type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Flatten collects every online player from all live snapshots into one
// fleet-wide list.
func Flatten(snaps []domain.InstanceSnapshot) []domain.OnlinePlayerRecord {
	var players []domain.OnlinePlayerRecord
	for _, snap := range snaps {
		players = append(players, snap.Players...)
	}
	return players
}

// VersionBreakdown groups the fleet's online players by protocol version.
func VersionBreakdown(players []domain.OnlinePlayerRecord) []Bucket {
	return breakdown(players, func(r domain.OnlinePlayerRecord) string {
		return r.ProtocolVersion().Label()
	})
}

// LocaleBreakdown groups the fleet's online players by locale.
func LocaleBreakdown(players []domain.OnlinePlayerRecord) []Bucket {
	return breakdown(players, func(r domain.OnlinePlayerRecord) string {
		return r.LocaleTag().Label()
	})
}

// breakdown counts players per label, drops empty buckets and sorts by count
// descending, ties broken by label ascending.
func breakdown(players []domain.OnlinePlayerRecord, label func(domain.OnlinePlayerRecord) string) []Bucket {
	counts := make(map[string]int64)
	for _, p := range players {
		counts[label(p)]++
	}

	buckets := make([]Bucket, 0, len(counts))
	for l, c := range counts {
		if c == 0 {
			continue
		}
		buckets = append(buckets, Bucket{Label: l, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Label < buckets[j].Label
	})
	return buckets
}

// sum totals the counts in a breakdown
func sum(buckets []Bucket) int64 {
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	return total
}

// FindPlayer scans the live snapshots for a case-insensitive match on
// username or on the string form of the player id. Iteration order over
// instances is unspecified; the first match wins.
func FindPlayer(snaps []domain.InstanceSnapshot, query string) (domain.OnlinePlayerRecord, bool) {
	for _, snap := range snaps {
		for _, p := range snap.Players {
			if p.Matches(query) {
				return p, true
			}
		}
	}
	return domain.OnlinePlayerRecord{}, false
}

// RenderSummary produces the formatted analytics report from the cohort
// metrics and the live fleet snapshots.
func RenderSummary(s *domain.StatsSummary, snaps []domain.InstanceSnapshot) string {
	players := Flatten(snaps)
	versions := VersionBreakdown(players)
	locales := LocaleBreakdown(players)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("----------------[ Analytics ]----------------")
	line("Player Retention:")
	line("  - Play time greater than 1h: %s", FormatPercent(s.UniqueJoins, s.NumWithPtGreaterThan1h))
	line("  - Play time greater than 6h: %s", FormatPercent(s.UniqueJoins, s.NumWithPtGreaterThan6h))
	line("  - Connected more than 50 times: %s", FormatPercent(s.UniqueJoins, s.NumWithConnGreaterThan50))
	line("")
	line("  - Last login more than 1 month ago: %s", FormatPercent(s.UniqueJoins, s.NumWithLastLoginMoreThan1moAgo))
	line("  - Last login more than 1 week ago: %s", FormatPercent(s.UniqueJoins, s.NumWithLastLoginMoreThan1wAgo))
	line("  - Connected less than 10 times: %s", FormatPercent(s.UniqueJoins, s.NumWithConnLessThan10))
	line("  - Play time less than 30 minutes: %s", FormatPercent(s.UniqueJoins, s.NumWithPtLessThan30m))
	line("")
	line("  - Average time played: %s", FormatDurationShort(s.AverageMinutesPlayed*60))
	line("  - Average times connected: %d", s.AverageTimesConnected)
	line("")
	line("All time:")
	line("  - Unique joins: %s", FormatNumberShort(s.UniqueJoins))
	line("  - Total time played: %s", FormatDurationShort(s.TotalTimePlayed*60))
	line("  - Total connections: %s", FormatNumberShort(s.TotalConnections))
	line("")
	renderWindow(line, "Last month:", s.UniqueJoinsMonth, s.NewPlayersMonth, s.ReturningPlayersMonth)
	renderWindow(line, "Last week:", s.UniqueJoinsWeek, s.NewPlayersWeek, s.ReturningPlayersWeek)
	renderWindow(line, "Last 24 hours:", s.UniqueJoinsToday, s.NewPlayersToday, s.ReturningPlayersToday)
	line("")
	line("Online now:")
	line("  - Players online: %s across %d instances", FormatNumberShort(int64(len(players))), len(snaps))
	line("")
	renderBreakdown(line, "Player Versions:", versions)
	line("")
	renderBreakdown(line, "Player Locales:", locales)

	return b.String()
}

func renderWindow(line func(string, ...any), header string, uniqueJoins, newPlayers, returning int64) {
	line(header)
	line("  - Unique joins: %s", FormatNumberShort(uniqueJoins))
	line("  - New players: %s (%s)", FormatNumberShort(newPlayers), FormatPercent(uniqueJoins, newPlayers))
	line("  - Returning players: %s (%s)", FormatNumberShort(returning), FormatPercent(uniqueJoins, returning))
}

func renderBreakdown(line func(string, ...any), header string, buckets []Bucket) {
	line(header)
	total := sum(buckets)
	for _, bucket := range buckets {
		line("  - %s: %d (%s)", bucket.Label, bucket.Count, FormatPercent(total, bucket.Count))
	}
}
