package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var groupedPrinter = message.NewPrinter(language.English)

// FormatPercent renders numerator/denominator as a percentage rounded
// half-up to 3 significant digits, e.g. "30%", "33.3%", "0.125%". A zero
// denominator yields "0%" rather than a fault.
func FormatPercent(denominator, numerator int64) string {
	if denominator == 0 {
		return "0%"
	}
	v := float64(numerator) * 100 / float64(denominator)
	if v == 0 {
		return "0%"
	}

	neg := v < 0
	if neg {
		v = -v
	}
	exp := int(math.Floor(math.Log10(v)))
	scale := math.Pow(10, float64(2-exp))
	r := math.Floor(v*scale+0.5) / scale
	if neg {
		r = -r
	}
	return strconv.FormatFloat(r, 'f', -1, 64) + "%"
}

// FormatNumberShort abbreviates values of a million and above with one
// truncated decimal place and an M/B/T/Q suffix; smaller values use grouped
// thousands formatting.
func FormatNumberShort(n int64) string {
	abbrev := func(div float64, suffix string) string {
		return fmt.Sprintf("%.1f%s", math.Floor(float64(n)/div*10)/10, suffix)
	}
	switch {
	case n >= 1_000_000_000_000_000:
		return abbrev(1e15, "Q")
	case n >= 1_000_000_000_000:
		return abbrev(1e12, "T")
	case n >= 1_000_000_000:
		return abbrev(1e9, "B")
	case n >= 1_000_000:
		return abbrev(1e6, "M")
	default:
		return groupedPrinter.Sprintf("%d", n)
	}
}

// FormatDurationShort renders a second count in short form, e.g. "3h 25m".
func FormatDurationShort(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	days := seconds / 86_400
	hours := seconds % 86_400 / 3_600
	minutes := seconds % 3_600 / 60
	secs := seconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}
	if secs > 0 {
		parts = append(parts, strconv.FormatInt(secs, 10)+"s")
	}
	return strings.Join(parts, " ")
}
