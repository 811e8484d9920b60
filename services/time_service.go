package services

import (
	"strings"
	"time"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

// Clock returns the current time. The event tool takes one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// Relative ranges understood by the event tool.
const (
	RangeToday       = "today"
	RangeTomorrow    = "tomorrow"
	RangeThisWeekend = "this_weekend"
	RangeNext7Days   = "next_7_days"
)

// NormalizeDateRange lower-cases the range and treats spaces and hyphens as
// underscores, so "Next 7 days" and "next-7-days" both map to next_7_days.
func NormalizeDateRange(dateRange string) string {
	r := strings.ToLower(strings.TrimSpace(dateRange))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(r)
}

// EventDateWindow turns a relative range into an inclusive day window anchored
// on now. Unknown or empty ranges fall back to the next 7 days.
func EventDateWindow(now time.Time, dateRange string) models.DateWindow {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch NormalizeDateRange(dateRange) {
	case RangeToday:
		return models.DateWindow{From: today, Until: today}
	case RangeTomorrow:
		tomorrow := today.AddDate(0, 0, 1)
		return models.DateWindow{From: tomorrow, Until: tomorrow}
	case RangeThisWeekend:
		// Saturday is today when it already is Saturday; on Sunday it is next week's.
		untilSaturday := (int(time.Saturday) - int(today.Weekday()) + 7) % 7
		saturday := today.AddDate(0, 0, untilSaturday)
		return models.DateWindow{From: saturday, Until: saturday.AddDate(0, 0, 1)}
	default:
		return models.DateWindow{From: today, Until: today.AddDate(0, 0, 6)}
	}
}
