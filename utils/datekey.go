package utils

import (
	"fmt"
	"math"
	"time"
)

const dateKeyLayout = "2006-01-02"

// DateKey renders t as a local calendar-day key (YYYY-MM-DD).
// Day boundaries follow the server's local timezone, matching how the
// dashboard compared days on the client. Known limitation: across DST
// transitions or with a skewed clock a day can be double-counted or
// skipped; kept as-is deliberately.
func DateKey(t time.Time) string {
	return t.Local().Format(dateKeyLayout)
}

// TodayKey is DateKey(now).
func TodayKey() string {
	return DateKey(time.Now())
}

// ParseDateKey parses a YYYY-MM-DD key in the local timezone.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(dateKeyLayout, key, time.Local)
}

// PluralDays renders a day count for user-facing copy.
func PluralDays(n int) string {
	if n == 1 {
		return "1-day"
	}
	return fmt.Sprintf("%d-day", n)
}

// DaysBetween returns the number of calendar days from one date key to
// another, rounded to absorb DST-shortened or -lengthened days.
// Unparseable keys count as "far apart" so streak logic resets.
func DaysBetween(fromKey, toKey string) int {
	from, err := ParseDateKey(fromKey)
	if err != nil {
		return math.MaxInt32
	}
	to, err := ParseDateKey(toKey)
	if err != nil {
		return math.MaxInt32
	}
	return int(math.Round(to.Sub(from).Hours() / 24))
}
