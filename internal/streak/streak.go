package streak

import "roofRewardsAPI/utils"

// Outcome describes what a daily check-in did to the streak counter.
type Outcome int

const (
	// AlreadyCounted means the account already checked in today.
	AlreadyCounted Outcome = iota
	// Extended means exactly one calendar day elapsed since the last
	// check-in and the streak grew by one.
	Extended
	// Reset means a day was skipped (or there was no prior record) and
	// the streak restarted at 1.
	Reset
)

// Advance applies one daily check-in to a streak counter.
// lastKey is the local date key of the previous check-in ("" if none),
// todayKey is today's. Comparison is by local calendar day, matching
// the dashboard's behavior; see utils.DateKey for the DST caveat.
func Advance(lastKey, todayKey string, current int) (int, Outcome) {
	if lastKey == todayKey {
		return current, AlreadyCounted
	}
	if lastKey != "" && utils.DaysBetween(lastKey, todayKey) == 1 {
		return current + 1, Extended
	}
	return 1, Reset
}

// BonusDue reports whether the streak just hit a weekly multiple.
// Callers must still consult the per-date idempotency flag before
// paying out, so a bonus is granted once per occurrence.
func BonusDue(streakDays, every int) bool {
	return streakDays > 0 && every > 0 && streakDays%every == 0
}
