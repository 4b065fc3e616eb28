package progression

import (
	"errors"
	"time"
)

const (
	// LedgerCap bounds the persisted entry log. Older entries are
	// silently discarded, there is no archival.
	LedgerCap = 100

	// PointsPerLead is the redemption cost of a single lead.
	PointsPerLead = 500

	DailyCheckInPoints = 25
	WeeklyBonusPoints  = 150
	WeeklyBonusEvery   = 7
)

var (
	ErrInvalidAmount      = errors.New("amount must be a non-zero integer")
	ErrInsufficientPoints = errors.New("not enough points")
)

// LedgerEntry is a single point delta. Immutable once appended.
type LedgerEntry struct {
	Amount    int               `json:"amount"`
	Reason    string            `json:"reason"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// State is the persisted rewards record for one account.
// Level is derived from Points and re-asserted after every mutation.
type State struct {
	Points        int           `json:"points"`
	Level         int           `json:"level"`
	StreakDays    int           `json:"streak_days"`
	RedeemedLeads int           `json:"redeemed_leads"`
	LastCheckIn   string        `json:"last_check_in,omitempty"` // local date key YYYY-MM-DD
	Ledger        []LedgerEntry `json:"ledger"`
}

// NewState returns the lazily-created default record.
func NewState() *State {
	return &State{Level: 1, Ledger: []LedgerEntry{}}
}

// Apply appends a ledger entry (newest first), adjusts the running
// points total and recomputes the level. Returns the entry and whether
// the level increased. Negative amounts that would take the balance
// below zero are rejected.
func (s *State) Apply(amount int, reason string, meta map[string]string, now time.Time) (LedgerEntry, bool, error) {
	if amount == 0 {
		return LedgerEntry{}, false, ErrInvalidAmount
	}
	if amount < 0 && s.Points+amount < 0 {
		return LedgerEntry{}, false, ErrInsufficientPoints
	}

	entry := LedgerEntry{
		Amount:    amount,
		Reason:    reason,
		Timestamp: now,
		Meta:      meta,
	}

	s.Ledger = append([]LedgerEntry{entry}, s.Ledger...)
	if len(s.Ledger) > LedgerCap {
		s.Ledger = s.Ledger[:LedgerCap]
	}

	prev := s.Level
	s.Points += amount
	s.Level = LevelForPoints(s.Points)

	return entry, s.Level > prev, nil
}

// Normalize repairs a record loaded from storage: clamps negatives,
// re-derives the level and trims an over-long ledger. Corrupted state
// is healed rather than rejected.
func (s *State) Normalize() {
	if s.Points < 0 {
		s.Points = 0
	}
	if s.StreakDays < 0 {
		s.StreakDays = 0
	}
	if s.RedeemedLeads < 0 {
		s.RedeemedLeads = 0
	}
	if s.Ledger == nil {
		s.Ledger = []LedgerEntry{}
	}
	if len(s.Ledger) > LedgerCap {
		s.Ledger = s.Ledger[:LedgerCap]
	}
	s.Level = LevelForPoints(s.Points)
}
